package stationxml

// Merge unions the Network elements of docs into a single document, per
// spec.md §4.7: "Networks with the same code are merged; stations with the
// same code under one network are merged, preserving nested children by
// (code, startDate) uniqueness."
func Merge(docs []*Document) *Document {
	var order []string
	netByCode := make(map[string]*Network)

	for _, doc := range docs {
		for _, net := range doc.Networks {
			existing, ok := netByCode[net.Code]
			if !ok {
				cp := net
				cp.Stations = append([]Station(nil), net.Stations...)
				netByCode[net.Code] = &cp
				order = append(order, net.Code)
				continue
			}
			existing.Stations = mergeStations(existing.Stations, net.Stations)
		}
	}

	merged := &Document{Source: "eidaws-federator"}
	for _, code := range order {
		merged.Networks = append(merged.Networks, *netByCode[code])
	}
	return merged
}

func mergeStations(base, add []Station) []Station {
	type key struct{ code, start string }
	index := make(map[key]int, len(base))
	for i, s := range base {
		index[key{s.Code, s.StartDate}] = i
	}

	for _, s := range add {
		k := key{s.Code, s.StartDate}
		if i, ok := index[k]; ok {
			base[i].Channels = mergeChannels(base[i].Channels, s.Channels)
			continue
		}
		index[k] = len(base)
		base = append(base, s)
	}
	return base
}

func mergeChannels(base, add []Channel) []Channel {
	type key struct{ code, loc, start string }
	index := make(map[key]bool, len(base))
	for _, c := range base {
		index[key{c.Code, c.LocationCode, c.StartDate}] = true
	}
	for _, c := range add {
		k := key{c.Code, c.LocationCode, c.StartDate}
		if index[k] {
			continue
		}
		index[k] = true
		base = append(base, c)
	}
	return base
}
