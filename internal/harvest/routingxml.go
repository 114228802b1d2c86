package harvest

import (
	"encoding/xml"
	"time"

	"github.com/eida/federator/internal/apierror"
	"github.com/eida/federator/internal/seedid"
)

// routingDocument models the upstream eidaws-routing configuration XML
// fetched from each data center (spec.md §4.3 step 1): a list of routes,
// each naming a stream pattern and the per-service endpoint URLs that serve
// it.
type routingDocument struct {
	XMLName xml.Name      `xml:"routing"`
	Routes  []routingRoute `xml:"route"`
}

type routingRoute struct {
	Net  string          `xml:"networkCode,attr"`
	Sta  string          `xml:"stationCode,attr"`
	Loc  string          `xml:"locationCode,attr"`
	Cha  string          `xml:"streamCode,attr"`
	Services []serviceURL `xml:",any"`
}

type serviceURL struct {
	XMLName xml.Name
	Address string `xml:"address,attr"`
	Start   string `xml:"start,attr"`
	End     string `xml:"end,attr"`
}

// parseRoutingXML decodes a routing configuration document and validates
// structural invariants (spec.md §4.3: "Structural validation failures
// ...abort that center's batch"): epoch end must not precede start, and
// (net, sta, loc, cha, start) pairs for one service must be unique.
func parseRoutingXML(data []byte) (*routingDocument, error) {
	var doc routingDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, apierror.Invalid("malformed routing XML: %v", err)
	}

	seen := make(map[string]bool)
	for _, route := range doc.Routes {
		for _, svc := range route.Services {
			start, err := parseXMLTime(svc.Start)
			if err != nil {
				return nil, apierror.Invalid("route %s.%s.%s.%s: bad start time: %v",
					route.Net, route.Sta, route.Loc, route.Cha, err)
			}
			end := seedid.FarFuture
			if svc.End != "" {
				end, err = parseXMLTime(svc.End)
				if err != nil {
					return nil, apierror.Invalid("route %s.%s.%s.%s: bad end time: %v",
						route.Net, route.Sta, route.Loc, route.Cha, err)
				}
			}
			if !start.Before(end) {
				return nil, apierror.Invalid("route %s.%s.%s.%s: end before start",
					route.Net, route.Sta, route.Loc, route.Cha)
			}

			key := route.Net + "." + route.Sta + "." + route.Loc + "." + route.Cha + "." +
				svc.XMLName.Local + "." + svc.Start
			if seen[key] {
				return nil, apierror.Invalid("duplicate route entry for %s", key)
			}
			seen[key] = true
		}
	}
	return &doc, nil
}

func parseXMLTime(s string) (time.Time, error) {
	if s == "" {
		return seedid.FarFuture, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apierror.Invalid("unable to parse time %q", s)
}
