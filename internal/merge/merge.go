// Package merge implements the four response-merging strategies of
// spec.md §4.7 (component C7): each FDSN/EIDA service picks its own
// strategy based on wire format, and every merger writes its output to an
// io.Writer. The raw, JSON and text mergers stream each part without
// building the merged body in memory, since spooled responses may be large;
// the StationXML merger decodes every part whole and holds the merged
// document in memory before encoding it.
package merge

import "github.com/eida/federator/internal/seedid"

// Strategy names the merge algorithm a service's content type requires.
type Strategy int

const (
	// StrategyRaw concatenates spool files byte-for-byte, for miniSEED.
	StrategyRaw Strategy = iota
	// StrategyStationXML parses and union-merges FDSNStationXML documents.
	StrategyStationXML
	// StrategyJSONArray concatenates top-level JSON arrays into one array.
	StrategyJSONArray
	// StrategyTextHeaderOnce keeps the first file's header line and drops
	// every subsequent file's header line.
	StrategyTextHeaderOnce
)

// StrategyFor returns the merge strategy for service, per spec.md §4.7's
// per-service format table.
func StrategyFor(service seedid.Service, format string) Strategy {
	switch service {
	case seedid.ServiceDataselect:
		return StrategyRaw
	case seedid.ServiceWFCatalog:
		return StrategyJSONArray
	case seedid.ServiceStation:
		if format == "text" {
			return StrategyTextHeaderOnce
		}
		return StrategyStationXML
	default:
		return StrategyRaw
	}
}
