package seedid

import "github.com/eida/federator/internal/apierror"

// Service names the three FDSN/EIDA protocols the catalog and federator
// understand, per spec.md §3's Endpoint tuple.
type Service string

const (
	ServiceStation     Service = "station"
	ServiceDataselect  Service = "dataselect"
	ServiceWFCatalog   Service = "wfcatalog"
)

// optionSchema enumerates, per service, the option names accepted alongside
// selector fields. This replaces the "dynamic option-bag per service"
// pattern flagged for re-architecture in spec.md §9: unknown options fail
// fast at parse time rather than propagating to upstream.
var optionSchema = map[Service]map[string]bool{
	ServiceStation: {
		"level":    true,
		"format":   true,
		"matchtimeseries": true,
		"includerestricted": true,
		"includeavailability": true,
	},
	ServiceDataselect: {
		"quality":       true,
		"minimumlength": true,
		"longestonly":   true,
		"format":        true,
	},
	ServiceWFCatalog: {
		"format": true,
	},
}

// knownSelectorParams are the parameter names that map onto StreamEpoch
// fields rather than service options.
var knownSelectorParams = map[string]bool{
	"net": true, "network": true,
	"sta": true, "station": true,
	"loc": true, "location": true,
	"cha": true, "channel": true,
	"start": true, "starttime": true,
	"end": true, "endtime": true,
}

// ValidateOptions checks that every key in opts is recognized for service,
// failing fast per spec.md §9's enumerated option schema.
func ValidateOptions(service Service, opts Options) error {
	schema, ok := optionSchema[service]
	if !ok {
		return apierror.Invalid("unknown service %q", service)
	}
	for key := range opts {
		if !schema[key] {
			return apierror.Invalid("unknown parameter %q for service %q", key, service)
		}
	}
	return nil
}

// Options carries request-wide, service-specific parameters that are not
// selector fields (e.g. level, quality, minimumlength).
type Options map[string]string
