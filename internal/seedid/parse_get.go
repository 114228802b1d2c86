package seedid

import (
	"net/url"
	"strings"
	"time"

	"github.com/eida/federator/internal/apierror"
)

// timeLayouts are the ISO-8601 layouts accepted for start/end, in order of
// preference. Fractional seconds are optional; timezones other than UTC (or
// absent, interpreted as UTC) are rejected by parseTime.
var timeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseGET decodes an FDSN-style GET query string into a StreamEpochList and
// an Options map, per spec.md §4.1. A single selector (net/sta/loc/cha plus
// start/end) is read from the top-level parameters; wildcards are preserved
// for later resolution.
func ParseGET(service Service, values url.Values) (StreamEpochList, Options, error) {
	norm := make(map[string][]string, len(values))
	for k, v := range values {
		norm[strings.ToLower(k)] = v
	}

	for key := range norm {
		if !knownSelectorParams[key] && !isOptionKey(service, key) {
			return nil, nil, apierror.Invalid("unknown parameter %q", key)
		}
	}

	net := firstOr(norm, "*", "net", "network")
	sta := firstOr(norm, "*", "sta", "station")
	loc := firstOr(norm, "*", "loc", "location")
	cha := firstOr(norm, "*", "cha", "channel")

	start, err := parseOptionalTime(norm, FarFuture.AddDate(-200, 0, 0), "start", "starttime")
	if err != nil {
		return nil, nil, err
	}
	end, err := parseOptionalTime(norm, FarFuture, "end", "endtime")
	if err != nil {
		return nil, nil, err
	}
	if !start.Before(end) {
		return nil, nil, apierror.Invalid("start must precede end strictly")
	}

	opts := Options{}
	for key, vals := range norm {
		if knownSelectorParams[key] || len(vals) == 0 {
			continue
		}
		opts[key] = vals[0]
	}
	if err := ValidateOptions(service, opts); err != nil {
		return nil, nil, err
	}

	return StreamEpochList{{
		Net: strings.ToUpper(net), Sta: strings.ToUpper(sta),
		Loc: normalizeLoc(loc), Cha: strings.ToUpper(cha),
		Start: start, End: end,
	}}, opts, nil
}

func isOptionKey(service Service, key string) bool {
	schema, ok := optionSchema[service]
	return ok && schema[key]
}

func firstOr(values map[string][]string, def string, keys ...string) string {
	for _, k := range keys {
		if v, ok := values[k]; ok && len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return def
}

func parseOptionalTime(values map[string][]string, def time.Time, keys ...string) (time.Time, error) {
	for _, k := range keys {
		if v, ok := values[k]; ok && len(v) > 0 && v[0] != "" {
			return parseTime(v[0])
		}
	}
	return def, nil
}

// parseTime parses an ISO-8601 timestamp, rejecting any timezone other than
// UTC (spec.md §4.1: "rejects timezones other than UTC").
func parseTime(s string) (time.Time, error) {
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z")
	} else if strings.ContainsAny(s[minInt(len(s), 10):], "+-") {
		return time.Time{}, apierror.Invalid("time %q must be UTC", s)
	}

	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apierror.Invalid("unable to parse time %q", s)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// normalizeLoc upper-cases a location code without collapsing "" and "--"
// into each other, per spec.md §3's invariant.
func normalizeLoc(loc string) string {
	if loc == "" || loc == "--" {
		return loc
	}
	return strings.ToUpper(loc)
}
