// Package format implements the three output encodings of the routing
// resolver service (spec.md §4.4): post, get, and json.
package format

import (
	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

// Format names one of the resolver's output encodings.
type Format string

const (
	POST Format = "post"
	GET  Format = "get"
	JSON Format = "json"
)

// Parse validates a format query parameter, defaulting to POST when empty
// per spec.md §4.4.
func Parse(s string) (Format, bool) {
	switch Format(s) {
	case "", POST:
		return POST, true
	case GET, JSON:
		return Format(s), true
	default:
		return "", false
	}
}

// epochLine renders one stream epoch as NET STA LOC CHA START END,
// matching the line grammar C1 parses (internal/seedid/parse_post.go).
func epochLine(e seedid.StreamEpoch) string {
	loc := e.Loc
	if loc == "" {
		loc = "--"
	}
	end := ""
	if !e.End.Equal(seedid.FarFuture) {
		end = e.End.Format("2006-01-02T15:04:05")
	}
	return e.Net + " " + e.Sta + " " + loc + " " + e.Cha + " " + e.Start.Format("2006-01-02T15:04:05") + " " + end
}

// groupsOrEmpty guards callers against a nil slice, since routing.Resolve
// may return (nil, nil) for "no routes matched".
func groupsOrEmpty(groups []routing.Group) []routing.Group {
	if groups == nil {
		return []routing.Group{}
	}
	return groups
}
