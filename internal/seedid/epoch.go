// Package seedid implements the stream-epoch model and the FDSN/EIDA query
// parser described in spec.md §4.1 (component C1): decoding a GET query
// string or a POST line-block body into a canonical set of stream-epoch
// selectors.
package seedid

import "time"

// FarFuture is the sentinel used for open-ended epochs, per spec.md §3's
// "open-ended epochs use a sentinel 'far future'" invariant.
var FarFuture = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)

// StreamEpoch is the atomic unit of the data model: a SEED identifier
// quintuple paired with a half-open UTC time interval [Start, End).
//
// Net, Sta, Loc, Cha may carry FDSN wildcards ('*', '?') prior to
// resolution against the routing catalog; after resolution every epoch is
// concrete. Loc == "" and Loc == "--" are distinct, legal values (spec.md
// §3): both denote an empty SEED location code but are carried differently
// on the wire, so this type never normalizes one into the other.
type StreamEpoch struct {
	Net   string
	Sta   string
	Loc   string
	Cha   string
	Start time.Time
	End   time.Time
}

// HasWildcard reports whether any of the four code fields contains an FDSN
// wildcard character.
func (e StreamEpoch) HasWildcard() bool {
	for _, f := range []string{e.Net, e.Sta, e.Loc, e.Cha} {
		for _, r := range f {
			if r == '*' || r == '?' {
				return true
			}
		}
	}
	return false
}

// Intersect returns the overlap of e's validity window with [start, end),
// and whether a non-empty overlap exists. Per spec.md §3, "if the
// intersection is empty the fact contributes nothing".
func (e StreamEpoch) Intersect(start, end time.Time) (StreamEpoch, bool) {
	var out = e
	if out.Start.Before(start) {
		out.Start = start
	}
	if out.End.After(end) {
		out.End = end
	}
	if !out.Start.Before(out.End) {
		return StreamEpoch{}, false
	}
	return out, true
}

// StreamEpochList is an ordered collection of stream-epoch selectors parsed
// from one request.
type StreamEpochList []StreamEpoch

// Less implements the sort order mandated by spec.md §4.2: "epochs within a
// group sorted by (net, sta, loc, cha, start)".
func Less(a, b StreamEpoch) bool {
	if a.Net != b.Net {
		return a.Net < b.Net
	}
	if a.Sta != b.Sta {
		return a.Sta < b.Sta
	}
	if a.Loc != b.Loc {
		return a.Loc < b.Loc
	}
	if a.Cha != b.Cha {
		return a.Cha < b.Cha
	}
	return a.Start.Before(b.Start)
}
