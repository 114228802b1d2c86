package format

import (
	"io"
	"net/url"

	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

// WriteGET renders groups as one URL per epoch, each carrying its own
// net/sta/loc/cha/start/end query parameters, per spec.md §4.4.
func WriteGET(w io.Writer, groups []routing.Group) error {
	for _, g := range groupsOrEmpty(groups) {
		for _, e := range g.Epochs {
			if _, err := io.WriteString(w, epochURL(g.URL, e)+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

func epochURL(base string, e seedid.StreamEpoch) string {
	loc := e.Loc
	if loc == "" {
		loc = "--"
	}
	q := url.Values{}
	q.Set("net", e.Net)
	q.Set("sta", e.Sta)
	q.Set("loc", loc)
	q.Set("cha", e.Cha)
	q.Set("start", e.Start.Format("2006-01-02T15:04:05"))
	if !e.End.Equal(seedid.FarFuture) {
		q.Set("end", e.End.Format("2006-01-02T15:04:05"))
	}
	return base + "?" + q.Encode()
}
