package format

import (
	"encoding/json"
	"io"

	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

// jsonStream is one endpoint's entry in the json-format resolve response.
type jsonStream struct {
	Net   string `json:"net"`
	Sta   string `json:"sta"`
	Loc   string `json:"loc"`
	Cha   string `json:"cha"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type jsonEndpoint struct {
	URL     string       `json:"url"`
	Streams []jsonStream `json:"streams"`
}

// WriteJSON renders groups as a JSON array of {url, streams:[...]}, per
// spec.md §4.4.
func WriteJSON(w io.Writer, groups []routing.Group) error {
	out := make([]jsonEndpoint, 0, len(groups))
	for _, g := range groupsOrEmpty(groups) {
		ep := jsonEndpoint{URL: g.URL, Streams: make([]jsonStream, 0, len(g.Epochs))}
		for _, e := range g.Epochs {
			loc := e.Loc
			if loc == "" {
				loc = "--"
			}
			end := ""
			if !e.End.Equal(seedid.FarFuture) {
				end = e.End.Format("2006-01-02T15:04:05")
			}
			ep.Streams = append(ep.Streams, jsonStream{
				Net: e.Net, Sta: e.Sta, Loc: loc, Cha: e.Cha,
				Start: e.Start.Format("2006-01-02T15:04:05"), End: end,
			})
		}
		out = append(out, ep)
	}

	enc := json.NewEncoder(w)
	return enc.Encode(out)
}
