package merge

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/eida/federator/internal/stationxml"
)

// StationXML parses each file in paths as an FDSNStationXML document,
// union-merges them with stationxml.Merge, and writes the result to w.
func StationXML(w io.Writer, paths []string) error {
	docs := make([]*stationxml.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return errors.Wrapf(err, "reading %s", p)
		}
		doc, err := stationxml.Parse(data)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", p)
		}
		docs = append(docs, doc)
	}

	merged := stationxml.Merge(docs)

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(merged)
}
