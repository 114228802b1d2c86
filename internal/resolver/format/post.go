package format

import (
	"io"

	"github.com/eida/federator/internal/routing"
)

// WritePOST renders groups as blocks of lines: each block starts with the
// endpoint URL, followed by one "NET STA LOC CHA START END" line per
// epoch, and blocks are separated by a blank line, per spec.md §4.4.
func WritePOST(w io.Writer, groups []routing.Group) error {
	for i, g := range groupsOrEmpty(groups) {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, g.URL+"\n"); err != nil {
			return err
		}
		for _, e := range g.Epochs {
			if _, err := io.WriteString(w, epochLine(e)+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
