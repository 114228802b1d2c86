package merge

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// JSONArrays concatenates the top-level JSON array in each file in paths
// into a single array written to w, for eidaws-wfcatalog responses
// (spec.md §4.7). Each file is streamed token-by-token rather than
// unmarshalled whole, since a catalog response can be large.
func JSONArrays(w io.Writer, paths []string) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}

	first := true
	for _, p := range paths {
		if err := appendArrayElements(w, p, &first); err != nil {
			return errors.Wrapf(err, "merging %s", p)
		}
	}

	_, err := io.WriteString(w, "]")
	return err
}

func appendArrayElements(w io.Writer, path string, first *bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := json.NewDecoder(f)

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil // empty file: contributes nothing
		}
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return errors.Errorf("expected top-level JSON array, got %v", tok)
	}

	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if !*first {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		*first = false
		if _, err := w.Write(raw); err != nil {
			return err
		}
	}
	return nil
}
