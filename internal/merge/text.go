package merge

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// headerPrefix marks a header/comment line in FDSN text-format responses
// (fdsnws-station text, fdsnws-dataselect text).
const headerPrefix = "#"

// TextHeaderOnce concatenates the data lines of each file in paths,
// keeping only the first file's header line (a line starting with "#"),
// per spec.md §4.7.
func TextHeaderOnce(w io.Writer, paths []string) error {
	headerWritten := false
	for _, p := range paths {
		if err := appendTextFile(w, p, &headerWritten); err != nil {
			return errors.Wrapf(err, "merging %s", p)
		}
	}
	return nil
}

func appendTextFile(w io.Writer, path string, headerWritten *bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, headerPrefix) {
			if *headerWritten {
				continue
			}
			*headerWritten = true
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return scanner.Err()
}
