package seedid

import (
	"bufio"
	"io"
	"strings"

	"github.com/eida/federator/internal/apierror"
)

// ParsePOST decodes a line-block POST body into a StreamEpochList and an
// Options map, per spec.md §4.1. Header lines of the form "key=value" set
// request-wide options; all other non-blank lines are selector rows of the
// form "NET STA LOC CHA START [END]", whitespace-separated, with "--"
// accepted as an explicit empty location code and END optional (open-ended
// epoch, per spec.md §3 and §8).
//
// The line-oriented scan mirrors the teacher's message.Framing idiom
// (UnpackLine over a bufio.Reader) generalized from JSON-lines to FDSN
// line-blocks.
func ParsePOST(service Service, body io.Reader) (StreamEpochList, Options, error) {
	var (
		epochs StreamEpochList
		opts   = Options{}
		lineNo int
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if key, val, ok := splitOptionLine(line); ok {
			opts[strings.ToLower(key)] = val
			continue
		}

		epoch, err := parseSelectorLine(line, lineNo)
		if err != nil {
			return nil, nil, err
		}
		epochs = append(epochs, epoch)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, apierror.Invalid("reading POST body: %v", err)
	}

	if err := ValidateOptions(service, opts); err != nil {
		return nil, nil, err
	}

	if len(epochs) == 0 {
		return nil, nil, apierror.Invalid("POST body contains no stream-epoch lines")
	}

	return epochs, opts, nil
}

// splitOptionLine recognizes a "key=value" header line. A line is treated
// as an option only when it contains no whitespace before the '=' and no
// internal whitespace in the key, distinguishing it from selector rows
// (which are whitespace-separated fields and never contain '=').
func splitOptionLine(line string) (key, val string, ok bool) {
	i := strings.IndexByte(line, '=')
	if i <= 0 {
		return "", "", false
	}
	candidate := line[:i]
	if strings.ContainsAny(candidate, " \t") {
		return "", "", false
	}
	return candidate, line[i+1:], true
}

func parseSelectorLine(line string, lineNo int) (StreamEpoch, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 || len(fields) > 6 {
		return StreamEpoch{}, apierror.InvalidLine(lineNo,
			"expected 5 or 6 fields (NET STA LOC CHA START [END]), got %d", len(fields))
	}

	start, err := parseTime(fields[4])
	if err != nil {
		return StreamEpoch{}, apierror.InvalidLine(lineNo, "%v", err)
	}

	end := FarFuture
	if len(fields) == 6 {
		end, err = parseTime(fields[5])
		if err != nil {
			return StreamEpoch{}, apierror.InvalidLine(lineNo, "%v", err)
		}
	}
	if !start.Before(end) {
		return StreamEpoch{}, apierror.InvalidLine(lineNo, "start must precede end strictly")
	}

	return StreamEpoch{
		Net: strings.ToUpper(fields[0]),
		Sta: strings.ToUpper(fields[1]),
		Loc: normalizeLoc(fields[2]),
		Cha: strings.ToUpper(fields[3]),
		Start: start,
		End:   end,
	}, nil
}
