package decompose

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

// SubRequest is one fully-formed upstream request the dispatcher (C6) will
// issue, per spec.md §4.5.
type SubRequest struct {
	EndpointURL         string
	Method              string // http.MethodGet or http.MethodPost
	Query               string // URL-encoded query string, for GET
	Body                string // line-block body, for POST
	ContentTypeExpected string
	Epochs              seedid.StreamEpochList
}

// Decompose builds sub-request descriptors for each resolved group,
// splitting epoch lists whose encoded body would exceed limits.MaxBodyBytes
// or limits.MaxEpochsPerRequest into multiple chunks, per spec.md §4.5.
// Service-specific options are propagated verbatim into each sub-request
// except for selector fields, which are replaced by the concrete epochs.
func Decompose(groups []routing.Group, origWasPOST bool, opts seedid.Options, limits Limits) []SubRequest {
	var out []SubRequest

	for _, group := range groups {
		for _, chunk := range chunkEpochs(group.Epochs, limits) {
			method := http.MethodGet
			if origWasPOST || len(chunk) > 1 || encodedBodyLen(chunk, opts) > smallRequestByteThreshold {
				// GET carries exactly one selector; any chunk with more than
				// one epoch, or a client that already used POST, must use POST.
				method = http.MethodPost
			}

			sr := SubRequest{EndpointURL: group.URL, Method: method, Epochs: chunk}
			if method == http.MethodPost {
				sr.Body = encodeBody(chunk, opts)
			} else {
				sr.Query = encodeQuery(chunk, opts)
			}
			out = append(out, sr)
		}
	}
	return out
}

// smallRequestByteThreshold decides when a single-epoch chunk should still
// prefer POST over GET because it would make an unwieldy query string
// (e.g. many verbatim options). Independent of the chunk-splitting
// ceilings in Limits.
const smallRequestByteThreshold = 2000

func chunkEpochs(epochs seedid.StreamEpochList, limits Limits) []seedid.StreamEpochList {
	if len(epochs) == 0 {
		return nil
	}

	maxEpochs := limits.MaxEpochsPerRequest
	if maxEpochs <= 0 {
		maxEpochs = DefaultLimits.MaxEpochsPerRequest
	}
	maxBytes := limits.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = DefaultLimits.MaxBodyBytes
	}

	var chunks []seedid.StreamEpochList
	var cur seedid.StreamEpochList
	curBytes := 0

	for _, e := range epochs {
		lineBytes := len(encodeLine(e)) + 1
		if len(cur) > 0 && (len(cur) >= maxEpochs || curBytes+lineBytes > maxBytes) {
			chunks = append(chunks, cur)
			cur = nil
			curBytes = 0
		}
		cur = append(cur, e)
		curBytes += lineBytes
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

func encodeLine(e seedid.StreamEpoch) string {
	loc := e.Loc
	if loc == "" {
		loc = "--"
	}
	end := ""
	if !e.End.Equal(seedid.FarFuture) {
		end = " " + e.End.Format("2006-01-02T15:04:05")
	}
	return fmt.Sprintf("%s %s %s %s %s%s", e.Net, e.Sta, loc, e.Cha,
		e.Start.Format("2006-01-02T15:04:05"), end)
}

func encodeBody(epochs seedid.StreamEpochList, opts seedid.Options) string {
	var b strings.Builder
	for key, val := range opts {
		fmt.Fprintf(&b, "%s=%s\n", key, val)
	}
	for _, e := range epochs {
		b.WriteString(encodeLine(e))
		b.WriteByte('\n')
	}
	return b.String()
}

func encodeQuery(epochs seedid.StreamEpochList, opts seedid.Options) string {
	e := epochs[0]
	q := make(map[string]string, len(opts)+6)
	for k, v := range opts {
		q[k] = v
	}
	q["net"] = e.Net
	q["sta"] = e.Sta
	q["loc"] = e.Loc
	q["cha"] = e.Cha
	q["start"] = e.Start.Format("2006-01-02T15:04:05")
	if !e.End.Equal(seedid.FarFuture) {
		q["end"] = e.End.Format("2006-01-02T15:04:05")
	}

	var b strings.Builder
	first := true
	for k, v := range q {
		if !first {
			b.WriteByte('&')
		}
		first = false
		fmt.Fprintf(&b, "%s=%s", k, url.QueryEscape(v))
	}
	return b.String()
}

func encodedBodyLen(epochs seedid.StreamEpochList, opts seedid.Options) int {
	return len(encodeBody(epochs, opts))
}
