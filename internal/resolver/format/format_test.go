package format

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

func sampleGroups() []routing.Group {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)
	return []routing.Group{
		{
			URL: "http://dc1.example.org/fdsnws/dataselect/1/query",
			Epochs: seedid.StreamEpochList{
				{Net: "NL", Sta: "HGN", Loc: "", Cha: "HHZ", Start: start, End: end},
			},
		},
	}
}

func TestParse_DefaultsToPOST(t *testing.T) {
	f, ok := Parse("")
	require.True(t, ok)
	assert.Equal(t, POST, f)
}

func TestParse_RejectsUnknown(t *testing.T) {
	_, ok := Parse("xml")
	assert.False(t, ok)
}

func TestWritePOST_BlocksSeparatedByBlankLine(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)
	groups := append(sampleGroups(), routing.Group{
		URL:    "http://dc2.example.org/fdsnws/dataselect/1/query",
		Epochs: seedid.StreamEpochList{{Net: "GR", Sta: "BFO", Loc: "", Cha: "HHZ", Start: start, End: end}},
	})

	var buf bytes.Buffer
	require.NoError(t, WritePOST(&buf, groups))
	assert.Equal(t, "http://dc1.example.org/fdsnws/dataselect/1/query\nNL HGN -- HHZ 2020-01-01T00:00:00 2020-02-01T00:00:00\n"+
		"\n"+
		"http://dc2.example.org/fdsnws/dataselect/1/query\nGR BFO -- HHZ 2020-01-01T00:00:00 2020-02-01T00:00:00\n", buf.String())
}

func TestWriteGET_OneURLPerEpoch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGET(&buf, sampleGroups()))
	out := buf.String()
	assert.Contains(t, out, "net=NL")
	assert.Contains(t, out, "loc=--")
}

func TestWriteJSON_StructuredList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleGroups()))
	assert.Contains(t, buf.String(), `"url":"http://dc1.example.org/fdsnws/dataselect/1/query"`)
	assert.Contains(t, buf.String(), `"loc":"--"`)
}

func TestWritePOST_EmptyGroupsWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePOST(&buf, nil))
	assert.Empty(t, buf.String())
}
