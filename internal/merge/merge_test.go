package merge

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRawConcat_PreservesByteOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a", "AAAA")
	b := writeTemp(t, dir, "b", "BBBB")

	var buf bytes.Buffer
	n, err := RawConcat(&buf, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, "AAAABBBB", buf.String())
}

func TestJSONArrays_ConcatenatesAndHandlesEmpty(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.json", `[{"id":1},{"id":2}]`)
	empty := writeTemp(t, dir, "empty.json", `[]`)
	b := writeTemp(t, dir, "b.json", `[{"id":3}]`)

	var buf bytes.Buffer
	require.NoError(t, JSONArrays(&buf, []string{a, empty, b}))
	assert.JSONEq(t, `[{"id":1},{"id":2},{"id":3}]`, buf.String())
}

func TestJSONArrays_RejectsNonArrayTopLevel(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.json", `{"id":1}`)

	var buf bytes.Buffer
	err := JSONArrays(&buf, []string{a})
	assert.Error(t, err)
}

func TestTextHeaderOnce_KeepsFirstHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.txt", "#Network|Station\nNET|STA1\n")
	b := writeTemp(t, dir, "b.txt", "#Network|Station\nNET|STA2\n")

	var buf bytes.Buffer
	require.NoError(t, TextHeaderOnce(&buf, []string{a, b}))
	assert.Equal(t, "#Network|Station\nNET|STA1\nNET|STA2\n", buf.String())
}

func TestStationXML_MergesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.xml", `<FDSNStationXML><Network code="NL" startDate="2000-01-01"><Station code="HGN" startDate="2000-01-01"><Channel code="HHZ" locationCode="" startDate="2000-01-01"/></Station></Network></FDSNStationXML>`)
	b := writeTemp(t, dir, "b.xml", `<FDSNStationXML><Network code="NL" startDate="2000-01-01"><Station code="HGN" startDate="2000-01-01"><Channel code="HHN" locationCode="" startDate="2000-01-01"/></Station></Network></FDSNStationXML>`)

	var buf bytes.Buffer
	require.NoError(t, StationXML(&buf, []string{a, b}))
	out := buf.String()
	assert.Contains(t, out, "HHZ")
	assert.Contains(t, out, "HHN")
	assert.Equal(t, 1, countOccurrences(out, `code="HGN"`))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}
