package stationxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_SameNetworkDisjointStations(t *testing.T) {
	a, err := Parse([]byte(`<FDSNStationXML><Network code="CH"><Station code="AAA" startDate="2020"/></Network></FDSNStationXML>`))
	require.NoError(t, err)
	b, err := Parse([]byte(`<FDSNStationXML><Network code="CH"><Station code="BBB" startDate="2020"/></Network></FDSNStationXML>`))
	require.NoError(t, err)

	merged := Merge([]*Document{a, b})
	require.Len(t, merged.Networks, 1)
	assert.Equal(t, "CH", merged.Networks[0].Code)
	require.Len(t, merged.Networks[0].Stations, 2)
}

func TestMerge_SameStationMergesChannels(t *testing.T) {
	a, err := Parse([]byte(`<FDSNStationXML><Network code="CH"><Station code="AAA" startDate="2020"><Channel code="HHZ" locationCode=""/></Station></Network></FDSNStationXML>`))
	require.NoError(t, err)
	b, err := Parse([]byte(`<FDSNStationXML><Network code="CH"><Station code="AAA" startDate="2020"><Channel code="HHN" locationCode=""/></Station></Network></FDSNStationXML>`))
	require.NoError(t, err)

	merged := Merge([]*Document{a, b})
	require.Len(t, merged.Networks, 1)
	require.Len(t, merged.Networks[0].Stations, 1)
	assert.Len(t, merged.Networks[0].Stations[0].Channels, 2)
}

func TestMerge_DuplicateChannelNotDuplicated(t *testing.T) {
	doc, err := Parse([]byte(`<FDSNStationXML><Network code="CH"><Station code="AAA" startDate="2020"><Channel code="HHZ" locationCode=""/></Station></Network></FDSNStationXML>`))
	require.NoError(t, err)

	merged := Merge([]*Document{doc, doc})
	assert.Len(t, merged.Networks[0].Stations[0].Channels, 1)
}
