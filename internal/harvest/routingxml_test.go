package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRoutingXML = `<routing>
  <route networkCode="CH" stationCode="AAA" locationCode="*" streamCode="HHZ">
    <station address="http://eth.example/fdsnws/station/1/query" start="2000-01-01T00:00:00"/>
    <dataselect address="http://eth.example/fdsnws/dataselect/1/query" start="2000-01-01T00:00:00"/>
  </route>
</routing>`

func TestParseRoutingXML_Valid(t *testing.T) {
	doc, err := parseRoutingXML([]byte(validRoutingXML))
	require.NoError(t, err)
	require.Len(t, doc.Routes, 1)
	assert.Equal(t, "CH", doc.Routes[0].Net)
	require.Len(t, doc.Routes[0].Services, 2)
}

func TestParseRoutingXML_EndBeforeStartRejected(t *testing.T) {
	xml := `<routing>
	  <route networkCode="CH" stationCode="AAA" locationCode="*" streamCode="HHZ">
	    <dataselect address="http://eth.example" start="2020-01-01T00:00:00" end="2019-01-01T00:00:00"/>
	  </route>
	</routing>`
	_, err := parseRoutingXML([]byte(xml))
	assert.Error(t, err)
}

func TestParseRoutingXML_DuplicateRouteRejected(t *testing.T) {
	xml := `<routing>
	  <route networkCode="CH" stationCode="AAA" locationCode="*" streamCode="HHZ">
	    <dataselect address="http://a.example" start="2020-01-01T00:00:00"/>
	    <dataselect address="http://b.example" start="2020-01-01T00:00:00"/>
	  </route>
	</routing>`
	_, err := parseRoutingXML([]byte(xml))
	assert.Error(t, err)
}

func TestParseRoutingXML_Malformed(t *testing.T) {
	_, err := parseRoutingXML([]byte("<routing><route></routing"))
	assert.Error(t, err)
}
