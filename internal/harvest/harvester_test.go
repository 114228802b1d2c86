package harvest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eida/federator/internal/logging"
	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

// fakeStore is an in-memory routing.Store used to assert what the
// harvester would have written, without standing up Postgres.
type fakeStore struct {
	batches map[string][]routing.Row
}

func newFakeStore() *fakeStore { return &fakeStore{batches: map[string][]routing.Row{}} }

func (f *fakeStore) Resolve(ctx context.Context, selectors []routing.Selector, service seedid.Service) ([]routing.Group, error) {
	return nil, nil
}

func (f *fakeStore) UpsertBatch(ctx context.Context, dataCenterID string, rows []routing.Row, policy routing.UpsertPolicy, harvestedAt time.Time) error {
	f.batches[dataCenterID] = rows
	return nil
}

const stationXML = `<FDSNStationXML><Network code="CH"><Station code="AAA" startDate="2000-01-01T00:00:00">
<Channel code="HHZ" locationCode="" startDate="2000-01-01T00:00:00"/>
</Station></Network></FDSNStationXML>`

func TestHarvester_HarvestOne(t *testing.T) {
	station := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stationXML))
	}))
	defer station.Close()

	routingXML := `<routing><route networkCode="CH" stationCode="AAA" locationCode="*" streamCode="HHZ">
	  <station address="` + station.URL + `" start="2000-01-01T00:00:00"/>
	  <dataselect address="http://eth.example/fdsnws/dataselect/1/query" start="2000-01-01T00:00:00"/>
	</route></routing>`

	config := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(routingXML))
	}))
	defer config.Close()

	store := newFakeStore()
	h := New(store, logging.Discard())
	h.Retry = RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, TotalDeadline: time.Second}

	err := h.Run(context.Background(), []DataCenter{{ID: "ETH", RoutingConfigURL: config.URL}})
	require.NoError(t, err)

	// One row per routed service for the one channel: station, then dataselect.
	rows := store.batches["ETH"]
	require.Len(t, rows, 2)
	assert.Equal(t, "CH", rows[0].Net)
	assert.Equal(t, "AAA", rows[0].Sta)
	assert.Equal(t, seedid.ServiceStation, rows[0].Service)
	assert.Equal(t, station.URL, rows[0].EndpointURL)
	assert.Equal(t, seedid.ServiceDataselect, rows[1].Service)
	assert.Equal(t, "http://eth.example/fdsnws/dataselect/1/query", rows[1].EndpointURL)
}

func TestHarvester_OneCenterFailureDoesNotAffectOthers(t *testing.T) {
	station := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stationXML))
	}))
	defer station.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<routing><route networkCode="CH" stationCode="AAA" locationCode="*" streamCode="HHZ">
		  <station address="` + station.URL + `" start="2000-01-01T00:00:00"/>
		  <dataselect address="http://eth.example/fdsnws/dataselect/1/query" start="2000-01-01T00:00:00"/>
		</route></routing>`))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	store := newFakeStore()
	h := New(store, logging.Discard())
	h.Retry = RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, TotalDeadline: time.Second}

	err := h.Run(context.Background(), []DataCenter{
		{ID: "BAD", RoutingConfigURL: bad.URL},
		{ID: "GOOD", RoutingConfigURL: good.URL},
	})
	assert.Error(t, err)
	assert.Len(t, store.batches["GOOD"], 2) // station and dataselect rows
	assert.NotContains(t, store.batches, "BAD")
}
