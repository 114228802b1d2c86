package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

type stubStore struct {
	groups []routing.Group
	err    error
}

func (s *stubStore) Resolve(ctx context.Context, selectors []routing.Selector, service seedid.Service) ([]routing.Group, error) {
	return s.groups, s.err
}

func (s *stubStore) UpsertBatch(ctx context.Context, dataCenterID string, rows []routing.Row, policy routing.UpsertPolicy, harvestedAt time.Time) error {
	return nil
}

func TestServer_NoRoutesReturnsNoContent(t *testing.T) {
	srv := New(&stubStore{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/eidaws/routing/1/query?net=NL&sta=HGN&cha=HHZ", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_PostFormatDefault(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	groups := []routing.Group{{
		URL: "http://dc1.example.org/fdsnws/dataselect/1/query",
		Epochs: seedid.StreamEpochList{
			{Net: "NL", Sta: "HGN", Loc: "", Cha: "HHZ", Start: start, End: seedid.FarFuture},
		},
	}}
	srv := New(&stubStore{groups: groups}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/eidaws/routing/1/query?net=NL&sta=HGN&cha=HHZ", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http://dc1.example.org/fdsnws/dataselect/1/query")
}

func TestServer_UnknownFormatRejected(t *testing.T) {
	srv := New(&stubStore{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/eidaws/routing/1/query?format=xml", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_InternalErrorOnStoreFailure(t *testing.T) {
	srv := New(&stubStore{err: assertError{}}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/eidaws/routing/1/query?net=NL", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type assertError struct{}

func (assertError) Error() string { return "store failure" }
