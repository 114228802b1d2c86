package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eida/federator/internal/arena"
	"github.com/eida/federator/internal/decompose"
)

func newArena(t *testing.T) *arena.Arena {
	t.Helper()
	root, err := arena.NewRoot(t.TempDir(), 0)
	require.NoError(t, err)
	a, err := root.Acquire()
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func testConfig() Config {
	return Config{
		MaxInFlight:       8,
		MaxPerEndpoint:    4,
		JobDeadline:       5 * time.Second,
		MaxRequestSeconds: time.Second,
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		Policy:            BestEffort,
	}
}

func TestDispatcher_AllSucceed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	a := newArena(t)
	descs := []decompose.SubRequest{
		{EndpointURL: srv.URL, Method: http.MethodGet},
		{EndpointURL: srv.URL, Method: http.MethodGet},
	}
	job := NewJob(context.Background(), "job-1", descs, a, testConfig(), srv.Client())

	res := NewDispatcher(nil).Run(job)
	assert.Len(t, res.Succeeded, 2)
	assert.Len(t, res.Failed, 0)
	assert.False(t, res.AllFailed)
	for _, sr := range res.Succeeded {
		assert.Equal(t, int64(len("payload")), sr.SpoolBytes())
	}
}

func TestDispatcher_BestEffortKeepsSuccessesOnPartialFailure(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	a := newArena(t)
	descs := []decompose.SubRequest{
		{EndpointURL: ok.URL, Method: http.MethodGet},
		{EndpointURL: bad.URL, Method: http.MethodGet},
	}
	job := NewJob(context.Background(), "job-2", descs, a, testConfig(), http.DefaultClient)

	res := NewDispatcher(nil).Run(job)
	assert.Len(t, res.Succeeded, 1)
	assert.Len(t, res.Failed, 1)
	assert.Equal(t, ClientError, res.Failed[0].State())
}

func TestDispatcher_RetriesServerErrorThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	a := newArena(t)
	descs := []decompose.SubRequest{{EndpointURL: srv.URL, Method: http.MethodGet}}
	job := NewJob(context.Background(), "job-3", descs, a, testConfig(), srv.Client())

	res := NewDispatcher(nil).Run(job)
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDispatcher_AllOrNothingCancelsSiblingsOnFailure(t *testing.T) {
	started := make(chan struct{}, 1)
	blocking := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-blocking
	}))
	defer slow.Close()
	defer close(blocking)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer bad.Close()

	a := newArena(t)
	cfg := testConfig()
	cfg.Policy = AllOrNothing
	cfg.MaxAttempts = 1
	descs := []decompose.SubRequest{
		{EndpointURL: slow.URL, Method: http.MethodGet},
		{EndpointURL: bad.URL, Method: http.MethodGet},
	}
	job := NewJob(context.Background(), "job-4", descs, a, cfg, slow.Client())

	res := NewDispatcher(nil).Run(job)
	assert.True(t, res.AllFailed)
	assert.Len(t, res.Succeeded, 0)

	require.Len(t, res.Failed, 2)
	for _, sr := range res.Failed {
		if sr.Descriptor.EndpointURL == slow.URL {
			assert.Equal(t, Cancelled, sr.State())
		}
	}
}

func TestDispatcher_QuotaAppliesBackpressureAcrossSubRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload")) // 7 bytes
	}))
	defer srv.Close()

	// Quota fits only one sub-request's bytes; nothing releases it until the
	// arena closes, so a second sub-request sharing the arena must wait for
	// quota until the job's own deadline cuts it off.
	root, err := arena.NewRoot(t.TempDir(), 7)
	require.NoError(t, err)
	a, err := root.Acquire()
	require.NoError(t, err)
	defer a.Close()

	cfg := testConfig()
	cfg.JobDeadline = 100 * time.Millisecond
	cfg.MaxRequestSeconds = 0
	cfg.MaxAttempts = 1
	cfg.MaxPerEndpoint = 1
	descs := []decompose.SubRequest{
		{EndpointURL: srv.URL, Method: http.MethodGet},
		{EndpointURL: srv.URL, Method: http.MethodGet},
	}
	job := NewJob(context.Background(), "job-quota", descs, a, cfg, srv.Client())

	res := NewDispatcher(nil).Run(job)
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, int64(len("payload")), res.Succeeded[0].SpoolBytes())
	require.Len(t, res.Failed, 1)
	assert.Equal(t, Cancelled, res.Failed[0].State())
	assert.True(t, res.TimedOut)
}

func TestDispatcher_StalledUpstreamTimesOut(t *testing.T) {
	blocking := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-blocking
	}))
	defer srv.Close()
	defer close(blocking)

	a := newArena(t)
	cfg := testConfig()
	cfg.MaxRequestSeconds = 30 * time.Millisecond
	cfg.MaxAttempts = 1
	descs := []decompose.SubRequest{{EndpointURL: srv.URL, Method: http.MethodGet}}
	job := NewJob(context.Background(), "job-5", descs, a, cfg, srv.Client())

	res := NewDispatcher(nil).Run(job)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, Timeout, res.Failed[0].State())
}
