// Package dispatch implements the concurrent dispatcher and spooler
// (spec.md §4.6, component C6): issuing sub-requests with bounded
// parallelism, per-request and whole-job deadlines, and a retry policy,
// spooling each response body to the job's temp-file arena.
package dispatch

import (
	"sync"

	"github.com/eida/federator/internal/decompose"
)

// State is one of the sub-request lifecycle states enumerated in
// spec.md §4.6.
type State int

const (
	Pending State = iota
	InFlight
	OK
	ClientError
	ServerError
	Timeout
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case InFlight:
		return "in-flight"
	case OK:
		return "ok"
	case ClientError:
		return "client-error"
	case ServerError:
		return "server-error"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s is one of the always-terminal states a
// sub-request cannot leave (OK, ClientError, Timeout, Cancelled). It returns
// false for ServerError, which is retried and becomes terminal only once the
// dispatcher has used up its attempts (tracked in the sub-request's attempt
// counter).
func (s State) IsTerminal() bool {
	switch s {
	case OK, ClientError, Timeout, Cancelled:
		return true
	default:
		return false
	}
}

// SubRequest tracks one sub-request's runtime state, guarded by mu since
// the dispatcher's status-reporting (diagnostic headers) may read it
// concurrently with the worker goroutine mutating it.
type SubRequest struct {
	Descriptor decompose.SubRequest

	mu        sync.Mutex
	state     State
	attempts  int
	spoolLen  int64
	spoolPath string
	err       error
}

func newSubRequest(d decompose.SubRequest) *SubRequest {
	return &SubRequest{Descriptor: d, state: Pending}
}

// State returns the current lifecycle state.
func (r *SubRequest) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the terminal error, if any.
func (r *SubRequest) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// SpoolBytes returns the number of bytes written to the spool file.
func (r *SubRequest) SpoolBytes() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spoolLen
}

// SpoolPath returns the absolute path of the spool file holding this
// sub-request's response body, valid once State() is OK. It is empty for a
// part that succeeded with 204 No Content, which has no spool file.
func (r *SubRequest) SpoolPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spoolPath
}

func (r *SubRequest) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *SubRequest) fail(s State, err error) {
	r.mu.Lock()
	r.state = s
	r.err = err
	r.mu.Unlock()
}

func (r *SubRequest) succeed(spoolLen int64, spoolPath string) {
	r.mu.Lock()
	r.state = OK
	r.spoolLen = spoolLen
	r.spoolPath = spoolPath
	r.mu.Unlock()
}
