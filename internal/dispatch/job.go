package dispatch

import (
	"context"
	"net/http"
	"time"

	"github.com/eida/federator/internal/arena"
	"github.com/eida/federator/internal/decompose"
)

// FailurePolicy selects one of the two job-level failure modes named in
// spec.md §4.6.
type FailurePolicy int

const (
	// BestEffort folds all terminal errors except "no sub-request
	// succeeded" into a 200 response carrying only the successful parts.
	BestEffort FailurePolicy = iota
	// AllOrNothing cancels remaining sub-requests on the first terminal
	// failure and fails the whole job.
	AllOrNothing
)

// Config bounds one job's concurrency and timeouts, per spec.md §4.6 and §5.
type Config struct {
	MaxInFlight      int           // global cap across all endpoints
	MaxPerEndpoint   int           // per-endpoint cap
	JobDeadline      time.Duration // whole-job deadline
	MaxRequestSeconds time.Duration // per spec.md §5: min(remaining job deadline, max_request_seconds)
	MaxAttempts      int           // retry cap for server-error sub-requests
	BackoffBase      time.Duration
	Policy           FailurePolicy
	RateLimitPerSec  float64 // per-endpoint requests/sec; 0 disables limiting
}

// DefaultConfig mirrors the CLI surface defaults described in spec.md §6.
var DefaultConfig = Config{
	MaxInFlight:        32,
	MaxPerEndpoint:     4,
	JobDeadline:        120 * time.Second,
	MaxRequestSeconds:  30 * time.Second,
	MaxAttempts:        3,
	BackoffBase:        200 * time.Millisecond,
	Policy:             BestEffort,
	RateLimitPerSec:    10,
}

// Job is one federated client request: the implicit job record of spec.md
// §3, owning a temp-file arena and a set of sub-request descriptors.
type Job struct {
	ID          string
	Config      Config
	SubRequests []*SubRequest
	Arena       *arena.Arena
	Client      *http.Client

	ctx    context.Context
	cancel context.CancelFunc
}

// NewJob constructs a Job from decomposed sub-requests, deriving a
// cancellable, deadline-bound context from parent.
func NewJob(parent context.Context, id string, descriptors []decompose.SubRequest, a *arena.Arena, cfg Config, client *http.Client) *Job {
	ctx, cancel := context.WithTimeout(parent, cfg.JobDeadline)

	subs := make([]*SubRequest, len(descriptors))
	for i, d := range descriptors {
		subs[i] = newSubRequest(d)
	}

	return &Job{
		ID: id, Config: cfg, SubRequests: subs, Arena: a, Client: client,
		ctx: ctx, cancel: cancel,
	}
}

// Cancel cancels the job's context, propagating to every in-flight worker
// at its next I/O boundary, per spec.md §4.6's cancellation semantics.
func (j *Job) Cancel() { j.cancel() }

// Done returns the job's cancellation/deadline channel.
func (j *Job) Done() <-chan struct{} { return j.ctx.Done() }

// Result summarizes a completed job for the HTTP handler to translate into
// a response, per spec.md §7's error-propagation policy.
type Result struct {
	Succeeded []*SubRequest
	Failed    []*SubRequest // terminal, non-OK
	AllFailed bool
	TimedOut  bool
}
