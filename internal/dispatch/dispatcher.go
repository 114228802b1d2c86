package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/eida/federator/internal/logging"
)

// Dispatcher issues a Job's sub-requests with bounded global and
// per-endpoint concurrency, per-endpoint rate limiting, retry-on-5xx, and
// cooperative cancellation, per spec.md §4.6.
type Dispatcher struct {
	Log *log.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDispatcher constructs a Dispatcher. logger may be nil, in which case
// logging is discarded.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{Log: logger, limiters: make(map[string]*rate.Limiter)}
}

func (d *Dispatcher) limiterFor(endpoint string, perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[endpoint]
	if !ok {
		l = rate.NewLimiter(rate.Limit(perSec), 1)
		d.limiters[endpoint] = l
	}
	return l
}

// Run executes every sub-request in job, respecting job.Config's
// concurrency caps and failure policy, and returns once every sub-request
// has reached a terminal state or the job has been cancelled.
func (d *Dispatcher) Run(job *Job) *Result {
	global := make(chan struct{}, maxOrOne(job.Config.MaxInFlight))

	perEndpoint := make(map[string]chan struct{})
	for _, sr := range job.SubRequests {
		u := sr.Descriptor.EndpointURL
		if _, ok := perEndpoint[u]; !ok {
			perEndpoint[u] = make(chan struct{}, maxOrOne(job.Config.MaxPerEndpoint))
		}
	}

	g, ctx := errgroup.WithContext(job.ctx)
	var tripped bool
	var trippedMu sync.Mutex

	for i, sr := range job.SubRequests {
		i, sr := i, sr
		endpointSem := perEndpoint[sr.Descriptor.EndpointURL]
		limiter := d.limiterFor(sr.Descriptor.EndpointURL, job.Config.RateLimitPerSec)

		g.Go(func() error {
			select {
			case global <- struct{}{}:
			case <-ctx.Done():
				sr.fail(Cancelled, ctx.Err())
				return nil
			}
			defer func() { <-global }()

			select {
			case endpointSem <- struct{}{}:
			case <-ctx.Done():
				sr.fail(Cancelled, ctx.Err())
				return nil
			}
			defer func() { <-endpointSem }()

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					sr.fail(Cancelled, err)
					return nil
				}
			}

			d.runWithRetry(ctx, job, sr, i)

			if job.Config.Policy == AllOrNothing && sr.State() != OK {
				trippedMu.Lock()
				already := tripped
				tripped = true
				trippedMu.Unlock()
				if !already {
					job.Cancel()
				}
			}
			return nil
		})
	}

	_ = g.Wait()

	return summarize(job)
}

func maxOrOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// runWithRetry drives one sub-request through up to Config.MaxAttempts
// attempts, retrying only on ServerError, with exponential backoff from
// Config.BackoffBase.
func (d *Dispatcher) runWithRetry(ctx context.Context, job *Job, sr *SubRequest, index int) {
	maxAttempts := job.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sr.mu.Lock()
		sr.attempts = attempt
		sr.state = InFlight
		sr.mu.Unlock()

		state, err := d.attemptOnce(ctx, job, sr, index)
		if state == OK {
			return
		}
		if state == ServerError && attempt < maxAttempts {
			d.Log.WithFields(log.Fields{"endpoint": sr.Descriptor.EndpointURL, "attempt": attempt}).
				Warn("sub-request failed, retrying")
			select {
			case <-time.After(job.Config.BackoffBase * time.Duration(1<<uint(attempt-1))):
			case <-ctx.Done():
				sr.fail(Cancelled, ctx.Err())
				return
			}
			continue
		}
		if state == ServerError {
			// retries exhausted: ServerError is the terminal state here,
			// distinct from the always-terminal states in State.IsTerminal.
			sr.fail(ServerError, err)
			return
		}
		sr.fail(state, err)
		return
	}
}

// attemptOnce issues sr's request once, spooling the response body into
// the job's arena, and classifies the outcome into a dispatch State.
func (d *Dispatcher) attemptOnce(ctx context.Context, job *Job, sr *SubRequest, index int) (State, error) {
	reqCtx := ctx
	if job.Config.MaxRequestSeconds > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, job.Config.MaxRequestSeconds)
		defer cancel()
	}

	desc := sr.Descriptor
	var body io.Reader
	if desc.Method == http.MethodPost {
		body = strings.NewReader(desc.Body)
	}

	url := desc.EndpointURL
	if desc.Method == http.MethodGet && desc.Query != "" {
		url = url + "?" + desc.Query
	}

	req, err := http.NewRequestWithContext(reqCtx, desc.Method, url, body)
	if err != nil {
		return ClientError, err
	}
	if desc.Method == http.MethodPost {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := job.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Cancelled, ctx.Err()
		}
		if reqCtx.Err() != nil {
			return Timeout, err
		}
		return ServerError, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		sr.succeed(0, "")
		return OK, nil
	}
	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return ServerError, fmt.Errorf("upstream %s: status %d", desc.EndpointURL, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return ClientError, fmt.Errorf("upstream %s: status %d", desc.EndpointURL, resp.StatusCode)
	}

	name := fmt.Sprintf("sub-%d", index)
	f, err := job.Arena.NewSpoolFile(name)
	if err != nil {
		return ServerError, err
	}
	defer f.Close()

	n, err := spoolResponse(reqCtx, job.Arena, f, resp.Body, job.Config.MaxRequestSeconds)
	if err != nil {
		if ctx.Err() != nil {
			return Cancelled, ctx.Err()
		}
		if reqCtx.Err() != nil || err == errStalled {
			return Timeout, err
		}
		return ServerError, err
	}

	sr.succeed(n, filepath.Join(job.Arena.Dir(), name))
	return OK, nil
}

func summarize(job *Job) *Result {
	res := &Result{}
	for _, sr := range job.SubRequests {
		if sr.State() == OK {
			res.Succeeded = append(res.Succeeded, sr)
		} else {
			res.Failed = append(res.Failed, sr)
		}
	}
	res.AllFailed = len(res.Succeeded) == 0 && len(job.SubRequests) > 0
	res.TimedOut = job.ctx.Err() == context.DeadlineExceeded
	return res
}
