package dispatch

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/eida/federator/internal/arena"
)

// errStalled is returned by spoolResponse when no bytes were read for a
// full idle window, distinct from ctx's own deadline expiring.
var errStalled = errors.New("upstream stalled: no data received within idle window")

// spoolResponse copies src to dst in fixed chunks, resetting an idle timer
// on every read that returns bytes. Before each write it reserves the
// chunk's bytes against a's quota, so a tight arena-wide byte budget
// applies backpressure chunk-by-chunk (spec.md §5's "chunk write to spool,
// quota wait" suspension point) rather than only at sub-request admission.
// It returns errStalled if idleTimeout elapses with no progress (an
// idleTimeout of zero or less sets no idle limit), or
// ctx.Err() if ctx is done first (including while waiting on quota).
// Mirrors the teacher's chunk-pump/ticker idiom (broker/append_fsm.go) in
// preference to a buffered io.Copy, since a stuck upstream must be detected
// mid-transfer rather than only at the end of a fixed overall timeout.
func spoolResponse(ctx context.Context, a *arena.Arena, dst io.Writer, src io.Reader, idleTimeout time.Duration) (int64, error) {
	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)

	type readResult struct {
		n   int
		err error
	}

	var total int64
	reads := make(chan readResult, 1)

	for {
		go func() {
			n, err := src.Read(buf)
			reads <- readResult{n, err}
		}()

		timer := time.NewTimer(idleTimeout)
		idle := timer.C
		if idleTimeout <= 0 {
			timer.Stop()
			idle = nil // no idle limit
		}
		select {
		case <-ctx.Done():
			timer.Stop()
			return total, ctx.Err()
		case <-idle:
			return total, errStalled
		case res := <-reads:
			timer.Stop()
			if res.n > 0 {
				if qerr := a.ReserveQuota(ctx, int64(res.n)); qerr != nil {
					return total, qerr
				}
				if _, werr := dst.Write(buf[:res.n]); werr != nil {
					return total, errors.Wrap(werr, "writing spool file")
				}
				total += int64(res.n)
			}
			if res.err != nil {
				if res.err == io.EOF {
					return total, nil
				}
				return total, errors.Wrap(res.err, "reading upstream response body")
			}
		}
	}
}
