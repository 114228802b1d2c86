// Package runtime provides the process-lifecycle glue shared by the three
// command binaries: signal-driven shutdown and the exit-code convention
// described in spec.md §6.
package runtime

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// Exit codes returned by the command binaries' main functions.
const (
	ExitOK            = 0
	ExitConfigError   = 1
	ExitUpstreamError = 2
	ExitInternalError = 3
)

// ShutdownGrace bounds how long Serve waits for in-flight requests to
// finish once a termination signal arrives.
const ShutdownGrace = 10 * time.Second

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Serve runs srv until ctx is cancelled, then gracefully shuts it down
// within ShutdownGrace. Returns nil on a clean shutdown, or the error
// http.Server.ListenAndServe reported if it exited on its own.
func Serve(ctx context.Context, srv *http.Server, logger *log.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining in-flight requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
