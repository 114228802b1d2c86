// Package logging provides the shared structured logger used across the
// federator, resolver, and harvester processes.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// New returns a logrus.Logger configured with the federator's default text
// formatter. Callers attach request-scoped fields (job id, endpoint,
// service) with WithFields rather than constructing ad-hoc loggers.
func New(level string) *log.Logger {
	var logger = log.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger
}

// Discard returns a logger that drops all output, for use in tests that
// don't want to assert on log lines but must supply a logger.
func Discard() *log.Logger {
	var logger = log.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Job returns a field set identifying a federator job, to be attached to
// every log line emitted while the job is in flight.
func Job(jobID string) log.Fields {
	return log.Fields{"job": jobID}
}

// Endpoint returns a field set identifying an upstream data-center endpoint.
func Endpoint(service, url string) log.Fields {
	return log.Fields{"service": service, "endpoint": url}
}
