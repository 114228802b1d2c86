package main

import (
	"net/http"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/eida/federator/internal/arena"
	"github.com/eida/federator/internal/dispatch"
	"github.com/eida/federator/internal/federator"
	"github.com/eida/federator/internal/logging"
	"github.com/eida/federator/internal/metrics"
	"github.com/eida/federator/internal/routing/pgstore"
	"github.com/eida/federator/internal/runtime"
)

// Config is the federator server's flag surface, per spec.md §6: "flags
// for bind address/port, temp directory, catalog URL, max in-flight,
// per-endpoint max, job deadline seconds, per-request timeout, retry
// attempts, backoff base, failure policy."
var Config = new(struct {
	Bind           string        `long:"bind" default:":8080" description:"HTTP bind address"`
	CatalogURL     string        `long:"catalog-url" required:"true" description:"routing catalog Postgres DSN"`
	TempDir        string        `long:"temp-dir" default:"/tmp/eida-federator" description:"temp-file arena root"`
	ArenaQuota     int64         `long:"arena-quota-bytes" default:"0" description:"soft byte quota for the arena root; 0 disables"`
	MaxInFlight    int           `long:"max-in-flight" default:"32" description:"global concurrent sub-request cap"`
	MaxPerEndpoint int           `long:"max-per-endpoint" default:"4" description:"per-endpoint concurrent sub-request cap"`
	JobDeadline    time.Duration `long:"job-deadline" default:"120s" description:"whole-job deadline"`
	RequestTimeout time.Duration `long:"request-timeout" default:"30s" description:"per sub-request timeout"`
	MaxAttempts    int           `long:"retry-attempts" default:"3" description:"retry attempts for server-error sub-requests"`
	BackoffBase    time.Duration `long:"backoff-base" default:"200ms" description:"exponential backoff base delay"`
	FailurePolicy  string        `long:"failure-policy" default:"best-effort" description:"job failure policy: best-effort or all-or-nothing"`
	CacheControl   string        `long:"cache-control" default:"no-store" description:"Cache-Control header value on federated responses"`
	LogLevel       string        `long:"log-level" default:"info" description:"logrus level"`
})

func main() {
	os.Exit(run())
}

func run() int {
	if _, err := flags.Parse(Config); err != nil {
		return runtime.ExitConfigError
	}

	logger := logging.New(Config.LogLevel)

	var policy dispatch.FailurePolicy
	switch Config.FailurePolicy {
	case "", "best-effort":
		policy = dispatch.BestEffort
	case "all-or-nothing":
		policy = dispatch.AllOrNothing
	default:
		logger.WithField("failure-policy", Config.FailurePolicy).Error("unknown failure policy")
		return runtime.ExitConfigError
	}

	ctx, cancel := runtime.SignalContext()
	defer cancel()

	store, err := pgstore.Open(ctx, Config.CatalogURL, logger)
	if err != nil {
		logger.WithError(err).Error("connecting to routing catalog")
		return runtime.ExitUpstreamError
	}
	defer store.Close()

	root, err := arena.NewRoot(Config.TempDir, Config.ArenaQuota)
	if err != nil {
		logger.WithError(err).Error("preparing temp-file arena")
		return runtime.ExitInternalError
	}
	sweeper := arena.NewSweeper(Config.TempDir, time.Hour, 10*time.Minute, logger)
	go sweeper.Run()
	defer sweeper.Stop()

	cfg := federator.Config{
		Limits: federator.DefaultConfig.Limits,
		Dispatch: dispatch.Config{
			MaxInFlight:       Config.MaxInFlight,
			MaxPerEndpoint:    Config.MaxPerEndpoint,
			JobDeadline:       Config.JobDeadline,
			MaxRequestSeconds: Config.RequestTimeout,
			MaxAttempts:       Config.MaxAttempts,
			BackoffBase:       Config.BackoffBase,
			Policy:            policy,
			RateLimitPerSec:   dispatch.DefaultConfig.RateLimitPerSec,
		},
		CacheControl: Config.CacheControl,
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	client := &http.Client{Timeout: Config.JobDeadline}
	h := federator.New(store, root, client, cfg, logger, m)
	mux := http.NewServeMux()
	h.Mux(mux)
	mux.Handle("/metrics", metrics.Handler(reg))

	srv := &http.Server{Addr: Config.Bind, Handler: mux}
	logger.WithField("bind", Config.Bind).Info("federator listening")
	if err := runtime.Serve(ctx, srv, logger); err != nil {
		logger.WithError(err).Error("federator server exited with error")
		return runtime.ExitInternalError
	}
	return runtime.ExitOK
}
