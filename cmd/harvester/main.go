package main

import (
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eida/federator/internal/harvest"
	"github.com/eida/federator/internal/logging"
	"github.com/eida/federator/internal/metrics"
	"github.com/eida/federator/internal/routing/pgstore"
	"github.com/eida/federator/internal/runtime"
)

// Config is the harvester's flag surface, per spec.md §6: "positional
// catalog URL, flag for routing-config sources, optional per-center
// filter, retry/backoff flags."
var Config = new(struct {
	Sources      []string      `long:"source" required:"true" description:"data center as id=routing-config-url, repeatable"`
	Filter       []string      `long:"filter" description:"restrict the run to these data center ids, repeatable; default is all sources"`
	RetryAttempts int          `long:"retry-attempts" default:"5" description:"fetch retry attempts per data center"`
	BackoffBase  time.Duration `long:"backoff-base" default:"500ms" description:"exponential backoff base delay"`
	TotalDeadline time.Duration `long:"total-deadline" default:"2m" description:"per-fetch total retry deadline"`
	LogLevel     string        `long:"log-level" default:"info" description:"logrus level"`

	Positional struct {
		CatalogURL string `positional-arg-name:"catalog-url" required:"true" description:"routing catalog Postgres DSN"`
	} `positional-args:"true"`
})

func main() {
	os.Exit(run())
}

func run() int {
	if _, err := flags.Parse(Config); err != nil {
		return runtime.ExitConfigError
	}

	logger := logging.New(Config.LogLevel)

	centers, err := parseSources(Config.Sources, Config.Filter)
	if err != nil {
		logger.WithError(err).Error("parsing data center sources")
		return runtime.ExitConfigError
	}

	ctx, cancel := runtime.SignalContext()
	defer cancel()

	store, err := pgstore.Open(ctx, Config.Positional.CatalogURL, logger)
	if err != nil {
		logger.WithError(err).Error("connecting to routing catalog")
		return runtime.ExitUpstreamError
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	h := harvest.New(store, logger)
	h.Metrics = m
	h.Retry = harvest.RetryPolicy{
		MaxAttempts:   Config.RetryAttempts,
		BaseDelay:     Config.BackoffBase,
		TotalDeadline: Config.TotalDeadline,
	}

	if err := h.Run(ctx, centers); err != nil {
		logger.WithError(err).Error("harvest run completed with failures")
		return runtime.ExitUpstreamError
	}
	return runtime.ExitOK
}

func parseSources(sources, filter []string) ([]harvest.DataCenter, error) {
	allow := make(map[string]bool, len(filter))
	for _, id := range filter {
		allow[id] = true
	}

	var centers []harvest.DataCenter
	for _, src := range sources {
		id, url, ok := strings.Cut(src, "=")
		if !ok {
			return nil, errInvalidSource(src)
		}
		if len(allow) > 0 && !allow[id] {
			continue
		}
		centers = append(centers, harvest.DataCenter{ID: id, RoutingConfigURL: url})
	}
	return centers, nil
}

type errInvalidSource string

func (e errInvalidSource) Error() string {
	return "invalid source " + string(e) + ": expected id=routing-config-url"
}
