package main

import (
	"net/http"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eida/federator/internal/logging"
	"github.com/eida/federator/internal/metrics"
	"github.com/eida/federator/internal/resolver"
	"github.com/eida/federator/internal/routing/pgstore"
	"github.com/eida/federator/internal/runtime"
)

// Config is the resolver server's flag surface, per spec.md §6: "flags for
// bind, catalog URL."
var Config = new(struct {
	Bind       string `long:"bind" default:":8081" description:"HTTP bind address"`
	CatalogURL string `long:"catalog-url" required:"true" description:"routing catalog Postgres DSN"`
	LogLevel   string `long:"log-level" default:"info" description:"logrus level"`
})

func main() {
	os.Exit(run())
}

func run() int {
	if _, err := flags.Parse(Config); err != nil {
		return runtime.ExitConfigError
	}

	logger := logging.New(Config.LogLevel)

	ctx, cancel := runtime.SignalContext()
	defer cancel()

	store, err := pgstore.Open(ctx, Config.CatalogURL, logger)
	if err != nil {
		logger.WithError(err).Error("connecting to routing catalog")
		return runtime.ExitUpstreamError
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/eidaws/routing/1/query", resolver.New(store, logger, m))
	mux.Handle("/metrics", metrics.Handler(reg))

	srv := &http.Server{Addr: Config.Bind, Handler: mux}
	logger.WithField("bind", Config.Bind).Info("resolver listening")
	if err := runtime.Serve(ctx, srv, logger); err != nil {
		logger.WithError(err).Error("resolver server exited with error")
		return runtime.ExitInternalError
	}
	return runtime.ExitOK
}
