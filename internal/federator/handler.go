// Package federator wires components C1 (seedid), C4 (routing, consulted
// directly rather than over HTTP), C5 (decompose), C6 (dispatch), and C7
// (merge) into the three FDSN/EIDA-facing HTTP endpoints, per spec.md §6.
package federator

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/eida/federator/internal/apierror"
	"github.com/eida/federator/internal/arena"
	"github.com/eida/federator/internal/decompose"
	"github.com/eida/federator/internal/dispatch"
	"github.com/eida/federator/internal/logging"
	"github.com/eida/federator/internal/merge"
	"github.com/eida/federator/internal/metrics"
	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

// Config bounds one Handler's request processing, combining the
// decomposer's chunking limits with the dispatcher's concurrency/failure
// policy and the response Cache-Control header (spec.md §9's Open
// Question, resolved to a configurable default of "no-store").
type Config struct {
	Limits       decompose.Limits
	Dispatch     dispatch.Config
	CacheControl string
}

// DefaultConfig mirrors the CLI surface defaults described in spec.md §6.
var DefaultConfig = Config{
	Limits:       decompose.DefaultLimits,
	Dispatch:     dispatch.DefaultConfig,
	CacheControl: "no-store",
}

// Handler serves the three federated query endpoints over a routing.Store,
// an arena.Root, and an http.Client used to reach data centers.
type Handler struct {
	Store      routing.Store
	ArenaRoot  *arena.Root
	Client     *http.Client
	Dispatcher *dispatch.Dispatcher
	Config     Config
	Log        *log.Logger
	Metrics    *metrics.Metrics
}

// New constructs a Handler. logger may be nil, in which case logging is
// discarded. m may be nil, in which case metrics are not recorded.
func New(store routing.Store, root *arena.Root, client *http.Client, cfg Config, logger *log.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Handler{
		Store: store, ArenaRoot: root, Client: client,
		Dispatcher: dispatch.NewDispatcher(logger), Config: cfg, Log: logger, Metrics: m,
	}
}

// Mux registers the federator's three FDSN/EIDA paths on mux.
func (h *Handler) Mux(mux *http.ServeMux) {
	mux.HandleFunc("/fdsnws/station/1/query", h.serve(seedid.ServiceStation))
	mux.HandleFunc("/fdsnws/dataselect/1/query", h.serve(seedid.ServiceDataselect))
	mux.HandleFunc("/eidaws/wfcatalog/1/query", h.serve(seedid.ServiceWFCatalog))
}

func (h *Handler) serve(service seedid.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.handle(w, r, service)
	}
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, service seedid.Service) {
	epochs, opts, origWasPOST, err := parseRequest(r, service)
	if err != nil {
		apierror.WriteHTTP(w, err)
		return
	}

	selectors := make([]routing.Selector, len(epochs))
	for i, e := range epochs {
		selectors[i] = routing.Selector{
			Net: e.Net, Sta: e.Sta, Loc: e.Loc, Cha: e.Cha,
			Window: routing.Window{Start: e.Start, End: e.End},
		}
	}

	groups, err := h.Store.Resolve(r.Context(), selectors, service)
	if err != nil {
		apierror.WriteHTTP(w, apierror.Internal(err, "resolve failed"))
		return
	}
	if len(groups) == 0 {
		apierror.WriteHTTP(w, apierror.NoData("no routes matched"))
		return
	}
	routing.SortGroups(groups)

	descriptors := decompose.Decompose(groups, origWasPOST, opts, h.Config.Limits)
	if len(descriptors) == 0 {
		apierror.WriteHTTP(w, apierror.NoData("no sub-requests produced"))
		return
	}

	a, err := h.ArenaRoot.Acquire()
	if err != nil {
		apierror.WriteHTTP(w, apierror.Internal(err, "arena acquisition failed"))
		return
	}
	defer a.Close()

	job := dispatch.NewJob(r.Context(), uuid.NewString(), descriptors, a, h.Config.Dispatch, h.Client)
	defer job.Cancel()

	start := time.Now()
	result := h.Dispatcher.Run(job)
	h.recordJobMetrics(result, time.Since(start))

	if len(result.Succeeded) == 0 {
		if result.TimedOut {
			apierror.WriteHTTP(w, apierror.Timeout("job deadline exceeded"))
			return
		}
		apierror.WriteHTTP(w, apierror.Upstream(nil, "all sub-requests failed"))
		return
	}
	if h.Config.Dispatch.Policy == dispatch.AllOrNothing && len(result.Failed) > 0 {
		if result.TimedOut {
			apierror.WriteHTTP(w, apierror.Timeout("job deadline exceeded"))
			return
		}
		apierror.WriteHTTP(w, apierror.Upstream(nil, "all-or-nothing job had a failing sub-request"))
		return
	}

	if len(result.Failed) > 0 {
		w.Header().Set("X-Federator-Errors", diagnosticHeader(result.Failed))
	}
	w.Header().Set("Cache-Control", h.Config.CacheControl)
	w.Header().Set("Content-Type", contentTypeFor(service, opts))
	w.WriteHeader(http.StatusOK)

	paths := make([]string, 0, len(result.Succeeded))
	for _, sr := range result.Succeeded {
		if p := sr.SpoolPath(); p != "" { // a 204 part has no spool file
			paths = append(paths, p)
		}
	}

	strategy := merge.StrategyFor(service, opts["format"])
	if len(paths) == 1 {
		// A single part is already a complete response body: pass it through.
		strategy = merge.StrategyRaw
	}
	switch strategy {
	case merge.StrategyStationXML:
		if err := merge.StationXML(w, paths); err != nil {
			h.Log.WithError(err).Warn("federator: stationxml merge failed mid-response")
		}
	case merge.StrategyJSONArray:
		if err := merge.JSONArrays(w, paths); err != nil {
			h.Log.WithError(err).Warn("federator: json merge failed mid-response")
		}
	case merge.StrategyTextHeaderOnce:
		if err := merge.TextHeaderOnce(w, paths); err != nil {
			h.Log.WithError(err).Warn("federator: text merge failed mid-response")
		}
	default:
		if _, err := merge.RawConcat(w, paths); err != nil {
			h.Log.WithError(err).Warn("federator: raw merge failed mid-response")
		}
	}
}

func parseRequest(r *http.Request, service seedid.Service) (seedid.StreamEpochList, seedid.Options, bool, error) {
	if r.Method == http.MethodPost {
		epochs, opts, err := seedid.ParsePOST(service, r.Body)
		return epochs, opts, true, err
	}
	epochs, opts, err := seedid.ParseGET(service, r.URL.Query())
	return epochs, opts, false, err
}

func diagnosticHeader(failed []*dispatch.SubRequest) string {
	parts := make([]string, len(failed))
	for i, sr := range failed {
		parts[i] = fmt.Sprintf("%s=%s", hostOf(sr.Descriptor.EndpointURL), stateLabel(sr))
	}
	return strings.Join(parts, ",")
}

func stateLabel(sr *dispatch.SubRequest) string {
	switch sr.State() {
	case dispatch.ServerError:
		return "5xx"
	case dispatch.ClientError:
		return "4xx"
	case dispatch.Timeout:
		return "timeout"
	case dispatch.Cancelled:
		return "cancelled"
	default:
		return "error"
	}
}

func (h *Handler) recordJobMetrics(result *dispatch.Result, elapsed time.Duration) {
	if h.Metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case result.TimedOut:
		outcome = "timeout"
	case result.AllFailed:
		outcome = "upstream_error"
	case len(result.Failed) > 0:
		outcome = "partial"
	}
	h.Metrics.JobsTotal.WithLabelValues(outcome).Inc()
	h.Metrics.JobDuration.Observe(elapsed.Seconds())
	for range result.Succeeded {
		h.Metrics.SubRequestsTotal.WithLabelValues("ok").Inc()
	}
	for _, sr := range result.Failed {
		h.Metrics.SubRequestsTotal.WithLabelValues(stateLabel(sr)).Inc()
	}
	h.Metrics.ArenaBytesInUse.Set(float64(h.ArenaRoot.InUseBytes()))
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

func contentTypeFor(service seedid.Service, opts seedid.Options) string {
	switch service {
	case seedid.ServiceDataselect:
		return "application/vnd.fdsn.mseed"
	case seedid.ServiceWFCatalog:
		return "application/json"
	case seedid.ServiceStation:
		if opts["format"] == "text" {
			return "text/plain; charset=utf-8"
		}
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
