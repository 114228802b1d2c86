// Package resolver implements the routing resolver HTTP service (spec.md
// §4.4, component C4): a thin net/http handler wrapping routing.Store's
// Resolve, with no framework in between, per the Design Note in spec.md §9.
package resolver

import (
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/eida/federator/internal/apierror"
	"github.com/eida/federator/internal/logging"
	"github.com/eida/federator/internal/metrics"
	"github.com/eida/federator/internal/resolver/format"
	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

// Server serves /eidaws/routing/1/query over a routing.Store.
type Server struct {
	Store   routing.Store
	Log     *log.Logger
	Metrics *metrics.Metrics
}

// New constructs a Server. logger may be nil, in which case logging is
// discarded. m may be nil, in which case metrics are not recorded.
func New(store routing.Store, logger *log.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{Store: store, Log: logger, Metrics: m}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apierror.WriteHTTP(w, apierror.Invalid("method %s not allowed", r.Method))
		return
	}

	q := r.URL.Query()
	service := seedid.Service(q.Get("service"))
	if service == "" {
		service = seedid.ServiceDataselect
	}

	fmtName, ok := format.Parse(q.Get("format"))
	if !ok {
		apierror.WriteHTTP(w, apierror.Invalid("unknown format %q", q.Get("format")))
		return
	}

	// service and format are the resolver's own parameters, not selector
	// fields or service options, so ParseGET does not see them.
	sel := url.Values{}
	for k, v := range q {
		if k != "service" && k != "format" {
			sel[k] = v
		}
	}
	epochs, _, err := seedid.ParseGET(service, sel)
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

	started := time.Now()
	groups, err := s.Store.Resolve(r.Context(), selectors, service)
	elapsed := time.Since(started)
	if s.Metrics != nil {
		s.Metrics.ResolveDuration.Observe(elapsed.Seconds())
	}
	s.Log.WithFields(log.Fields{
		"service":  service,
		"duration": elapsed,
		"groups":   len(groups),
	}).Debug("resolve")
	if err != nil {
		apierror.WriteHTTP(w, apierror.Internal(err, "resolve failed"))
		return
	}
	if len(groups) == 0 {
		apierror.WriteHTTP(w, apierror.NoData("no routes matched"))
		return
	}
	routing.SortGroups(groups)

	switch fmtName {
	case format.GET:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		err = format.WriteGET(w, groups)
	case format.JSON:
		w.Header().Set("Content-Type", "application/json")
		err = format.WriteJSON(w, groups)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		err = format.WritePOST(w, groups)
	}
	if err != nil {
		s.Log.WithError(err).Warn("resolve: writing response failed")
	}
}
