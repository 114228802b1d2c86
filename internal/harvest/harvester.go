// Package harvest implements the harvester (spec.md §4.3, component C3):
// periodically refreshing the routing catalog from each data center's
// eidaws-routing configuration and fdsnws-station inventory.
package harvest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/eida/federator/internal/metrics"
	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
	"github.com/eida/federator/internal/stationxml"
)

// DataCenter names one upstream EIDA node to harvest, per spec.md §5's
// supplemented data-center registry.
type DataCenter struct {
	ID               string
	RoutingConfigURL string
}

// Harvester fetches routing configuration and station inventories from a
// set of data centers and upserts normalized rows into a routing.Store.
type Harvester struct {
	Store   routing.Store
	Client  *http.Client
	Retry   RetryPolicy
	Log     *log.Logger
	Metrics *metrics.Metrics
}

// New constructs a Harvester with sane defaults.
func New(store routing.Store, logger *log.Logger) *Harvester {
	return &Harvester{
		Store:  store,
		Client: &http.Client{Timeout: 30 * time.Second},
		Retry:  DefaultRetryPolicy,
		Log:    logger,
	}
}

// Run harvests every data center independently. Per spec.md §4.3, "a
// failure fetching one data center leaves prior state for that center
// intact; other centers proceed independently" — errors are logged and
// collected, never causing a different center's harvest to abort.
func (h *Harvester) Run(ctx context.Context, centers []DataCenter) error {
	var failed []string
	for _, dc := range centers {
		rows, err := h.harvestOne(ctx, dc)
		if err != nil {
			h.Log.WithFields(log.Fields{"data_center": dc.ID, "error": err}).
				Error("harvest failed, prior catalog state for this center retained")
			failed = append(failed, dc.ID)
			h.recordHarvestMetrics(dc.ID, "error", 0)
			continue
		}
		h.Log.WithField("data_center", dc.ID).Info("harvest complete")
		h.recordHarvestMetrics(dc.ID, "ok", rows)
	}
	if len(failed) > 0 {
		return fmt.Errorf("harvest failed for data centers: %v", failed)
	}
	return nil
}

func (h *Harvester) harvestOne(ctx context.Context, dc DataCenter) (int, error) {
	var doc *routingDocument
	err := Do(ctx, h.Retry, func(ctx context.Context) error {
		data, err := h.fetch(ctx, dc.RoutingConfigURL)
		if err != nil {
			return err
		}
		doc, err = parseRoutingXML(data)
		return err
	})
	if err != nil {
		return 0, errors.Wrapf(err, "fetching routing config for %s", dc.ID)
	}

	rows, err := h.enumerateChannels(ctx, doc)
	if err != nil {
		return 0, errors.Wrapf(err, "enumerating channels for %s", dc.ID)
	}

	now := time.Now().UTC()
	if err := h.Store.UpsertBatch(ctx, dc.ID, rows, routing.EndDateMissing, now); err != nil {
		return 0, errors.Wrapf(err, "upserting batch for %s", dc.ID)
	}
	return len(rows), nil
}

func (h *Harvester) recordHarvestMetrics(dataCenterID, outcome string, rows int) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.HarvestRunsTotal.WithLabelValues(dataCenterID, outcome).Inc()
	h.Metrics.HarvestRowsTotal.Add(float64(rows))
}

// enumerateChannels implements spec.md §4.3 step 2: for each routed station
// pattern, fetch fdsnws-station level=channel to enumerate concrete
// channels, then build one routing.Row per (channel epoch, endpoint).
func (h *Harvester) enumerateChannels(ctx context.Context, doc *routingDocument) ([]routing.Row, error) {
	var rows []routing.Row

	for _, route := range doc.Routes {
		stationURL, service := stationServiceURL(route)
		if stationURL == "" {
			continue
		}

		var stationDoc *stationxml.Document
		err := Do(ctx, h.Retry, func(ctx context.Context) error {
			data, err := h.fetch(ctx, stationInventoryURL(stationURL, route))
			if err != nil {
				return err
			}
			stationDoc, err = stationxml.Parse(data)
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fetching station inventory for %s.%s.%s.%s",
				route.Net, route.Sta, route.Loc, route.Cha)
		}

		channelRows, err := rowsFromStationDoc(stationDoc)
		if err != nil {
			return nil, err
		}

		for _, svc := range route.Services {
			svcName, ok := serviceName(svc.XMLName.Local)
			if !ok {
				continue
			}
			start, err := parseXMLTime(svc.Start)
			if err != nil {
				return nil, err
			}
			end, err := parseXMLTime(svc.End)
			if err != nil {
				return nil, err
			}
			for _, cr := range channelRows {
				row := cr
				row.Service = svcName
				row.EndpointURL = svc.Address
				row.Primary = true
				row.ValidFrom = start
				row.ValidTo = end
				rows = append(rows, row)
			}
		}

		_ = service
	}
	return rows, nil
}

// rowsFromStationDoc flattens a parsed FDSNStationXML document into
// channel-epoch rows (service/endpoint left unset; the caller fills them in
// per-route).
func rowsFromStationDoc(doc *stationxml.Document) ([]routing.Row, error) {
	var rows []routing.Row
	for _, net := range doc.Networks {
		for _, sta := range net.Stations {
			for _, cha := range sta.Channels {
				start, err := parseXMLTime(cha.StartDate)
				if err != nil {
					return nil, errors.Wrapf(err, "channel %s.%s.%s.%s", net.Code, sta.Code, cha.LocationCode, cha.Code)
				}
				end, err := parseXMLTime(cha.EndDate)
				if err != nil {
					return nil, errors.Wrapf(err, "channel %s.%s.%s.%s", net.Code, sta.Code, cha.LocationCode, cha.Code)
				}
				if !start.Before(end) {
					return nil, errors.Errorf("channel %s.%s.%s.%s: end before start",
						net.Code, sta.Code, cha.LocationCode, cha.Code)
				}
				rows = append(rows, routing.Row{
					Net: net.Code, Sta: sta.Code, Loc: cha.LocationCode, Cha: cha.Code,
					Start: start, End: end,
				})
			}
		}
	}
	return rows, nil
}

func stationServiceURL(route routingRoute) (string, seedid.Service) {
	for _, svc := range route.Services {
		if name, ok := serviceName(svc.XMLName.Local); ok && name == seedid.ServiceStation {
			return svc.Address, name
		}
	}
	return "", ""
}

func serviceName(xmlLocal string) (seedid.Service, bool) {
	switch xmlLocal {
	case "station":
		return seedid.ServiceStation, true
	case "dataselect":
		return seedid.ServiceDataselect, true
	case "wfcatalog":
		return seedid.ServiceWFCatalog, true
	default:
		return "", false
	}
}

func stationInventoryURL(base string, route routingRoute) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("level", "channel")
	q.Set("net", route.Net)
	q.Set("sta", route.Sta)
	q.Set("loc", route.Loc)
	q.Set("cha", route.Cha)
	u.RawQuery = q.Encode()
	return u.String()
}

func (h *Harvester) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}
