// Package routing defines the routing-catalog contract (spec.md §4.2,
// component C2): the normalized inventory of which data center serves which
// stream epoch for which service, and the resolve/upsert operations the
// federator and harvester depend on.
package routing

import (
	"context"
	"sort"
	"time"

	"github.com/eida/federator/internal/seedid"
)

// Selector is a (possibly wildcarded) stream-epoch query against the
// catalog, scoped to one service and one time window.
type Selector struct {
	Net, Sta, Loc, Cha string
	Window             Window
}

// Window is the half-open UTC time interval a resolve query is bounded to.
type Window struct {
	Start, End time.Time
}

// Group is one endpoint's share of a resolve result: the upstream URL and
// the concrete (wildcard-free) stream epochs it serves, intersected with
// the request window.
type Group struct {
	Service seedid.Service
	URL     string
	Primary bool
	Epochs  seedid.StreamEpochList
}

// SortGroups orders resolve output per spec.md §4.2: "endpoints sorted by
// URL; epochs within a group sorted by (net, sta, loc, cha, start)".
func SortGroups(groups []Group) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].URL < groups[j].URL })
	for i := range groups {
		epochs := groups[i].Epochs
		sort.Slice(epochs, func(a, b int) bool { return seedid.Less(epochs[a], epochs[b]) })
	}
}

// Row is one normalized routing fact as produced by the harvester:
// routes(channel_epoch, endpoint, validity_epoch), per spec.md §3.
type Row struct {
	Net, Sta, Loc, Cha string
	Start, End         time.Time // channel epoch
	Service            seedid.Service
	EndpointURL        string
	Primary            bool
	ValidFrom, ValidTo time.Time // routing validity epoch
}

// UpsertPolicy controls what happens to previously-harvested rows for a
// data center that are absent from the new batch, per spec.md §4.2.
type UpsertPolicy int

const (
	// EndDateMissing closes the validity window of absent rows at the
	// harvest timestamp rather than deleting them.
	EndDateMissing UpsertPolicy = iota
	// RemoveMissing deletes absent rows outright.
	RemoveMissing
)

// Store is the persistence contract for the routing catalog. Implementations
// must provide the isolation and atomicity guarantees of spec.md §3:
// readers never observe a partial harvest batch, and writes are
// transactional at harvest-batch granularity.
type Store interface {
	// Resolve expands selectors' wildcards against currently-known channels,
	// filters by service, intersects each candidate with its window, and
	// groups the result by endpoint, per spec.md §4.2.
	Resolve(ctx context.Context, selectors []Selector, service seedid.Service) ([]Group, error)

	// UpsertBatch atomically swaps in one data center's harvested rows.
	// harvestedAt is used to end-date rows dropped under EndDateMissing.
	UpsertBatch(ctx context.Context, dataCenterID string, rows []Row, policy UpsertPolicy, harvestedAt time.Time) error
}
