//go:build integration

package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eida/federator/internal/logging"
	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

// TestResolveAndHarvestAtomicity exercises the store against a real
// Postgres instance, addressed by EIDA_FEDERATOR_TEST_DSN. It is analogous
// in spirit to the teacher's etcdtest-backed broker tests, but against
// Postgres rather than an embedded Etcd, per spec.md §3's relational store.
func TestResolveAndHarvestAtomicity(t *testing.T) {
	dsn := os.Getenv("EIDA_FEDERATOR_TEST_DSN")
	if dsn == "" {
		t.Skip("EIDA_FEDERATOR_TEST_DSN not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, dsn, logging.Discard())
	require.NoError(t, err)
	defer store.Close()

	now := time.Now().UTC()
	rows := []routing.Row{{
		Net: "CH", Sta: "AAA", Loc: "", Cha: "HHZ",
		Start: now.AddDate(-1, 0, 0), End: seedid.FarFuture,
		Service: seedid.ServiceDataselect, EndpointURL: "http://eth.example/fdsnws/dataselect/1/query",
		Primary: true, ValidFrom: now.AddDate(-1, 0, 0), ValidTo: seedid.FarFuture,
	}}
	require.NoError(t, store.UpsertBatch(ctx, "ETH", rows, routing.EndDateMissing, now))

	groups, err := store.Resolve(ctx, []routing.Selector{{
		Net: "CH", Sta: "AAA", Loc: "*", Cha: "HHZ",
		Window: routing.Window{Start: now.AddDate(0, -1, 0), End: now.AddDate(0, 1, 0)},
	}}, seedid.ServiceDataselect)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Epochs, 1)
}
