package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/eida/federator/internal/routing"
)

// UpsertBatch implements routing.Store. The whole batch runs inside a single
// transaction so that readers never observe a partial harvest batch
// (spec.md §3: "Catalog writes are transactional at harvest-batch
// granularity"). Row conflicts on the natural key are resolved with
// INSERT ... ON CONFLICT, keeping this a thin parameterized-query layer
// rather than an ORM (spec.md §9).
func (s *Store) UpsertBatch(ctx context.Context, dataCenterID string, rows []routing.Row, policy routing.UpsertPolicy, harvestedAt time.Time) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "beginning harvest transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	if _, err := tx.Exec(ctx,
		`INSERT INTO data_centers (id, name) VALUES ($1, $1)
		 ON CONFLICT (id) DO NOTHING`, dataCenterID); err != nil {
		return errors.Wrap(err, "upserting data center")
	}

	seen := make(map[int64]bool, len(rows))

	for _, row := range rows {
		var endpointID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO endpoints (service, url) VALUES ($1, $2)
			 ON CONFLICT (service, url) DO UPDATE SET url = EXCLUDED.url
			 RETURNING id`,
			string(row.Service), row.EndpointURL,
		).Scan(&endpointID); err != nil {
			return errors.Wrapf(err, "upserting endpoint %s", row.EndpointURL)
		}

		var channelEpochID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO channel_epochs (data_center_id, net, sta, loc, cha, start_time, end_time)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (data_center_id, net, sta, loc, cha, start_time)
			 DO UPDATE SET end_time = EXCLUDED.end_time
			 RETURNING id`,
			dataCenterID, row.Net, row.Sta, row.Loc, row.Cha, row.Start, row.End,
		).Scan(&channelEpochID); err != nil {
			return errors.Wrapf(err, "upserting channel epoch %s.%s.%s.%s",
				row.Net, row.Sta, row.Loc, row.Cha)
		}

		var routeID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO routes (channel_epoch_id, endpoint_id, is_primary, valid_from, valid_to)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			channelEpochID, endpointID, row.Primary, row.ValidFrom, row.ValidTo,
		).Scan(&routeID); err != nil {
			return errors.Wrap(err, "inserting route")
		}
		seen[routeID] = true
	}

	switch policy {
	case routing.RemoveMissing:
		if err := removeStaleRoutes(ctx, tx, dataCenterID, seen); err != nil {
			return err
		}
	default: // routing.EndDateMissing
		if err := endDateStaleRoutes(ctx, tx, dataCenterID, seen, harvestedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "committing harvest transaction")
	}
	return nil
}

func staleRouteIDs(ctx context.Context, tx pgx.Tx, dataCenterID string, seen map[int64]bool) ([]int64, error) {
	rows, err := tx.Query(ctx,
		`SELECT r.id FROM routes r
		 JOIN channel_epochs ce ON ce.id = r.channel_epoch_id
		 WHERE ce.data_center_id = $1`, dataCenterID)
	if err != nil {
		return nil, errors.Wrap(err, "listing existing routes")
	}
	defer rows.Close()

	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	return stale, rows.Err()
}

func removeStaleRoutes(ctx context.Context, tx pgx.Tx, dataCenterID string, seen map[int64]bool) error {
	stale, err := staleRouteIDs(ctx, tx, dataCenterID, seen)
	if err != nil {
		return err
	}
	for _, id := range stale {
		if _, err := tx.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id); err != nil {
			return errors.Wrap(err, "removing stale route")
		}
	}
	return nil
}

func endDateStaleRoutes(ctx context.Context, tx pgx.Tx, dataCenterID string, seen map[int64]bool, harvestedAt time.Time) error {
	stale, err := staleRouteIDs(ctx, tx, dataCenterID, seen)
	if err != nil {
		return err
	}
	for _, id := range stale {
		if _, err := tx.Exec(ctx,
			`UPDATE routes SET valid_to = $2 WHERE id = $1 AND valid_to > $2`,
			id, harvestedAt); err != nil {
			return errors.Wrap(err, "end-dating stale route")
		}
	}
	return nil
}
