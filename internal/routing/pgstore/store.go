package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/pkg/errors"
)

// Store wraps a pgxpool.Pool implementing routing.Store.
type Store struct {
	pool *pgxpool.Pool
	log  *log.Logger
}

// Open connects to Postgres at dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string, logger *log.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to routing catalog")
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "applying routing catalog schema")
	}
	return &Store{pool: pool, log: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }
