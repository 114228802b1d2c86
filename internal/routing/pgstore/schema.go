// Package pgstore is the Postgres-backed implementation of routing.Store,
// using github.com/jackc/pgx/v5's connection pool and parameterized
// queries directly rather than an ORM (spec.md §9 Design Note: "prefer a
// thin data-access layer issuing parameterized queries over a reflective
// object mapper"). The driver choice follows the federation-over-Postgres
// pattern seen in the retrieved pack's federation-sync service.
package pgstore

// Schema is the DDL this store expects to find (or create via migration
// tooling external to this package). Indexed for the two dominant access
// patterns named in spec.md §4.2: (i) (service, net, sta, cha, time) ->
// routes, and (ii) endpoint -> routes, for harvester invalidation.
const Schema = `
CREATE TABLE IF NOT EXISTS data_centers (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS endpoints (
	id      BIGSERIAL PRIMARY KEY,
	service TEXT NOT NULL,
	url     TEXT NOT NULL,
	UNIQUE (service, url)
);

CREATE TABLE IF NOT EXISTS channel_epochs (
	id             BIGSERIAL PRIMARY KEY,
	data_center_id TEXT NOT NULL REFERENCES data_centers(id),
	net            TEXT NOT NULL,
	sta            TEXT NOT NULL,
	loc            TEXT NOT NULL,
	cha            TEXT NOT NULL,
	start_time     TIMESTAMPTZ NOT NULL,
	end_time       TIMESTAMPTZ NOT NULL,
	UNIQUE (data_center_id, net, sta, loc, cha, start_time)
);

CREATE TABLE IF NOT EXISTS routes (
	id               BIGSERIAL PRIMARY KEY,
	channel_epoch_id BIGINT NOT NULL REFERENCES channel_epochs(id) ON DELETE CASCADE,
	endpoint_id      BIGINT NOT NULL REFERENCES endpoints(id),
	is_primary       BOOLEAN NOT NULL DEFAULT true,
	valid_from       TIMESTAMPTZ NOT NULL,
	valid_to         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_channel_epochs_lookup
	ON channel_epochs (net, sta, cha, start_time, end_time);

CREATE INDEX IF NOT EXISTS idx_routes_endpoint
	ON routes (endpoint_id);

CREATE INDEX IF NOT EXISTS idx_routes_channel_epoch
	ON routes (channel_epoch_id);
`
