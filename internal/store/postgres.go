// Package store persists zone records and audit events on PostgreSQL.
// The three per-zone documents (sensors/status/config) live in JSONB
// columns: their shape evolves with the firmware, not with the schema.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrZoneNotFound: unknown zone id. On the device path the API layer
	// turns this into the "pairing required" condition.
	ErrZoneNotFound = errors.New("zone not found")

	// ErrVersionConflict: a concurrent read-modify-write won the race;
	// the caller re-reads and retries.
	ErrVersionConflict = errors.New("zone version conflict")
)

// NewPool opens a pgx pool and waits for the database to answer, with
// exponential backoff (il DB può partire dopo di noi nei compose).
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	err = backoff.Retry(func() error {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return pool.Ping(pctx)
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS zones (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT      NOT NULL,
	name        TEXT        NOT NULL,
	type        TEXT        NOT NULL,
	sensors     JSONB       NOT NULL DEFAULT '{}'::jsonb,
	status      JSONB       NOT NULL DEFAULT '{}'::jsonb,
	config      JSONB       NOT NULL DEFAULT '{}'::jsonb,
	version     BIGINT      NOT NULL DEFAULT 1,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS zones_user_idx ON zones (user_id);

CREATE TABLE IF NOT EXISTS events (
	id          UUID PRIMARY KEY,
	user_id     BIGINT      NOT NULL,
	zone_id     BIGINT      NOT NULL,
	type        TEXT        NOT NULL,
	description TEXT        NOT NULL,
	metadata    JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS events_user_created_idx ON events (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS events_zone_idx ON events (zone_id);
`

// EnsureSchema creates the tables when missing. Idempotente.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
