package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id                 TEXT PRIMARY KEY,
		status             TEXT NOT NULL DEFAULT 'pending',
		currency           TEXT NOT NULL,
		total_minor        BIGINT NOT NULL,
		payment_gateway_id TEXT NOT NULL DEFAULT '',
		requires_shipping  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_meta (
		order_id   TEXT NOT NULL REFERENCES orders(id),
		meta_key   TEXT NOT NULL,
		meta_value TEXT NOT NULL,
		PRIMARY KEY (order_id, meta_key)
	)`,
	`CREATE TABLE IF NOT EXISTS order_notes (
		id         BIGSERIAL PRIMARY KEY,
		order_id   TEXT NOT NULL REFERENCES orders(id),
		content    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id             BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		type           TEXT NOT NULL,
		payload        JSONB NOT NULL,
		headers        JSONB,
		traceparent    TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'pending',
		relay_id       TEXT,
		lease_until    TIMESTAMPTZ,
		retry_count    INT NOT NULL DEFAULT 0,
		last_error     TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (id) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS customers (
		user_id     TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS payment_tokens (
		user_id           TEXT NOT NULL,
		payment_method_id TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, payment_method_id)
	)`,
	`CREATE TABLE IF NOT EXISTS scheduled_jobs (
		id         BIGSERIAL PRIMARY KEY,
		hook       TEXT NOT NULL,
		run_at     TIMESTAMPTZ NOT NULL,
		args       JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
