package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paybridge/payments-gateway/internal/gateway/domain"
	"github.com/paybridge/payments-gateway/pkg/outbox"
	"github.com/paybridge/payments-gateway/pkg/tracing"
)

// Repository is the postgres-backed order store. Notes are append-only;
// intent and charge identifiers are write-once.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Get(ctx context.Context, orderID string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `SELECT id, status, currency, total_minor, payment_gateway_id, requires_shipping, created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.Status, &o.Currency, &o.TotalMinor, &o.PaymentGatewayID, &o.RequiresShipping, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT meta_key, meta_value FROM order_meta WHERE order_id=$1`, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()

	o.Meta = make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return domain.Order{}, err
		}
		o.Meta[k] = v
	}
	return o, rows.Err()
}

func (r *Repository) UpdateMeta(ctx context.Context, orderID, key, value string) error {
	// Intent and charge ids identify remote resources and must never be
	// rewritten once stored.
	if key == domain.MetaIntentID || key == domain.MetaChargeID {
		_, err := r.pool.Exec(ctx, `INSERT INTO order_meta (order_id, meta_key, meta_value)
			VALUES ($1,$2,$3) ON CONFLICT (order_id, meta_key) DO NOTHING`, orderID, key, value)
		return err
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO order_meta (order_id, meta_key, meta_value)
		VALUES ($1,$2,$3) ON CONFLICT (order_id, meta_key) DO UPDATE SET meta_value=$3`, orderID, key, value)
	return err
}

// SetStatus applies the transition, upgrading processing to completed for
// orders that need no physical shipping. That upgrade is this store's call,
// not the state mapper's.
func (r *Repository) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE orders SET
			status = CASE WHEN $2 = 'processing' AND NOT requires_shipping THEN 'completed' ELSE $2 END,
			updated_at = now()
		WHERE id=$1`, orderID, string(status))
	return err
}

func (r *Repository) AppendNote(ctx context.Context, orderID, content string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO order_notes (order_id, content) VALUES ($1,$2)`, orderID, content)
	return err
}

// Record writes a lifecycle event into the outbox for the relay to publish.
func (r *Repository) Record(ctx context.Context, orderID, eventType string, payload []byte) error {
	headers := map[string]string{"source": "payments-gateway"}
	_, err := r.pool.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ('order',$1,$2,$3,$4,$5,'pending')`,
		orderID, eventType, payload, headers, tracing.Traceparent(ctx))
	return err
}

// OutboxStore leases pending outbox rows to relay instances.
type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at
		FROM outbox
		WHERE status = 'pending'
		   OR (status = 'in_progress' AND lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var event outbox.Event
		var headers map[string]string
		if err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID, &event.Type, &event.Payload, &headers, &event.Traceparent, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Headers = headers
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	_, err = tx.Exec(ctx, `UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + $2::interval WHERE id = ANY($3)`,
		relayID, lease.String(), ids)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent' WHERE id = ANY($1)`, ids)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status='failed', last_error=$2, retry_count=retry_count+1 WHERE id=$1`, id, errMsg)
	return err
}

func (s *OutboxStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET lease_until=now() + $1::interval WHERE id = ANY($2) AND relay_id=$3`, lease.String(), ids, relayID)
	return err
}
