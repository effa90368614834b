package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerRepository maps store users to remote customer ids.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func (r *CustomerRepository) CustomerIDByUser(ctx context.Context, userID string) (string, error) {
	var customerID string
	err := r.pool.QueryRow(ctx, `SELECT customer_id FROM customers WHERE user_id=$1`, userID).Scan(&customerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return customerID, nil
}

// LinkCustomerToUser stores the processor-minted customer id for the user.
// A concurrent link of the same user keeps the first id; the remote record is
// the source of truth and is never overwritten.
func (r *CustomerRepository) LinkCustomerToUser(ctx context.Context, userID, customerID string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO customers (user_id, customer_id)
		VALUES ($1,$2) ON CONFLICT (user_id) DO NOTHING`, userID, customerID)
	return err
}

// AddPaymentMethodToUser stores a confirmed payment method token.
func (r *CustomerRepository) AddPaymentMethodToUser(ctx context.Context, userID, paymentMethodID string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payment_tokens (user_id, payment_method_id)
		VALUES ($1,$2) ON CONFLICT (user_id, payment_method_id) DO NOTHING`, userID, paymentMethodID)
	return err
}

// JobStore persists scheduled background jobs for an external worker to pick
// up.
type JobStore struct {
	pool *pgxpool.Pool
}

func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

func (s *JobStore) ScheduleJob(ctx context.Context, at time.Time, hook string, args map[string]string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO scheduled_jobs (hook, run_at, args) VALUES ($1,$2,$3)`, hook, at, args)
	return err
}
