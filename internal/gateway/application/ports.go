package application

import (
	"context"
	"time"

	"github.com/paybridge/payments-gateway/internal/gateway/domain"
)

// OrderStore is the gateway's view of the host commerce system. Reads come
// back as an Order snapshot; writes are individual typed operations. Notes
// are append-only and form the durable audit trail of every payment
// operation.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (domain.Order, error)
	UpdateMeta(ctx context.Context, orderID, key, value string) error
	SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	AppendNote(ctx context.Context, orderID, content string) error
}

// PaymentAPI is the remote payment processor. Implementations return
// *APIError for processor-reported failures. CreateCustomer mints the customer
// record at the processor; the returned id is the only valid customer
// reference for later setup-intent calls.
type PaymentAPI interface {
	CaptureIntention(ctx context.Context, intentID string, amountMinor int64) (domain.PaymentIntent, error)
	CancelIntention(ctx context.Context, intentID string) (domain.PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (domain.PaymentIntent, error)
	RefundCharge(ctx context.Context, chargeID string, amountMinor int64, reason string) (domain.Refund, error)
	CreateCustomer(ctx context.Context, userID string) (string, error)
	CreateAndConfirmSetupIntent(ctx context.Context, paymentMethodID, customerID string) (domain.SetupIntent, error)
	GetSetupIntent(ctx context.Context, setupIntentID string) (domain.SetupIntent, error)
}

// Locker serializes operations per order. Two concurrent captures of the
// same order must not race past the precondition check.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// EventRecorder persists lifecycle events for asynchronous consumers. The
// recording is best-effort from the orchestrators' point of view; the order
// note is the durable audit trail.
type EventRecorder interface {
	Record(ctx context.Context, orderID, eventType string, payload []byte) error
}

// Scheduler enqueues background jobs.
type Scheduler interface {
	ScheduleJob(ctx context.Context, at time.Time, hook string, args map[string]string) error
}

// AccountService exposes the merchant account's fraud-services configuration.
type AccountService interface {
	FraudServicesConfig(ctx context.Context) (map[string]map[string]string, error)
}

// CustomerStore maps store users to remote customer records. A lookup that
// finds nothing returns an empty id and a nil error. The stored customer id is
// always one the processor minted, never fabricated locally.
type CustomerStore interface {
	CustomerIDByUser(ctx context.Context, userID string) (string, error)
	LinkCustomerToUser(ctx context.Context, userID, customerID string) error
}

// TokenStore attaches confirmed payment methods to store users.
type TokenStore interface {
	AddPaymentMethodToUser(ctx context.Context, userID, paymentMethodID string) error
}
