package domain

import "time"

type IntentStatus string

const (
	IntentRequiresCapture       IntentStatus = "requires_capture"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
	IntentProcessing            IntentStatus = "processing"
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
)

// PaymentIntent is a read-only snapshot of the remote intent. The gateway
// never constructs one itself; it only reads what the processor returns.
type PaymentIntent struct {
	ID              string
	AmountMinor     int64
	Currency        string
	CustomerID      string
	PaymentMethodID string
	Created         time.Time
	Status          IntentStatus
	ChargeID        string
	ClientSecret    string
}

// Refund is the result value of a refund request. Never mutated afterward.
type Refund struct {
	ID          string
	AmountMinor int64
	Currency    string
	ChargeID    string
	Status      string
	Reason      string
}

// SetupIntent is the remote resource backing the saved-payment-method flow.
type SetupIntent struct {
	ID              string
	Status          IntentStatus
	PaymentMethodID string
}
