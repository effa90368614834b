package domain

type PaymentCaptured struct {
	OrderID     string
	IntentID    string
	AmountMinor int64
	Currency    string
}

type PaymentCaptureFailed struct {
	OrderID  string
	IntentID string
	Reason   string
}

type PaymentRefunded struct {
	OrderID     string
	RefundID    string
	AmountMinor int64
	Currency    string
	Reason      string
}

type AuthorizationCanceled struct {
	OrderID  string
	IntentID string
}
