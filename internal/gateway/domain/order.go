package domain

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusOnHold     OrderStatus = "on-hold"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
	StatusFailed     OrderStatus = "failed"
)

// Metadata keys attached to an order by the gateway. IntentID and ChargeID
// identify the remote resources tied to this order and are immutable once set.
const (
	MetaIntentID         = "_intent_id"
	MetaChargeID         = "_charge_id"
	MetaIntentionStatus  = "_intention_status"
	MetaIntentCurrency   = "_intent_currency"
	MetaPaymentMethodID  = "_payment_method_id"
	MetaTrackingComplete = "_order_tracking_complete"
)

// Order is a read snapshot of a store order. Mutations go through the
// OrderStore ports, never through this value.
type Order struct {
	ID               string
	Status           OrderStatus
	Currency         string
	TotalMinor       int64
	PaymentGatewayID string
	RequiresShipping bool
	Meta             map[string]string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (o Order) MetaValue(key string) string {
	return o.Meta[key]
}

// IntentCurrency returns the currency the order's intent was created in.
// Orders predating the intent-currency metadata fall back to the order
// currency.
func (o Order) IntentCurrency() string {
	if c := o.Meta[MetaIntentCurrency]; c != "" {
		return c
	}
	return o.Currency
}
