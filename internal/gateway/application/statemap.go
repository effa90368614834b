package application

import "github.com/paybridge/payments-gateway/internal/gateway/domain"

// StatusMapping is the local interpretation of a remote intent status.
type StatusMapping struct {
	OrderStatus     domain.OrderStatus
	TerminalSuccess bool
	TerminalFailure bool
}

// MapIntentStatus maps a remote intent status to the order status it implies.
// Pure and deterministic; current is only echoed back for statuses that leave
// the order untouched. A succeeded intent maps to processing — the order
// store decides whether a non-shippable order is upgraded to completed.
// requires_capture means the capture did not take effect: the intent itself
// is still valid, but the operation failed and the order stays on hold.
func MapIntentStatus(current domain.OrderStatus, status domain.IntentStatus) StatusMapping {
	switch status {
	case domain.IntentSucceeded:
		return StatusMapping{OrderStatus: domain.StatusProcessing, TerminalSuccess: true}
	case domain.IntentRequiresCapture:
		return StatusMapping{OrderStatus: domain.StatusOnHold}
	case domain.IntentCanceled:
		return StatusMapping{OrderStatus: domain.StatusCancelled, TerminalFailure: true}
	default:
		return StatusMapping{OrderStatus: current}
	}
}
