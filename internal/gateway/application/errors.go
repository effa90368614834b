package application

import (
	"errors"
	"fmt"
)

var (
	ErrMissingIntent = errors.New("order has no payment intent")
	ErrMissingCharge = errors.New("order has no charge")
	ErrNoCustomer    = errors.New("user has no customer record")
)

// APIError is the typed failure PaymentAPI implementations return for
// processor-reported errors.
type APIError struct {
	Message    string
	Code       string
	HTTPStatus int
}

func (e *APIError) Error() string { return e.Message }

// UncapturedPaymentError rejects a refund of a payment that was never
// captured. No remote call is made; the caller should cancel the
// authorization instead.
type UncapturedPaymentError struct {
	OrderID string
}

func (e *UncapturedPaymentError) Error() string {
	return fmt.Sprintf("order %s: payment has not been captured and cannot be refunded; cancel the authorization instead", e.OrderID)
}

func (e *UncapturedPaymentError) ErrorCode() string { return "uncaptured-payment" }

// RemoteAPIError classifies a capture, cancel or refund that failed at the
// processor. Message carries the processor's own text unchanged.
type RemoteAPIError struct {
	Op         string
	Message    string
	Code       string
	HTTPStatus int
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// IntentExpiredError reports that the fallback re-fetch found the intent
// canceled: the authorization expired remotely and the order was reconciled
// to cancelled. Message still carries the primary capture error text.
type IntentExpiredError struct {
	IntentID string
	Message  string
}

func (e *IntentExpiredError) Error() string {
	return fmt.Sprintf("payment intent %s: authorization expired", e.IntentID)
}

// errorMessage extracts the processor's human message when err is an
// APIError, so notes and results carry the original text rather than any
// wrapping.
func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func remoteErr(op string, err error) *RemoteAPIError {
	e := &RemoteAPIError{Op: op, Message: err.Error()}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		e.Message = apiErr.Message
		e.Code = apiErr.Code
		e.HTTPStatus = apiErr.HTTPStatus
	}
	return e
}
