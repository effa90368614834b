package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybridge/payments-gateway/internal/gateway/domain"
	"github.com/paybridge/payments-gateway/pkg/money"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authorizedOrder(currency string) domain.Order {
	return domain.Order{
		ID:               "order_1",
		Status:           domain.StatusOnHold,
		Currency:         currency,
		TotalMinor:       1500,
		PaymentGatewayID: "paybridge",
		RequiresShipping: true,
		Meta: map[string]string{
			domain.MetaIntentID:        "pi_123",
			domain.MetaChargeID:        "ch_123",
			domain.MetaIntentionStatus: string(domain.IntentRequiresCapture),
		},
	}
}

func newTestService(store *fakeOrderStore, api *fakePaymentAPI, rec *fakeRecorder) *Service {
	return NewService(discardLogger(), store, api, &fakeLocker{}, rec)
}

func TestCaptureSuccess(t *testing.T) {
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		captureIntent: domain.PaymentIntent{
			ID:       "pi_123",
			Status:   domain.IntentSucceeded,
			Currency: "usd",
			ChargeID: "ch_123",
		},
	}
	rec := &fakeRecorder{}
	svc := newTestService(store, api, rec)

	result, err := svc.Capture(context.Background(), "order_1")
	require.NoError(t, err)

	assert.Equal(t, CaptureResult{Status: "succeeded", IntentID: "pi_123"}, result)
	assert.Equal(t, domain.StatusProcessing, store.status("order_1"))
	assert.Equal(t, "succeeded", store.meta("order_1", domain.MetaIntentionStatus))

	note := store.lastNote("order_1")
	assert.Contains(t, note, "successfully captured")
	assert.Contains(t, note, money.Format(1500, "usd"))
	assert.Contains(t, note, "ch_123")

	require.Len(t, rec.events, 1)
	assert.Equal(t, "PaymentCaptured", rec.events[0].eventType)
}

func TestCaptureSuccessUsesIntentCurrency(t *testing.T) {
	// The order is in USD but the intent was created in EUR; the note must
	// follow the intent.
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		captureIntent: domain.PaymentIntent{
			ID:       "pi_123",
			Status:   domain.IntentSucceeded,
			Currency: "eur",
			ChargeID: "ch_123",
		},
	}
	svc := newTestService(store, api, &fakeRecorder{})

	_, err := svc.Capture(context.Background(), "order_1")
	require.NoError(t, err)

	note := store.lastNote("order_1")
	assert.Contains(t, note, money.Format(1500, "eur"))
	assert.NotContains(t, note, money.Format(1500, "usd"))
}

func TestCaptureNotEffective(t *testing.T) {
	// The processor answers without error but the intent is still
	// requires_capture. No error, but the order stays on hold.
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		captureIntent: domain.PaymentIntent{
			ID:       "pi_123",
			Status:   domain.IntentRequiresCapture,
			Currency: "usd",
			ChargeID: "ch_123",
		},
	}
	rec := &fakeRecorder{}
	svc := newTestService(store, api, rec)

	result, err := svc.Capture(context.Background(), "order_1")
	require.NoError(t, err)

	assert.Equal(t, "requires_capture", result.Status)
	assert.Equal(t, domain.StatusOnHold, store.status("order_1"))
	assert.Equal(t, "requires_capture", store.meta("order_1", domain.MetaIntentionStatus))
	assert.Contains(t, store.lastNote("order_1"), "failed to complete")
	require.Len(t, rec.events, 1)
	assert.Equal(t, "PaymentCaptureFailed", rec.events[0].eventType)
}

func TestCaptureAPIFailureKeepsOrderOnHold(t *testing.T) {
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		captureErr: &APIError{Message: "test exception", Code: "resource_missing"},
		getIntent:  domain.PaymentIntent{ID: "pi_123", Status: domain.IntentRequiresCapture},
	}
	svc := newTestService(store, api, &fakeRecorder{})

	result, err := svc.Capture(context.Background(), "order_1")

	var remote *RemoteAPIError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "capture", remote.Op)
	assert.Equal(t, "test exception", remote.Message)

	// The result is still populated so REST callers get the original text.
	assert.Equal(t, CaptureStatusFailed, result.Status)
	assert.Equal(t, "pi_123", result.IntentID)
	assert.Equal(t, "test exception", result.Message)

	assert.Equal(t, 1, api.getCalls)
	assert.Equal(t, domain.StatusOnHold, store.status("order_1"))
	assert.Equal(t, "requires_capture", store.meta("order_1", domain.MetaIntentionStatus))

	note := store.lastNote("order_1")
	assert.Contains(t, note, "test exception")
	assert.Contains(t, note, money.Format(1500, "usd"))
}

func TestCaptureAPIFailureNoteUsesStoredIntentCurrency(t *testing.T) {
	order := authorizedOrder("usd")
	order.Meta[domain.MetaIntentCurrency] = "EUR"
	store := newFakeOrderStore(order)
	api := &fakePaymentAPI{
		captureErr: &APIError{Message: "test exception"},
		getIntent:  domain.PaymentIntent{ID: "pi_123", Status: domain.IntentRequiresCapture, Currency: "jpy"},
	}
	svc := newTestService(store, api, &fakeRecorder{})

	_, err := svc.Capture(context.Background(), "order_1")
	require.Error(t, err)

	// The failure note prices in the stored intent currency, never in the
	// currency of the re-fetched intent.
	note := store.lastNote("order_1")
	assert.Contains(t, note, money.Format(1500, "eur"))
	assert.NotContains(t, note, money.Format(1500, "jpy"))
}

func TestCaptureExpiredAuthorization(t *testing.T) {
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		captureErr: &APIError{Message: "test exception"},
		getIntent:  domain.PaymentIntent{ID: "pi_123", Status: domain.IntentCanceled},
	}
	rec := &fakeRecorder{}
	svc := newTestService(store, api, rec)

	result, err := svc.Capture(context.Background(), "order_1")

	var expired *IntentExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, "pi_123", expired.IntentID)
	// The message is the original capture failure, not anything from the
	// re-fetch.
	assert.Equal(t, "test exception", expired.Message)
	assert.Equal(t, "test exception", result.Message)
	assert.Equal(t, CaptureStatusFailed, result.Status)

	assert.Equal(t, domain.StatusCancelled, store.status("order_1"))
	assert.Equal(t, "canceled", store.meta("order_1", domain.MetaIntentionStatus))
	assert.Contains(t, store.lastNote("order_1"), "expired")

	require.Len(t, rec.events, 1)
	assert.Equal(t, "AuthorizationCanceled", rec.events[0].eventType)
}

func TestCaptureRefetchFailureDoesNotMaskPrimaryError(t *testing.T) {
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		captureErr: &APIError{Message: "test exception"},
		getErr:     errors.New("ignore this"),
	}
	svc := newTestService(store, api, &fakeRecorder{})

	result, err := svc.Capture(context.Background(), "order_1")

	var remote *RemoteAPIError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "test exception", remote.Message)
	assert.Equal(t, "test exception", result.Message)

	assert.Equal(t, domain.StatusOnHold, store.status("order_1"))
	assert.NotContains(t, store.lastNote("order_1"), "ignore this")
}

func TestCaptureMissingIntent(t *testing.T) {
	order := authorizedOrder("usd")
	delete(order.Meta, domain.MetaIntentID)
	store := newFakeOrderStore(order)
	api := &fakePaymentAPI{}
	svc := newTestService(store, api, &fakeRecorder{})

	_, err := svc.Capture(context.Background(), "order_1")

	require.ErrorIs(t, err, ErrMissingIntent)
	assert.Zero(t, api.captureCalls)
}

func TestCaptureTwiceLeavesConsistentState(t *testing.T) {
	// A retried capture after success re-runs against the processor, which
	// answers succeeded again. The order must not regress.
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		captureIntent: domain.PaymentIntent{
			ID:       "pi_123",
			Status:   domain.IntentSucceeded,
			Currency: "usd",
			ChargeID: "ch_123",
		},
	}
	svc := newTestService(store, api, &fakeRecorder{})

	_, err := svc.Capture(context.Background(), "order_1")
	require.NoError(t, err)
	_, err = svc.Capture(context.Background(), "order_1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessing, store.status("order_1"))
	assert.Equal(t, "succeeded", store.meta("order_1", domain.MetaIntentionStatus))
	assert.Len(t, store.notes["order_1"], 2)
}

func TestRefundRejectsUncapturedPayment(t *testing.T) {
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{}
	svc := newTestService(store, api, &fakeRecorder{})

	err := svc.Refund(context.Background(), "order_1", 1500, "")

	var uncaptured *UncapturedPaymentError
	require.ErrorAs(t, err, &uncaptured)
	assert.Equal(t, "uncaptured-payment", uncaptured.ErrorCode())
	assert.Zero(t, api.refundCalls)
	assert.Empty(t, store.notes["order_1"])
}

func TestRefundSuccess(t *testing.T) {
	order := authorizedOrder("usd")
	order.Status = domain.StatusProcessing
	order.Meta[domain.MetaIntentionStatus] = string(domain.IntentSucceeded)
	store := newFakeOrderStore(order)
	api := &fakePaymentAPI{
		refund: domain.Refund{ID: "re_123", Currency: "eur"},
	}
	rec := &fakeRecorder{}
	svc := newTestService(store, api, rec)

	err := svc.Refund(context.Background(), "order_1", 1999, "")
	require.NoError(t, err)

	// Refunds never move the order status.
	assert.Equal(t, domain.StatusProcessing, store.status("order_1"))

	note := store.lastNote("order_1")
	assert.Contains(t, note, "successfully processed")
	assert.Contains(t, note, "re_123")
	assert.Contains(t, note, money.Format(1999, "eur"))
	assert.NotContains(t, note, "Reason:")

	require.Len(t, rec.events, 1)
	assert.Equal(t, "PaymentRefunded", rec.events[0].eventType)
}

func TestRefundSuccessWithReason(t *testing.T) {
	order := authorizedOrder("usd")
	order.Meta[domain.MetaIntentionStatus] = string(domain.IntentSucceeded)
	store := newFakeOrderStore(order)
	api := &fakePaymentAPI{
		refund: domain.Refund{ID: "re_123", Currency: "usd"},
	}
	svc := newTestService(store, api, &fakeRecorder{})

	err := svc.Refund(context.Background(), "order_1", 1999, "some reason")
	require.NoError(t, err)

	note := store.lastNote("order_1")
	assert.Contains(t, note, "Reason: some reason")
}

func TestRefundCurrencyFallsBackToOrder(t *testing.T) {
	order := authorizedOrder("usd")
	order.Meta[domain.MetaIntentionStatus] = string(domain.IntentSucceeded)
	order.Meta[domain.MetaIntentCurrency] = "EUR"
	store := newFakeOrderStore(order)
	api := &fakePaymentAPI{
		refund: domain.Refund{ID: "re_123"},
	}
	svc := newTestService(store, api, &fakeRecorder{})

	err := svc.Refund(context.Background(), "order_1", 1999, "")
	require.NoError(t, err)

	assert.Contains(t, store.lastNote("order_1"), money.Format(1999, "eur"))
}

func TestRefundAPIFailure(t *testing.T) {
	order := authorizedOrder("usd")
	order.Status = domain.StatusProcessing
	order.Meta[domain.MetaIntentionStatus] = string(domain.IntentSucceeded)
	order.Meta[domain.MetaIntentCurrency] = "EUR"
	store := newFakeOrderStore(order)
	api := &fakePaymentAPI{
		refundErr: &APIError{Message: "Test message", Code: "charge_already_refunded"},
	}
	rec := &fakeRecorder{}
	svc := newTestService(store, api, rec)

	err := svc.Refund(context.Background(), "order_1", 1999, "")

	var remote *RemoteAPIError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "refund", remote.Op)
	assert.Equal(t, "Test message", remote.Message)
	assert.Equal(t, "charge_already_refunded", remote.Code)

	assert.Equal(t, domain.StatusProcessing, store.status("order_1"))

	note := store.lastNote("order_1")
	assert.Contains(t, note, "failed to complete")
	assert.Contains(t, note, "Test message")
	assert.Contains(t, note, money.Format(1999, "eur"))
	assert.Empty(t, rec.events)
}

func TestRefundMissingCharge(t *testing.T) {
	order := authorizedOrder("usd")
	order.Meta[domain.MetaIntentionStatus] = string(domain.IntentSucceeded)
	delete(order.Meta, domain.MetaChargeID)
	store := newFakeOrderStore(order)
	api := &fakePaymentAPI{}
	svc := newTestService(store, api, &fakeRecorder{})

	err := svc.Refund(context.Background(), "order_1", 1999, "")

	require.ErrorIs(t, err, ErrMissingCharge)
	assert.Zero(t, api.refundCalls)
}

func TestCancelAuthorizationSuccess(t *testing.T) {
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		cancelIntent: domain.PaymentIntent{ID: "pi_123", Status: domain.IntentCanceled},
	}
	rec := &fakeRecorder{}
	svc := newTestService(store, api, rec)

	err := svc.CancelAuthorization(context.Background(), "order_1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelled, store.status("order_1"))
	assert.Equal(t, "canceled", store.meta("order_1", domain.MetaIntentionStatus))
	assert.Contains(t, store.lastNote("order_1"), "successfully cancelled")
	require.Len(t, rec.events, 1)
	assert.Equal(t, "AuthorizationCanceled", rec.events[0].eventType)
}

func TestCancelAuthorizationAlreadyCanceledRemotely(t *testing.T) {
	// The cancel call fails but the re-fetch proves the intent is already
	// canceled. That counts as success.
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		cancelErr: &APIError{Message: "test exception"},
		getIntent: domain.PaymentIntent{ID: "pi_123", Status: domain.IntentCanceled},
	}
	svc := newTestService(store, api, &fakeRecorder{})

	err := svc.CancelAuthorization(context.Background(), "order_1")
	require.NoError(t, err)

	assert.Equal(t, 1, api.getCalls)
	assert.Equal(t, domain.StatusCancelled, store.status("order_1"))
	assert.Contains(t, store.lastNote("order_1"), "successfully cancelled")
}

func TestCancelAuthorizationFailure(t *testing.T) {
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		cancelErr: &APIError{Message: "test exception"},
		getErr:    errors.New("ignore this"),
	}
	svc := newTestService(store, api, &fakeRecorder{})

	err := svc.CancelAuthorization(context.Background(), "order_1")

	var remote *RemoteAPIError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "cancel", remote.Op)
	assert.Equal(t, "test exception", remote.Message)

	assert.Equal(t, domain.StatusOnHold, store.status("order_1"))

	note := store.lastNote("order_1")
	assert.Contains(t, note, "test exception")
	assert.NotContains(t, note, "ignore this")
}

func TestCancelAuthorizationStillValidRemotely(t *testing.T) {
	// Cancel fails and the re-fetch shows the intent still uncanceled; the
	// order stays put.
	store := newFakeOrderStore(authorizedOrder("usd"))
	api := &fakePaymentAPI{
		cancelErr: &APIError{Message: "test exception"},
		getIntent: domain.PaymentIntent{ID: "pi_123", Status: domain.IntentRequiresCapture},
	}
	svc := newTestService(store, api, &fakeRecorder{})

	err := svc.CancelAuthorization(context.Background(), "order_1")
	require.Error(t, err)

	assert.Equal(t, domain.StatusOnHold, store.status("order_1"))
	assert.Equal(t, "requires_capture", store.meta("order_1", domain.MetaIntentionStatus))
}

func TestOperationsAcquireOrderLock(t *testing.T) {
	store := newFakeOrderStore(authorizedOrder("usd"))
	locks := &fakeLocker{}
	api := &fakePaymentAPI{
		captureIntent: domain.PaymentIntent{ID: "pi_123", Status: domain.IntentSucceeded, Currency: "usd"},
	}
	svc := NewService(discardLogger(), store, api, locks, &fakeRecorder{})

	_, err := svc.Capture(context.Background(), "order_1")
	require.NoError(t, err)

	require.Len(t, locks.acquired, 1)
	assert.Equal(t, "order_1", locks.acquired[0])
}
