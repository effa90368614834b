package application

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/paybridge/payments-gateway/internal/gateway/domain"
	"github.com/paybridge/payments-gateway/pkg/money"
)

// Service orchestrates the payment-intent lifecycle for store orders:
// capture, refund and authorization cancellation. Every operation acquires
// the per-order lock, talks to the processor, reconciles order state and
// appends an audit note before returning. Local state must never contradict
// known remote truth: when a failed call is followed by a re-fetch proving
// the intent moved on server-side, the order is reconciled to match.
type Service struct {
	log    *slog.Logger
	orders OrderStore
	api    PaymentAPI
	locks  Locker
	events EventRecorder
}

func NewService(log *slog.Logger, orders OrderStore, api PaymentAPI, locks Locker, events EventRecorder) *Service {
	return &Service{log: log, orders: orders, api: api, locks: locks, events: events}
}

// CaptureStatusFailed is the result status reported when the capture call
// itself failed, as opposed to the processor answering with a non-captured
// intent status.
const CaptureStatusFailed = "failed"

// CaptureResult is the shape REST callers consume. On API failure it is
// still populated: status "failed", message carrying the processor's original
// error text.
type CaptureResult struct {
	Status   string `json:"status"`
	IntentID string `json:"id"`
	Message  string `json:"message,omitempty"`
}

// Capture settles the order's authorized payment intent. On API failure the
// returned error is a *RemoteAPIError, or an *IntentExpiredError when the
// fallback re-fetch finds the authorization expired.
func (s *Service) Capture(ctx context.Context, orderID string) (CaptureResult, error) {
	release, err := s.locks.Acquire(ctx, orderID)
	if err != nil {
		return CaptureResult{}, err
	}
	defer release()

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return CaptureResult{}, err
	}
	intentID := order.MetaValue(domain.MetaIntentID)
	if intentID == "" {
		return CaptureResult{}, ErrMissingIntent
	}

	intent, err := s.api.CaptureIntention(ctx, intentID, order.TotalMinor)
	if err != nil {
		return s.reconcileFailedCapture(ctx, order, intentID, err)
	}

	if err := s.orders.UpdateMeta(ctx, order.ID, domain.MetaIntentionStatus, string(intent.Status)); err != nil {
		return CaptureResult{}, err
	}

	amount := money.Format(order.TotalMinor, captureNoteCurrency(order, intent))

	if intent.Status != domain.IntentSucceeded {
		// The processor answered but the capture did not take effect
		// (typically requires_capture echoed back). The order stays on hold.
		if err := s.orders.AppendNote(ctx, order.ID, composeNote(noteCaptureFailed, amount, intent.ChargeID)); err != nil {
			return CaptureResult{}, err
		}
		s.record(ctx, order.ID, "PaymentCaptureFailed", domain.PaymentCaptureFailed{
			OrderID:  order.ID,
			IntentID: intentID,
			Reason:   string(intent.Status),
		})
		return CaptureResult{Status: string(intent.Status), IntentID: intentID}, nil
	}

	mapping := MapIntentStatus(order.Status, intent.Status)
	if err := s.orders.SetStatus(ctx, order.ID, mapping.OrderStatus); err != nil {
		return CaptureResult{}, err
	}
	if err := s.orders.AppendNote(ctx, order.ID, composeNote(noteCaptureSucceeded, amount, intent.ChargeID)); err != nil {
		return CaptureResult{}, err
	}
	s.record(ctx, order.ID, "PaymentCaptured", domain.PaymentCaptured{
		OrderID:     order.ID,
		IntentID:    intentID,
		AmountMinor: order.TotalMinor,
		Currency:    captureNoteCurrency(order, intent),
	})
	return CaptureResult{Status: string(intent.Status), IntentID: intentID}, nil
}

// reconcileFailedCapture handles the capture call failing outright. The
// intent may still have changed server-side, so it is read back once; that
// secondary call's own failure is logged and discarded, never propagated
// over the primary error.
func (s *Service) reconcileFailedCapture(ctx context.Context, order domain.Order, intentID string, captureErr error) (CaptureResult, error) {
	msg := errorMessage(captureErr)
	result := CaptureResult{Status: CaptureStatusFailed, IntentID: intentID, Message: msg}

	intent, refetchErr := s.api.GetIntent(ctx, intentID)
	if refetchErr == nil && intent.Status == domain.IntentCanceled {
		// The authorization expired remotely. The triggering call failed,
		// but the order must follow the remote truth.
		s.updateMetaLogged(ctx, order.ID, domain.MetaIntentionStatus, string(domain.IntentCanceled))
		s.setStatusLogged(ctx, order.ID, domain.StatusCancelled)
		s.noteLogged(ctx, order.ID, composeNote(noteAuthorizationExpired, intentID))
		s.record(ctx, order.ID, "AuthorizationCanceled", domain.AuthorizationCanceled{OrderID: order.ID, IntentID: intentID})
		return result, &IntentExpiredError{IntentID: intentID, Message: msg}
	}

	if refetchErr != nil {
		s.log.Debug("intent re-fetch after failed capture also failed", "order_id", order.ID, "err", refetchErr)
	} else {
		s.updateMetaLogged(ctx, order.ID, domain.MetaIntentionStatus, string(intent.Status))
	}

	amount := money.Format(order.TotalMinor, order.IntentCurrency())
	s.noteLogged(ctx, order.ID, composeNote(noteCaptureError, amount, intentID, msg))
	s.record(ctx, order.ID, "PaymentCaptureFailed", domain.PaymentCaptureFailed{
		OrderID:  order.ID,
		IntentID: intentID,
		Reason:   msg,
	})
	return result, remoteErr("capture", captureErr)
}

// Refund returns previously captured funds. A payment still in
// requires_capture was never captured and is rejected up front with an
// *UncapturedPaymentError, without any remote call. Refunds never move the
// order status; capture and cancel are the only operations that do.
func (s *Service) Refund(ctx context.Context, orderID string, amountMinor int64, reason string) error {
	release, err := s.locks.Acquire(ctx, orderID)
	if err != nil {
		return err
	}
	defer release()

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}

	if domain.IntentStatus(order.MetaValue(domain.MetaIntentionStatus)) == domain.IntentRequiresCapture {
		return &UncapturedPaymentError{OrderID: orderID}
	}
	chargeID := order.MetaValue(domain.MetaChargeID)
	if chargeID == "" {
		return ErrMissingCharge
	}

	refund, err := s.api.RefundCharge(ctx, chargeID, amountMinor, reason)
	if err != nil {
		msg := errorMessage(err)
		amount := money.Format(amountMinor, order.IntentCurrency())
		s.noteLogged(ctx, order.ID, composeNote(noteRefundFailed, amount, msg))
		return remoteErr("refund", err)
	}

	currency := refund.Currency
	if currency == "" {
		currency = order.IntentCurrency()
	}
	amount := money.Format(amountMinor, currency)

	content := composeNote(noteRefundSucceeded, amount, refund.ID)
	if reason != "" {
		content = composeNote(noteRefundSucceededReason, amount, refund.ID, reason)
	}
	if err := s.orders.AppendNote(ctx, order.ID, content); err != nil {
		return err
	}
	s.record(ctx, order.ID, "PaymentRefunded", domain.PaymentRefunded{
		OrderID:     order.ID,
		RefundID:    refund.ID,
		AmountMinor: amountMinor,
		Currency:    currency,
		Reason:      reason,
	})
	return nil
}

// CancelAuthorization voids the order's uncaptured intent. Side-effecting:
// callers consume the returned error for logging only. When the cancel call
// fails but the re-fetch shows the intent already canceled remotely, the
// cancellation is treated as done.
func (s *Service) CancelAuthorization(ctx context.Context, orderID string) error {
	release, err := s.locks.Acquire(ctx, orderID)
	if err != nil {
		return err
	}
	defer release()

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	intentID := order.MetaValue(domain.MetaIntentID)
	if intentID == "" {
		return ErrMissingIntent
	}

	if _, err := s.api.CancelIntention(ctx, intentID); err != nil {
		intent, refetchErr := s.api.GetIntent(ctx, intentID)
		if refetchErr != nil || intent.Status != domain.IntentCanceled {
			if refetchErr != nil {
				s.log.Debug("intent re-fetch after failed cancellation also failed", "order_id", order.ID, "err", refetchErr)
			}
			s.noteLogged(ctx, order.ID, composeNote(noteCancelFailed, errorMessage(err)))
			return remoteErr("cancel", err)
		}
		// Already canceled remotely; reconcile as a successful cancellation.
	}

	if err := s.orders.UpdateMeta(ctx, order.ID, domain.MetaIntentionStatus, string(domain.IntentCanceled)); err != nil {
		return err
	}
	if err := s.orders.SetStatus(ctx, order.ID, domain.StatusCancelled); err != nil {
		return err
	}
	if err := s.orders.AppendNote(ctx, order.ID, composeNote(noteCancelSucceeded, intentID)); err != nil {
		return err
	}
	s.record(ctx, order.ID, "AuthorizationCanceled", domain.AuthorizationCanceled{OrderID: order.ID, IntentID: intentID})
	return nil
}

// captureNoteCurrency picks the currency for a capture note: the intent's own
// currency when the processor reported one, else the order's stored intent
// currency, else the order currency.
func captureNoteCurrency(order domain.Order, intent domain.PaymentIntent) string {
	if intent.Currency != "" {
		return intent.Currency
	}
	return order.IntentCurrency()
}

func (s *Service) record(ctx context.Context, orderID, eventType string, payload any) {
	if s.events == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("event marshal failed", "order_id", orderID, "type", eventType, "err", err)
		return
	}
	if err := s.events.Record(ctx, orderID, eventType, b); err != nil {
		s.log.Warn("event record failed", "order_id", orderID, "type", eventType, "err", err)
	}
}

// The *Logged write helpers are used on failure paths that already carry a
// primary error to return: a store write failing there is logged, not allowed
// to replace the error the caller needs to see.

func (s *Service) noteLogged(ctx context.Context, orderID, content string) {
	if err := s.orders.AppendNote(ctx, orderID, content); err != nil {
		s.log.Error("append note failed", "order_id", orderID, "err", err)
	}
}

func (s *Service) updateMetaLogged(ctx context.Context, orderID, key, value string) {
	if err := s.orders.UpdateMeta(ctx, orderID, key, value); err != nil {
		s.log.Error("update meta failed", "order_id", orderID, "key", key, "err", err)
	}
}

func (s *Service) setStatusLogged(ctx context.Context, orderID string, status domain.OrderStatus) {
	if err := s.orders.SetStatus(ctx, orderID, status); err != nil {
		s.log.Error("set status failed", "order_id", orderID, "status", status, "err", err)
	}
}
