package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/paybridge/payments-gateway/internal/gateway/domain"
)

const trackingHook = "paybridge_track_order"

// OrderTracker schedules background fraud-signal tracking jobs for newly paid
// orders, gated on the merchant account's fraud-services configuration.
type OrderTracker struct {
	log       *slog.Logger
	orders    OrderStore
	account   AccountService
	scheduler Scheduler
	gatewayID string
}

func NewOrderTracker(log *slog.Logger, orders OrderStore, account AccountService, scheduler Scheduler, gatewayID string) *OrderTracker {
	return &OrderTracker{log: log, orders: orders, account: account, scheduler: scheduler, gatewayID: gatewayID}
}

// ScheduleOrderTracking enqueues a tracking job for the order. Orders paid
// through another gateway, accounts without the sift integration, and orders
// missing a stored payment method id (unless tracking already completed) are
// all skipped silently.
func (t *OrderTracker) ScheduleOrderTracking(ctx context.Context, orderID string) error {
	order, err := t.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentGatewayID != t.gatewayID {
		return nil
	}

	cfg, err := t.account.FraudServicesConfig(ctx)
	if err != nil {
		return err
	}
	if _, ok := cfg["sift"]; !ok {
		return nil
	}

	completed := order.MetaValue(domain.MetaTrackingComplete) == "yes"
	if order.MetaValue(domain.MetaPaymentMethodID) == "" && !completed {
		return nil
	}

	if err := t.scheduler.ScheduleJob(ctx, time.Now(), trackingHook, map[string]string{"order_id": order.ID}); err != nil {
		return err
	}
	t.log.Info("order tracking scheduled", "order_id", order.ID)

	if !completed {
		return t.orders.UpdateMeta(ctx, order.ID, domain.MetaTrackingComplete, "yes")
	}
	return nil
}
