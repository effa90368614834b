package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paybridge/payments-gateway/internal/gateway/domain"
)

// PaymentMethods runs the saved-card flow: confirming setup intents against
// the processor and attaching the resulting payment methods to store users.
type PaymentMethods struct {
	log       *slog.Logger
	api       PaymentAPI
	customers CustomerStore
	tokens    TokenStore
}

func NewPaymentMethods(log *slog.Logger, api PaymentAPI, customers CustomerStore, tokens TokenStore) *PaymentMethods {
	return &PaymentMethods{log: log, api: api, customers: customers, tokens: tokens}
}

// CreateAndConfirmSetupIntent sets up a payment method for future off-session
// use. A user without a customer record gets one created at the processor
// first; the processor-minted id is linked locally before the setup intent is
// confirmed against it.
func (p *PaymentMethods) CreateAndConfirmSetupIntent(ctx context.Context, userID, paymentMethodID string) (domain.SetupIntent, error) {
	customerID, err := p.customers.CustomerIDByUser(ctx, userID)
	if err != nil {
		return domain.SetupIntent{}, err
	}
	if customerID == "" {
		customerID, err = p.api.CreateCustomer(ctx, userID)
		if err != nil {
			return domain.SetupIntent{}, err
		}
		if err := p.customers.LinkCustomerToUser(ctx, userID, customerID); err != nil {
			return domain.SetupIntent{}, err
		}
	}
	return p.api.CreateAndConfirmSetupIntent(ctx, paymentMethodID, customerID)
}

// AddPaymentMethod attaches the payment method of a confirmed setup intent to
// the user. A setup intent in any non-succeeded state attaches nothing.
func (p *PaymentMethods) AddPaymentMethod(ctx context.Context, userID, setupIntentID string) error {
	customerID, err := p.customers.CustomerIDByUser(ctx, userID)
	if err != nil {
		return err
	}
	if customerID == "" {
		return ErrNoCustomer
	}

	si, err := p.api.GetSetupIntent(ctx, setupIntentID)
	if err != nil {
		return err
	}
	if si.Status != domain.IntentSucceeded {
		return fmt.Errorf("setup intent %s is not confirmed: %s", setupIntentID, si.Status)
	}

	if err := p.tokens.AddPaymentMethodToUser(ctx, userID, si.PaymentMethodID); err != nil {
		return err
	}
	p.log.Info("payment method saved", "user_id", userID, "payment_method_id", si.PaymentMethodID)
	return nil
}
