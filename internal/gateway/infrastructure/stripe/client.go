// Package stripe adapts the remote payment processor to the application's
// PaymentAPI port.
package stripe

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/paybridge/payments-gateway/internal/gateway/application"
	"github.com/paybridge/payments-gateway/internal/gateway/domain"
)

type Client struct {
	sc *client.API
}

// New builds a client bound to the given secret key. The per-client API
// avoids the package-level globals stripe-go also offers.
func New(apiKey string) *Client {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &Client{sc: sc}
}

func (c *Client) CaptureIntention(ctx context.Context, intentID string, amountMinor int64) (domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentCaptureParams{
		Params:          stripe.Params{Context: ctx},
		AmountToCapture: stripe.Int64(amountMinor),
	}
	pi, err := c.sc.PaymentIntents.Capture(intentID, params)
	if err != nil {
		return domain.PaymentIntent{}, apiError(err)
	}
	return toIntent(pi), nil
}

func (c *Client) CancelIntention(ctx context.Context, intentID string) (domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{
		Params: stripe.Params{Context: ctx},
	}
	pi, err := c.sc.PaymentIntents.Cancel(intentID, params)
	if err != nil {
		return domain.PaymentIntent{}, apiError(err)
	}
	return toIntent(pi), nil
}

func (c *Client) GetIntent(ctx context.Context, intentID string) (domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	}
	pi, err := c.sc.PaymentIntents.Get(intentID, params)
	if err != nil {
		return domain.PaymentIntent{}, apiError(err)
	}
	return toIntent(pi), nil
}

func (c *Client) RefundCharge(ctx context.Context, chargeID string, amountMinor int64, reason string) (domain.Refund, error) {
	params := &stripe.RefundParams{
		Params: stripe.Params{Context: ctx},
		Charge: stripe.String(chargeID),
		Amount: stripe.Int64(amountMinor),
	}
	if reason != "" {
		params.AddMetadata("reason", reason)
	}
	r, err := c.sc.Refunds.New(params)
	if err != nil {
		return domain.Refund{}, apiError(err)
	}
	out := domain.Refund{
		ID:          r.ID,
		AmountMinor: r.Amount,
		Currency:    string(r.Currency),
		Status:      string(r.Status),
		Reason:      reason,
	}
	if r.Charge != nil {
		out.ChargeID = r.Charge.ID
	}
	return out, nil
}

// CreateCustomer mints the remote customer record the saved-payment-method
// flow attaches methods to. The store user id travels as metadata so support
// can map records back.
func (c *Client) CreateCustomer(ctx context.Context, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	}
	params.AddMetadata("user_id", userID)
	cust, err := c.sc.Customers.New(params)
	if err != nil {
		return "", apiError(err)
	}
	return cust.ID, nil
}

func (c *Client) CreateAndConfirmSetupIntent(ctx context.Context, paymentMethodID, customerID string) (domain.SetupIntent, error) {
	params := &stripe.SetupIntentParams{
		Params:        stripe.Params{Context: ctx},
		PaymentMethod: stripe.String(paymentMethodID),
		Customer:      stripe.String(customerID),
		Confirm:       stripe.Bool(true),
	}
	si, err := c.sc.SetupIntents.New(params)
	if err != nil {
		return domain.SetupIntent{}, apiError(err)
	}
	return toSetupIntent(si), nil
}

func (c *Client) GetSetupIntent(ctx context.Context, setupIntentID string) (domain.SetupIntent, error) {
	params := &stripe.SetupIntentParams{
		Params: stripe.Params{Context: ctx},
	}
	si, err := c.sc.SetupIntents.Get(setupIntentID, params)
	if err != nil {
		return domain.SetupIntent{}, apiError(err)
	}
	return toSetupIntent(si), nil
}

func toIntent(pi *stripe.PaymentIntent) domain.PaymentIntent {
	out := domain.PaymentIntent{
		ID:           pi.ID,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Created:      time.Unix(pi.Created, 0).UTC(),
		Status:       domain.IntentStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
	}
	if pi.Customer != nil {
		out.CustomerID = pi.Customer.ID
	}
	if pi.PaymentMethod != nil {
		out.PaymentMethodID = pi.PaymentMethod.ID
	}
	if pi.LatestCharge != nil {
		out.ChargeID = pi.LatestCharge.ID
	}
	return out
}

func toSetupIntent(si *stripe.SetupIntent) domain.SetupIntent {
	out := domain.SetupIntent{
		ID:     si.ID,
		Status: domain.IntentStatus(si.Status),
	}
	if si.PaymentMethod != nil {
		out.PaymentMethodID = si.PaymentMethod.ID
	}
	return out
}

// apiError translates any processor failure into the port's typed error.
// Processor-reported errors keep their own message, code and HTTP status;
// transport failures surface as an ordinary API failure so callers drive the
// same fallback path either way.
func apiError(err error) *application.APIError {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		return &application.APIError{
			Message:    sErr.Msg,
			Code:       string(sErr.Code),
			HTTPStatus: sErr.HTTPStatusCode,
		}
	}
	return &application.APIError{Message: err.Error(), Code: "connection_error"}
}
