// README: Stripe payment client; the secret key is a constructor argument, never process-wide state.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"rideshare/internal/types"
)

var ErrPayment = errors.New("payment failed")

// intentCreator is the slice of the Stripe API this package uses.
type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeClient is a thin wrapper around stripe-go PaymentIntents.
type StripeClient struct {
	intents  intentCreator
	currency string
}

// NewStripeClient builds a client bound to secretKey. defaultCurrency is used
// for amounts that carry no currency of their own.
func NewStripeClient(secretKey, defaultCurrency string) *StripeClient {
	sc := client.New(secretKey, nil)
	return &StripeClient{intents: sc.PaymentIntents, currency: defaultCurrency}
}

// CreateIntent creates a PaymentIntent for amount and returns its ID.
func (s *StripeClient) CreateIntent(ctx context.Context, amount types.Money, customerID string) (string, error) {
	return s.Charge(ctx, amount, customerID, "")
}

// Charge is CreateIntent with an optional idempotency key; Stripe returns the
// original intent when the key repeats.
func (s *StripeClient) Charge(ctx context.Context, amount types.Money, customerID, idempotencyKey string) (string, error) {
	if amount.Amount <= 0 {
		return "", fmt.Errorf("%w: amount must be positive, got %s", ErrPayment, amount)
	}
	currency := amount.Currency
	if currency == "" {
		currency = s.currency
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount.Amount),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := s.intents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return "", fmt.Errorf("%w: %s: %s", ErrPayment, se.Code, se.Msg)
		}
		return "", fmt.Errorf("%w: %v", ErrPayment, err)
	}
	return pi.ID, nil
}
