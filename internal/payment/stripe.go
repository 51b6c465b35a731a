package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Stripe creates PaymentIntents. Construct once at startup.
type Stripe struct {
	api intentAPI
}

func NewStripe(secretKey string) *Stripe {
	return &Stripe{api: &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}}
}

func (s *Stripe) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error) {
	minor := ToMinorUnits(amount, currency)
	if minor <= 0 {
		return Intent{}, fmt.Errorf("%w: amount must be positive, got %s", ErrGateway, amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return Intent{}, fmt.Errorf("%w: stripe %s: %s", ErrGateway, se.Type, se.Msg)
		}
		return Intent{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// Unconfigured rejects every intent; used when no gateway credentials are set.
type Unconfigured struct{}

func (Unconfigured) CreateIntent(context.Context, decimal.Decimal, string, map[string]string) (Intent, error) {
	return Intent{}, fmt.Errorf("%w: gateway not configured", ErrGateway)
}
