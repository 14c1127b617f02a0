package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

// Stripe treats the reference as a PaymentIntent id.
type Stripe struct {
	api *stripecl.API
}

func NewStripe(api *stripecl.API) *Stripe {
	return &Stripe{api: api}
}

func (s *Stripe) Name() string { return "stripe" }

func (s *Stripe) Lookup(ctx context.Context, reference string) (Transaction, error) {
	if s.api == nil || s.api.PaymentIntents == nil {
		return Transaction{}, ErrNotConfigured
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(reference, params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode != 0 {
			return Transaction{}, &StatusError{Code: serr.HTTPStatusCode, Err: err}
		}
		return Transaction{}, fmt.Errorf("retrieving payment intent: %w", err)
	}

	status := string(pi.Status)
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		status = StatusSuccess
	}

	return Transaction{
		Reference: pi.ID,
		Status:    status,
		Amount:    FromMinor(pi.AmountReceived),
		Currency:  strings.ToUpper(string(pi.Currency)),
	}, nil
}
