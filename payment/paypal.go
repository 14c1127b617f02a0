package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
)

// PayPal treats the reference as a checkout order id. Only captured orders
// count as settled.
type PayPal struct {
	client *paypal.Client
}

func NewPayPal(client *paypal.Client) *PayPal {
	return &PayPal{client: client}
}

func (p *PayPal) Name() string { return "paypal" }

func (p *PayPal) Lookup(ctx context.Context, reference string) (Transaction, error) {
	if p.client == nil {
		return Transaction{}, ErrNotConfigured
	}

	ord, err := p.client.GetOrder(ctx, reference)
	if err != nil {
		var perr *paypal.ErrorResponse
		if errors.As(err, &perr) && perr.Response != nil {
			return Transaction{}, &StatusError{Code: perr.Response.StatusCode, Err: err}
		}
		return Transaction{}, fmt.Errorf("fetching paypal order: %w", err)
	}

	tx := Transaction{Reference: ord.ID, Status: ord.Status}
	if ord.Status == "COMPLETED" {
		tx.Status = StatusSuccess
	}

	if len(ord.PurchaseUnits) == 0 || ord.PurchaseUnits[0].Amount == nil {
		return Transaction{}, fmt.Errorf("paypal order %s without amount: %w", ord.ID, ErrMalformed)
	}

	amt := ord.PurchaseUnits[0].Amount
	tx.Amount, err = decimal.NewFromString(amt.Value)
	if err != nil {
		return Transaction{}, fmt.Errorf("paypal amount %q: %v: %w", amt.Value, err, ErrMalformed)
	}
	tx.Currency = strings.ToUpper(amt.Currency)

	return tx, nil
}
