// Package payment is the server side of the payment trust boundary. A
// reference reported by the browser is only a claim; Verifier asks the
// gateway what actually happened to it and refuses anything it cannot
// confirm.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/irsalhamdi/school-of-presence/metrics"
	"github.com/shopspring/decimal"
)

const StatusSuccess = "success"

var (
	ErrNotConfigured = errors.New("payment gateway is not configured")
	ErrMalformed     = errors.New("malformed gateway response")
	ErrNoQuote       = errors.New("no quote issued for reference")
)

// Transaction is what a gateway reports for a reference. Amount is in major
// units of Currency.
type Transaction struct {
	Reference string
	Status    string
	Amount    decimal.Decimal
	Currency  string
}

type Gateway interface {
	Name() string
	Lookup(ctx context.Context, reference string) (Transaction, error)
}

// StatusError is returned by gateways answering with a non-2xx status.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway answered HTTP %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("gateway answered HTTP %d", e.Code)
}

func (e *StatusError) Unwrap() error { return e.Err }

type Price struct {
	Amount   decimal.Decimal
	Currency string
}

func (p Price) String() string {
	return p.Amount.StringFixed(2) + " " + p.Currency
}

// VerifiedPayment is the gateway's account of a settled payment. It is used
// once to gate a record and never stored as such.
type VerifiedPayment struct {
	Reference string
	Amount    decimal.Decimal
	Currency  string
}

type Kind int

const (
	KindUnreachable Kind = iota + 1
	KindStatus
	KindMalformed
	KindUnconfigured
	KindNotSuccessful
	KindCurrency
	KindAmountMismatch
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindStatus:
		return "http_status"
	case KindMalformed:
		return "malformed"
	case KindUnconfigured:
		return "unconfigured"
	case KindNotSuccessful:
		return "not_successful"
	case KindCurrency:
		return "currency"
	case KindAmountMismatch:
		return "amount_mismatch"
	}
	return "unknown"
}

type VerificationError struct {
	Kind       Kind
	Reference  string
	HTTPStatus int
	Err        error
}

func (e *VerificationError) Error() string {
	switch e.Kind {
	case KindUnreachable:
		return "payment verification connection failed"
	case KindStatus:
		return fmt.Sprintf("payment verification failed (HTTP %d)", e.HTTPStatus)
	case KindUnconfigured:
		return "payment verification is unavailable"
	case KindCurrency:
		return "payment currency not accepted"
	case KindAmountMismatch:
		return "payment amount mismatch"
	}
	return "payment verification failed"
}

func (e *VerificationError) Unwrap() error { return e.Err }

// LogFields describes the failure for the request log.
func (e *VerificationError) LogFields() map[string]interface{} {
	f := map[string]interface{}{
		"payment_check": e.Kind.String(),
		"reference":     e.Reference,
	}
	if e.HTTPStatus != 0 {
		f["gateway_status"] = e.HTTPStatus
	}
	return f
}

// RecordingError means the gateway took the money but the record of what it
// paid for could not be stored. It must reach the customer together with the
// reference.
type RecordingError struct {
	Reference string
	Err       error
}

func (e *RecordingError) Error() string {
	return fmt.Sprintf("payment succeeded but we couldn't record it, contact support with reference %s", e.Reference)
}

func (e *RecordingError) Unwrap() error { return e.Err }

func (e *RecordingError) LogFields() map[string]interface{} {
	return map[string]interface{}{
		"payment_check": "recording_failed",
		"reference":     e.Reference,
	}
}

// Quote is the exchange rate a reference was priced at when the payment
// widget was opened. AmountMinor is what the widget was told to charge.
type Quote struct {
	Reference   string          `db:"reference"`
	Item        string          `db:"item"`
	Currency    string          `db:"currency"`
	Rate        decimal.Decimal `db:"rate"`
	AmountMinor int64           `db:"amount_minor"`
	CreatedAt   time.Time       `db:"created_at"`
}

// QuoteBook finds the quote issued for a reference, or ErrNoQuote.
type QuoteBook interface {
	Quoted(ctx context.Context, reference string) (Quote, error)
}

// Converter brings an amount into the reference currency.
type Converter interface {
	ToReference(amount decimal.Decimal, currency string) (decimal.Decimal, error)
}

type Verifier struct {
	gateway Gateway
	conv    Converter
	quotes  QuoteBook
	epsilon decimal.Decimal
	timeout time.Duration
}

func NewVerifier(gw Gateway, conv Converter, epsilon decimal.Decimal, timeout time.Duration) *Verifier {
	return &Verifier{
		gateway: gw,
		conv:    conv,
		epsilon: epsilon,
		timeout: timeout,
	}
}

// WithQuotes makes settlement currency amounts convert at the rate their
// reference was issued with, so a rate refresh between checkout and
// verification does not turn an exact payment into a mismatch. References
// without a quote convert at the current rate.
func (v *Verifier) WithQuotes(q QuoteBook) *Verifier {
	v.quotes = q
	return v
}

// Verify confirms with the gateway that reference settled for expected,
// within epsilon once both amounts are in the reference currency. Any doubt
// is an error.
func (v *Verifier) Verify(ctx context.Context, reference string, expected Price) (VerifiedPayment, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return VerifiedPayment{}, &VerificationError{Kind: KindNotSuccessful, Err: errors.New("empty payment reference")}
	}

	tx, err := v.lookup(ctx, reference)
	if err != nil {
		return VerifiedPayment{}, classify(reference, err)
	}

	if tx.Status != StatusSuccess {
		return VerifiedPayment{}, &VerificationError{
			Kind:      KindNotSuccessful,
			Reference: reference,
			Err:       fmt.Errorf("gateway status %q", tx.Status),
		}
	}

	currency := tx.Currency
	if currency == "" {
		currency = expected.Currency
	}

	paid, err := v.paidInReference(ctx, reference, tx.Amount, currency)
	if err != nil {
		return VerifiedPayment{}, err
	}

	want, err := v.conv.ToReference(expected.Amount, expected.Currency)
	if err != nil {
		return VerifiedPayment{}, &VerificationError{Kind: KindCurrency, Reference: reference, Err: err}
	}

	if paid.Sub(want).Abs().GreaterThan(v.epsilon) {
		return VerifiedPayment{}, &VerificationError{
			Kind:      KindAmountMismatch,
			Reference: reference,
			Err:       fmt.Errorf("paid %s %s, expected %s", tx.Amount.StringFixed(2), currency, expected),
		}
	}

	return VerifiedPayment{
		Reference: reference,
		Amount:    tx.Amount,
		Currency:  strings.ToUpper(currency),
	}, nil
}

func (v *Verifier) paidInReference(ctx context.Context, reference string, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	if v.quotes != nil {
		q, err := v.quotes.Quoted(ctx, reference)
		switch {
		case err == nil:
			if strings.EqualFold(q.Currency, currency) && q.Rate.IsPositive() {
				return amount.Div(q.Rate), nil
			}
		case !errors.Is(err, ErrNoQuote):
			return decimal.Zero, &VerificationError{Kind: KindUnreachable, Reference: reference, Err: fmt.Errorf("reading quote: %w", err)}
		}
	}

	paid, err := v.conv.ToReference(amount, currency)
	if err != nil {
		return decimal.Zero, &VerificationError{Kind: KindCurrency, Reference: reference, Err: err}
	}
	return paid, nil
}

func (v *Verifier) lookup(ctx context.Context, reference string) (Transaction, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	start := time.Now()
	tx, err := v.gateway.Lookup(ctx, reference)

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.GatewayLookups.WithLabelValues(v.gateway.Name(), result).Observe(time.Since(start).Seconds())

	return tx, err
}

func classify(reference string, err error) *VerificationError {
	ve := &VerificationError{Reference: reference, Err: err}

	var se *StatusError
	switch {
	case errors.As(err, &se):
		ve.Kind = KindStatus
		ve.HTTPStatus = se.Code
	case errors.Is(err, ErrNotConfigured):
		ve.Kind = KindUnconfigured
	case errors.Is(err, ErrMalformed):
		ve.Kind = KindMalformed
	default:
		ve.Kind = KindUnreachable
	}
	return ve
}

// ToMinor converts a major unit amount to the gateway's minor units
// (cents, pesewas), rounding half away from zero.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
