// Package pricing converts catalog prices, expressed in the reference
// currency, into the settlement currency charged by the payment gateway.
//
// The resolver always has a usable rate: until the first successful fetch it
// answers with the configured fallback, and a failed refresh keeps whatever
// rate was last fetched.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/irsalhamdi/school-of-presence/metrics"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

type Config struct {
	Reference    string
	Settlement   string
	FallbackRate decimal.Decimal
	URL          string
	Timeout      time.Duration
	Client       *http.Client
}

// Quote is the rate currently in use: one unit of Reference costs Rate units
// of Settlement.
type Quote struct {
	Reference  string          `json:"reference"`
	Settlement string          `json:"settlement"`
	Rate       decimal.Decimal `json:"rate"`
	Fallback   bool            `json:"fallback"`
	FetchedAt  *time.Time      `json:"fetchedAt,omitempty"`
}

type Resolver struct {
	cfg Config
	log logrus.FieldLogger

	mu        sync.RWMutex
	rate      decimal.Decimal
	fetchedAt time.Time
}

func New(cfg Config, log logrus.FieldLogger) *Resolver {
	cfg.Reference = strings.ToUpper(cfg.Reference)
	cfg.Settlement = strings.ToUpper(cfg.Settlement)
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}

	metrics.ExchangeRateFallback.Set(1)
	return &Resolver{cfg: cfg, log: log}
}

func (r *Resolver) Quote() Quote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := Quote{
		Reference:  r.cfg.Reference,
		Settlement: r.cfg.Settlement,
		Rate:       r.cfg.FallbackRate,
		Fallback:   true,
	}
	if !r.fetchedAt.IsZero() {
		at := r.fetchedAt
		q.Rate = r.rate
		q.Fallback = false
		q.FetchedAt = &at
	}
	return q
}

func (r *Resolver) Reference() string  { return r.cfg.Reference }
func (r *Resolver) Settlement() string { return r.cfg.Settlement }

// ToSettlement converts a reference currency amount, rounded to cents.
func (r *Resolver) ToSettlement(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Quote().Rate).Round(2)
}

// ToReference converts amount, denominated in currency, to the reference
// currency. Only the reference and settlement currencies are understood.
func (r *Resolver) ToReference(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	switch strings.ToUpper(currency) {
	case r.cfg.Reference:
		return amount, nil
	case r.cfg.Settlement:
		rate := r.Quote().Rate
		if !rate.IsPositive() {
			return decimal.Zero, fmt.Errorf("non positive exchange rate %s", rate)
		}
		return amount.Div(rate), nil
	default:
		return decimal.Zero, fmt.Errorf("%q: %w", currency, ErrUnsupportedCurrency)
	}
}

// Refresh fetches the latest rate. On failure the previous rate stays in use
// and the error is only returned for logging.
func (r *Resolver) Refresh(ctx context.Context) error {
	rate, err := r.fetch(ctx)
	if err != nil {
		r.log.WithError(err).Warn("exchange rate fetch failed, keeping current rate")
		return err
	}

	r.mu.Lock()
	r.rate = rate
	r.fetchedAt = time.Now().UTC()
	r.mu.Unlock()

	f, _ := rate.Float64()
	metrics.ExchangeRate.Set(f)
	metrics.ExchangeRateFallback.Set(0)
	r.log.WithField("rate", rate.String()).Infof("exchange rate %s/%s updated", r.cfg.Reference, r.cfg.Settlement)
	return nil
}

// Run refreshes once and then every interval until ctx is done. A zero
// interval refreshes once.
func (r *Resolver) Run(ctx context.Context, interval time.Duration) {
	_ = r.Refresh(ctx)
	if interval <= 0 {
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = r.Refresh(ctx)
		}
	}
}

func (r *Resolver) fetch(ctx context.Context) (decimal.Decimal, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	url := strings.TrimRight(r.cfg.URL, "/") + "/" + r.cfg.Reference
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("building rate request: %w", err)
	}

	resp, err := r.cfg.Client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("requesting rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rates endpoint answered %s", resp.Status)
	}

	var body struct {
		Result string                     `json:"result"`
		Rates  map[string]decimal.Decimal `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decoding rates: %w", err)
	}

	if body.Result != "" && body.Result != "success" {
		return decimal.Zero, fmt.Errorf("rates endpoint result %q", body.Result)
	}

	rate, ok := body.Rates[r.cfg.Settlement]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("no usable %s rate in response", r.cfg.Settlement)
	}

	return rate, nil
}
