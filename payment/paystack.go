package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Paystack looks transactions up through the Paystack REST API with the
// server-held secret key.
type Paystack struct {
	secret  string
	baseURL string
	client  *http.Client
}

func NewPaystack(secret, baseURL string, client *http.Client) *Paystack {
	if client == nil {
		client = http.DefaultClient
	}
	return &Paystack{
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (p *Paystack) Name() string { return "paystack" }

func (p *Paystack) Lookup(ctx context.Context, reference string) (Transaction, error) {
	if p.secret == "" {
		return Transaction{}, ErrNotConfigured
	}

	u := p.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Transaction{}, fmt.Errorf("building paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")

	resp, err := p.client.Do(req)
	if err != nil {
		return Transaction{}, fmt.Errorf("calling paystack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Transaction{}, &StatusError{Code: resp.StatusCode}
	}

	var body struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    *struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Transaction{}, fmt.Errorf("decoding paystack response: %v: %w", err, ErrMalformed)
	}
	if body.Data == nil {
		return Transaction{}, fmt.Errorf("paystack response without data (%s): %w", body.Message, ErrMalformed)
	}

	return Transaction{
		Reference: body.Data.Reference,
		Status:    body.Data.Status,
		Amount:    FromMinor(body.Data.Amount),
		Currency:  strings.ToUpper(body.Data.Currency),
	}, nil
}
