package payment

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/irsalhamdi/school-of-presence/config"
	"github.com/plutov/paypal/v4"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

// Open builds the gateway selected in cfg. A gateway without credentials is
// still returned; it answers every lookup with ErrNotConfigured.
func Open(cfg config.Config, client *http.Client) (Gateway, error) {
	switch strings.ToLower(cfg.Gateway.Provider) {
	case "", "paystack":
		return NewPaystack(cfg.Paystack.SecretKey, cfg.Paystack.URL, client), nil

	case "stripe":
		if cfg.Stripe.APISecret == "" {
			return NewStripe(nil), nil
		}
		api := &stripecl.API{}
		api.Init(cfg.Stripe.APISecret, nil)
		return NewStripe(api), nil

	case "paypal":
		if cfg.Paypal.ClientID == "" || cfg.Paypal.Secret == "" {
			return NewPayPal(nil), nil
		}
		pp, err := paypal.NewClient(cfg.Paypal.ClientID, cfg.Paypal.Secret, cfg.Paypal.URL)
		if err != nil {
			return nil, fmt.Errorf("building paypal client: %w", err)
		}
		if client != nil {
			pp.SetHTTPClient(client)
		}
		return NewPayPal(pp), nil
	}

	return nil, fmt.Errorf("unknown payment gateway %q", cfg.Gateway.Provider)
}

// PublicKey is the key the browser opens the selected gateway's widget with.
func PublicKey(cfg config.Config) string {
	switch strings.ToLower(cfg.Gateway.Provider) {
	case "stripe":
		return cfg.Stripe.PublishableKey
	case "paypal":
		return cfg.Paypal.ClientID
	}
	return cfg.Paystack.PublicKey
}
