package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
)

type Config struct {
	conf.Version
	Web      Web
	Cors     Cors
	DB       DB
	Session  Session
	Email    Email
	Gateway  Gateway
	Paystack Paystack
	Stripe   Stripe
	Paypal   Paypal
	Oauth    Oauth
	Pricing  Pricing
	Booking  Booking
	Rate     Rate
	Site     Site
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:20s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User         string        `conf:"default:postgres"`
	Password     string        `conf:"default:postgres,mask"`
	Host         string        `conf:"default:localhost:5432"`
	Name         string        `conf:"default:presence"`
	MaxIdleConns int           `conf:"default:2"`
	MaxOpenConns int           `conf:"default:10"`
	DisableTLS   bool          `conf:"default:true"`
	Timeout      time.Duration `conf:"default:5s"`
}

type Session struct {
	Lifetime   time.Duration `conf:"default:24h"`
	CookieName string        `conf:"default:presence_session"`
	Secure     bool          `conf:"default:false"`
}

type Email struct {
	From     string        `conf:"default:School of Presence <onboarding@resend.dev>"`
	User     string        `conf:"default:resend"`
	Password string        `conf:"mask"`
	Host     string        `conf:"default:smtp.resend.com"`
	Port     int           `conf:"default:587"`
	Admin    string        `conf:"default:bookings@schoolofpresence.com"`
	Attempts uint          `conf:"default:3"`
	Delay    time.Duration `conf:"default:500ms"`
	Timeout  time.Duration `conf:"default:30s"`
}

type Gateway struct {
	Provider string        `conf:"default:paystack,help:paystack|stripe|paypal"`
	Timeout  time.Duration `conf:"default:10s"`
	Epsilon  float64       `conf:"default:0.01"`
}

type Paystack struct {
	SecretKey string `conf:"mask"`
	PublicKey string
	URL       string `conf:"default:https://api.paystack.co"`
}

type Stripe struct {
	APISecret      string `conf:"mask"`
	PublishableKey string
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api-m.sandbox.paypal.com"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000/dashboard"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type Pricing struct {
	ReferenceCurrency  string        `conf:"default:USD"`
	SettlementCurrency string        `conf:"default:GHS"`
	FallbackRate       float64       `conf:"default:15.5"`
	RateURL            string        `conf:"default:https://open.er-api.com/v6/latest"`
	RefreshInterval    time.Duration `conf:"default:1h"`
	Timeout            time.Duration `conf:"default:5s"`
}

type Booking struct {
	SchedulingURL string `conf:"default:https://cal.com/school-of-presence/consultation-30-mins"`
}

type Rate struct {
	Burst    int           `conf:"default:5"`
	Interval time.Duration `conf:"default:2s"`
	Expiry   time.Duration `conf:"default:10m"`
	// Proxies whose X-Forwarded-For is believed, as CIDRs or addresses.
	TrustedProxies []string
}

type Site struct {
	BaseURL string `conf:"default:http://localhost:3000"`
}
