package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/school-of-presence/api"
	"github.com/irsalhamdi/school-of-presence/api/background"
	"github.com/irsalhamdi/school-of-presence/api/middleware"
	"github.com/irsalhamdi/school-of-presence/config"
	"github.com/irsalhamdi/school-of-presence/core/auth"
	"github.com/irsalhamdi/school-of-presence/core/booking"
	"github.com/irsalhamdi/school-of-presence/core/checkout"
	"github.com/irsalhamdi/school-of-presence/core/course"
	"github.com/irsalhamdi/school-of-presence/core/purchase"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/email"
	"github.com/irsalhamdi/school-of-presence/metrics"
	"github.com/irsalhamdi/school-of-presence/notify"
	"github.com/irsalhamdi/school-of-presence/payment"
	"github.com/irsalhamdi/school-of-presence/pricing"
	"github.com/irsalhamdi/school-of-presence/rate"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	const prefix = "PRESENCE"
	var cfg config.Config
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	logger.Infof("startup config:\n%s", out)

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	metrics.Register()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	sessionManager := scs.New()
	sessionManager.Store = memstore.New()
	sessionManager.Lifetime = cfg.Session.Lifetime
	sessionManager.Cookie.Name = cfg.Session.CookieName
	sessionManager.Cookie.Secure = cfg.Session.Secure
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	resolver := pricing.New(pricing.Config{
		Reference:    cfg.Pricing.ReferenceCurrency,
		Settlement:   cfg.Pricing.SettlementCurrency,
		FallbackRate: decimal.NewFromFloat(cfg.Pricing.FallbackRate),
		URL:          cfg.Pricing.RateURL,
		Timeout:      cfg.Pricing.Timeout,
	}, logger.WithField("component", "pricing"))
	go resolver.Run(ctx, cfg.Pricing.RefreshInterval)

	gw, err := payment.Open(cfg, &http.Client{Timeout: cfg.Gateway.Timeout})
	if err != nil {
		return fmt.Errorf("opening payment gateway: %w", err)
	}
	quotes := checkout.Store{DB: db}
	verifier := payment.NewVerifier(gw, resolver, decimal.NewFromFloat(cfg.Gateway.Epsilon), cfg.Gateway.Timeout).
		WithQuotes(quotes)
	logger.Infof("verifying payments with %s", gw.Name())

	bg := background.New(logger)

	mail := email.New(cfg.Email.From, cfg.Email.User, cfg.Email.Password, cfg.Email.Host, cfg.Email.Port, cfg.Email.Timeout)
	if !mail.Configured() {
		logger.Warn("email not configured, notifications will be dropped")
	}
	notifier := notify.New(mail, bg, notify.Config{
		Admin:    cfg.Email.Admin,
		Attempts: cfg.Email.Attempts,
		Delay:    cfg.Email.Delay,
		Timeout:  cfg.Email.Timeout,
	}, logger.WithField("component", "notify"))

	catalog := course.Store{DB: db}
	reconciler := purchase.NewReconciler(
		verifier,
		catalog,
		purchase.Store{DB: db},
		notifier,
		resolver.Reference(),
		logger.WithField("flow", "purchase"),
	)
	intake := booking.NewIntake(
		verifier,
		booking.Store{DB: db},
		notifier,
		resolver,
		booking.Config{SchedulingURL: cfg.Booking.SchedulingURL},
		logger.WithField("flow", "booking"),
	)

	proxies, err := middleware.ParseProxies(cfg.Rate.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parsing trusted proxies: %w", err)
	}

	limiter := rate.NewLimiter(cfg.Rate.Burst, cfg.Rate.Expiry, rate.Every(cfg.Rate.Interval))
	go limiter.Run(ctx, cfg.Rate.Expiry)

	dctx, cancel := context.WithTimeout(ctx, cfg.Oauth.DiscoveryTimeout)
	defer cancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(dctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		DB:               db,
		Session:          sessionManager,
		Providers:        oauthProvs,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
		SiteURL:          cfg.Site.BaseURL,
		Pricer:           resolver,
		Reconciler:       reconciler,
		Intake:           intake,
		Checkout:         checkout.New(catalog, resolver, quotes, payment.PublicKey(cfg)),
		Limiter:          limiter,
		TrustedProxies:   proxies,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)
		stop()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}
