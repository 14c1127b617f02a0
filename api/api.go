package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/school-of-presence/api/middleware"
	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/core/auth"
	"github.com/irsalhamdi/school-of-presence/core/booking"
	"github.com/irsalhamdi/school-of-presence/core/checkout"
	"github.com/irsalhamdi/school-of-presence/core/course"
	"github.com/irsalhamdi/school-of-presence/core/lesson"
	"github.com/irsalhamdi/school-of-presence/core/profile"
	"github.com/irsalhamdi/school-of-presence/core/purchase"
	"github.com/irsalhamdi/school-of-presence/core/user"
	"github.com/irsalhamdi/school-of-presence/core/waitlist"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/metrics"
	"github.com/irsalhamdi/school-of-presence/pricing"
	"github.com/irsalhamdi/school-of-presence/rate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	SiteURL          string
	Pricer           *pricing.Resolver
	Reconciler       *purchase.Reconciler
	Intake           *booking.Intake
	Checkout         *checkout.Checkout
	Limiter          *rate.Limiter
	TrustedProxies   middleware.Proxies
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log, cfg.TrustedProxies))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	identify := auth.Identify(cfg.Session)
	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)
	limit := middleware.RateLimit(cfg.Limiter, cfg.TrustedProxies)

	owners := purchase.Store{DB: cfg.DB}
	gate := purchase.Gate(owners, cfg.SiteURL)
	owned := purchase.RequireOwnership(owners)

	a.Router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	a.Handle(http.MethodGet, "/readiness", handleReadiness(cfg.DB))

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), limit)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limit)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPost, "/users", user.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/profile", profile.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPut, "/profile", profile.HandleUpdate(cfg.DB), authen)
	a.Handle(http.MethodPut, "/profile/notifications", profile.HandleUpdateNotifications(cfg.DB), authen)
	a.Handle(http.MethodPut, "/profile/password", profile.HandleChangePassword(cfg.DB), authen)

	a.Handle(http.MethodGet, "/courses/owned", course.HandleListOwned(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB, cfg.Pricer), identify)
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB, cfg.Pricer), identify)
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/courses/{id}", course.HandleUpdate(cfg.DB), admin)
	a.Handle(http.MethodPost, "/lessons", lesson.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/dashboard/courses/{id}", lesson.HandleDashboard(cfg.DB), identify, gate)
	a.Handle(http.MethodPut, "/dashboard/courses/{id}/progress", lesson.HandleUpdateProgress(cfg.DB), identify, owned)
	a.Handle(http.MethodPost, "/dashboard/courses/{id}/complete", lesson.HandleComplete(cfg.DB), identify, owned)

	a.Handle(http.MethodPost, "/purchases", purchase.HandleConfirm(cfg.Reconciler), identify)

	a.Handle(http.MethodGet, "/services", booking.HandleListServices(cfg.Pricer))
	a.Handle(http.MethodPost, "/api/bookings", booking.HandleCreate(cfg.Intake), limit)
	a.Handle(http.MethodGet, "/api/bookings", booking.HandleShow(booking.Store{DB: cfg.DB}), identify)
	a.Handle(http.MethodPut, "/api/bookings/{id}/payment", booking.HandleConfirmPayment(cfg.Intake), limit)

	a.Handle(http.MethodPost, "/payments/init", checkout.HandleInit(cfg.Checkout), limit)
	a.Handle(http.MethodGet, "/pricing/rate", checkout.HandleRate(cfg.Pricer))

	a.Handle(http.MethodPost, "/waitlist", waitlist.HandleJoin(cfg.DB), limit)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

func handleReadiness(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		status := struct {
			Status string `json:"status"`
		}{
			Status: "ok",
		}

		if err := database.StatusCheck(ctx, db); err != nil {
			status.Status = "db not ready"
			return web.Respond(ctx, w, status, http.StatusServiceUnavailable)
		}

		return web.Respond(ctx, w, status, http.StatusOK)
	}
}
