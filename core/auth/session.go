package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/core/claims"
)

const (
	keyUserID     = "userID"
	keyEmail      = "email"
	keyRole       = "role"
	keyOauthState = "oauthState"
)

// LoadAndSave loads the session named by the request cookie and commits it
// right before the first byte of the response is written.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var token string
			if c, err := r.Cookie(sm.Cookie.Name); err == nil {
				token = c.Value
			}

			ctx, err := sm.Load(ctx, token)
			if err != nil {
				return fmt.Errorf("loading session: %w", err)
			}
			r = r.WithContext(ctx)

			sw := &sessionWriter{ResponseWriter: w, ctx: ctx, sm: sm}
			err = handler(ctx, sw, r)
			sw.commit()

			if err != nil {
				return err
			}
			return sw.err
		}
		return h
	}
	return m
}

type sessionWriter struct {
	http.ResponseWriter
	ctx       context.Context
	sm        *scs.SessionManager
	committed bool
	err       error
}

func (sw *sessionWriter) commit() {
	if sw.committed {
		return
	}
	sw.committed = true

	sw.Header().Add("Vary", "Cookie")

	switch sw.sm.Status(sw.ctx) {
	case scs.Modified:
		token, expiry, err := sw.sm.Commit(sw.ctx)
		if err != nil {
			sw.err = fmt.Errorf("committing session: %w", err)
			return
		}
		sw.sm.WriteSessionCookie(sw.ctx, sw.ResponseWriter, token, expiry)
	case scs.Destroyed:
		sw.sm.WriteSessionCookie(sw.ctx, sw.ResponseWriter, "", time.Time{})
	}
}

func (sw *sessionWriter) WriteHeader(code int) {
	sw.commit()
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	sw.commit()
	return sw.ResponseWriter.Write(b)
}

func (sw *sessionWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// login renews the session token to prevent fixation and stores the claims.
func login(ctx context.Context, sm *scs.SessionManager, clm claims.Claims) error {
	if err := sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}

	sm.Put(ctx, keyUserID, clm.UserID)
	sm.Put(ctx, keyEmail, clm.Email)
	sm.Put(ctx, keyRole, clm.Role)
	return nil
}

func sessionClaims(ctx context.Context, sm *scs.SessionManager) (claims.Claims, bool) {
	id := sm.GetString(ctx, keyUserID)
	if id == "" {
		return claims.Claims{}, false
	}

	return claims.Claims{
		UserID: id,
		Email:  sm.GetString(ctx, keyEmail),
		Role:   sm.GetString(ctx, keyRole),
	}, true
}

// Identify sets the claims of a logged in caller and lets anonymous callers
// through. Handlers decide what an anonymous caller may do.
func Identify(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if clm, ok := sessionClaims(ctx, sm); ok {
				ctx = claims.Set(ctx, clm)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Authenticate(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, ok := sessionClaims(ctx, sm)
			if !ok {
				return weberr.NotAuthorized(fmt.Errorf("no session for %s %s", r.Method, r.URL.Path))
			}

			ctx = claims.Set(ctx, clm)
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Admin(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, ok := sessionClaims(ctx, sm)
			if !ok {
				return weberr.NotAuthorized(fmt.Errorf("no session for %s %s", r.Method, r.URL.Path))
			}

			if clm.Role != claims.RoleAdmin {
				return weberr.Forbidden(fmt.Errorf("user[%s] is not an admin", clm.UserID))
			}

			ctx = claims.Set(ctx, clm)
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
