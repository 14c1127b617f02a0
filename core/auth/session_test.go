package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/core/claims"
)

// serve runs h behind LoadAndSave and mw, answering errors the way the
// errors middleware does.
func serve(sm *scs.SessionManager, h web.Handler, mw ...web.Middleware) http.Handler {
	h = web.WrapMiddleware(append([]web.Middleware{LoadAndSave(sm)}, mw...), h)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(r.Context(), w, r); err != nil {
			body, code, ok := weberr.Response(err)
			if !ok {
				code = http.StatusInternalServerError
			}
			web.Respond(r.Context(), w, body, code)
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	sm := scs.New()

	loginH := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := login(ctx, sm, claims.Claims{UserID: "u1", Email: "ama@example.com", Role: claims.RoleUser}); err != nil {
			return err
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	var seen claims.Claims
	whoami := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return err
		}
		seen = clm
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	rec := httptest.NewRecorder()
	serve(sm, whoami, Authenticate(sm)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous request: status %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	serve(sm, loginH).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sm.Cookie.Name {
		t.Fatalf("login did not set the session cookie: %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	serve(sm, whoami, Authenticate(sm)).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("authenticated request: status %d", rec.Code)
	}
	if seen.UserID != "u1" || seen.Email != "ama@example.com" {
		t.Fatalf("unexpected claims %+v", seen)
	}

	req = httptest.NewRequest(http.MethodPost, "/courses", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	serve(sm, whoami, Admin(sm)).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non admin on admin route: status %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	serve(sm, HandleLogout(sm)).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	serve(sm, whoami, Authenticate(sm)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("request after logout: status %d, want 401", rec.Code)
	}
}

func TestIdentifyLetsAnonymousThrough(t *testing.T) {
	sm := scs.New()

	called := false
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		called = true
		if _, err := claims.Get(ctx); err == nil {
			t.Error("anonymous caller got claims")
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	rec := httptest.NewRecorder()
	serve(sm, h, Identify(sm)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/courses/x", nil))

	if !called || rec.Code != http.StatusNoContent {
		t.Fatalf("called = %v status = %d", called, rec.Code)
	}
}
