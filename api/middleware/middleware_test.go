package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/rate"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func chain(h web.Handler, mw ...web.Middleware) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
	req.RemoteAddr = "10.0.0.7:51234"

	web.WrapMiddleware(mw, h)(context.Background(), rec, req)
	return rec
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestErrorsHidesInternals(t *testing.T) {
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errors.New("pq: password authentication failed")
	}

	rec := chain(h, Errors(quietLog()))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}

	var er weberr.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&er); err != nil {
		t.Fatal(err)
	}
	if er.Error != "internal processing exception" {
		t.Fatalf("message %q", er.Error)
	}
}

func TestErrorsUsesResponse(t *testing.T) {
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return weberr.Conflict(errors.New("dup"), "You're already on the waitlist")
	}

	rec := chain(h, Errors(quietLog()))
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "already on the waitlist") {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestErrorsLogsFields(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return weberr.NewError(errors.New("amount mismatch"), "payment amount mismatch", http.StatusPaymentRequired,
			weberr.WithFields(map[string]interface{}{"reference": "R123"}))
	}

	rec := chain(h, Errors(log))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status %d, want 402", rec.Code)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Data["reference"] != "R123" {
		t.Fatalf("reference not logged: %+v", entry)
	}
	if strings.Contains(rec.Body.String(), "R123") {
		t.Fatalf("log fields leaked into the response: %s", rec.Body.String())
	}
}

func TestPanicsBecomeErrors(t *testing.T) {
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("nil map")
	}

	rec := chain(h, Errors(quietLog()), Panics())
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		seen = ContextRequestID(ctx)
		return nil
	}

	rec := chain(h, RequestID())
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("request id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestRateLimit(t *testing.T) {
	lim := rate.NewLimiter(2, time.Minute, rate.Every(time.Hour))
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	for i := 0; i < 2; i++ {
		if rec := chain(h, Errors(quietLog()), RateLimit(lim, nil)); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}
	if rec := chain(h, Errors(quietLog()), RateLimit(lim, nil)); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over the burst: status %d, want 429", rec.Code)
	}

	if rec := chain(h, RateLimit(nil, nil)); rec.Code != http.StatusNoContent {
		t.Fatalf("nil limiter: status %d", rec.Code)
	}
}

func TestRateLimitIgnoresSpoofedForwarding(t *testing.T) {
	lim := rate.NewLimiter(1, time.Minute, rate.Every(time.Hour))
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	mw := web.WrapMiddleware([]web.Middleware{Errors(quietLog()), RateLimit(lim, nil)}, h)

	passed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
		req.RemoteAddr = "198.51.100.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))

		rec := httptest.NewRecorder()
		mw(context.Background(), rec, req)
		if rec.Code == http.StatusNoContent {
			passed++
		}
	}

	if passed != 1 {
		t.Fatalf("%d requests passed, want 1", passed)
	}
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseProxies([]string{"10.0.0.0/8", "192.0.2.1"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		remote  string
		fwd     string
		proxies Proxies
		want    string
	}{
		{"no proxy", "10.0.0.7:51234", "", proxies, "10.0.0.7"},
		{"untrusted peer keeps its own address", "41.66.1.2:51234", "1.2.3.4", proxies, "41.66.1.2"},
		{"nothing trusted", "10.0.0.7:51234", "41.66.1.2", nil, "10.0.0.7"},
		{"trusted proxy", "10.0.0.7:51234", "41.66.1.2", proxies, "41.66.1.2"},
		{"right most untrusted hop", "10.0.0.7:51234", "6.6.6.6, 41.66.1.2, 192.0.2.1", proxies, "41.66.1.2"},
		{"only proxies", "10.0.0.7:51234", "10.1.1.1", proxies, "10.1.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.fwd != "" {
				req.Header.Set("X-Forwarded-For", tt.fwd)
			}
			if got := ClientIP(req, tt.proxies); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseProxies(t *testing.T) {
	if _, err := ParseProxies([]string{"not-an-ip"}); err == nil {
		t.Fatal("invalid address accepted")
	}
	if _, err := ParseProxies([]string{"10.0.0.0/33"}); err == nil {
		t.Fatal("invalid network accepted")
	}
	ps, err := ParseProxies([]string{"", " ::1 "})
	if err != nil || len(ps) != 1 || !ps.trusts("::1") {
		t.Fatalf("ParseProxies = %v, %v", ps, err)
	}
}
