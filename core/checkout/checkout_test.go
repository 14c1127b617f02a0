package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/irsalhamdi/school-of-presence/api/middleware"
	"github.com/irsalhamdi/school-of-presence/core/course"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/payment"
	"github.com/irsalhamdi/school-of-presence/pricing"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const courseID = "6f1c2a4e-8a57-4a5e-9d0b-3c1e2f4a5b6c"

type catalog map[string]course.Course

func (c catalog) Fetch(ctx context.Context, id string) (course.Course, error) {
	crs, ok := c[id]
	if !ok {
		return course.Course{}, fmt.Errorf("selecting course[%s]: %w", id, database.ErrDBNotFound)
	}
	return crs, nil
}

type quoteBook struct {
	mu     sync.Mutex
	quotes map[string]payment.Quote
}

func (b *quoteBook) Issue(ctx context.Context, q payment.Quote) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.quotes[q.Reference]; ok {
		return fmt.Errorf("payment_quotes_pkey: %w", database.ErrDBDuplicatedEntry)
	}
	b.quotes[q.Reference] = q
	return nil
}

func (b *quoteBook) Quoted(ctx context.Context, reference string) (payment.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.quotes[reference]
	if !ok {
		return payment.Quote{}, payment.ErrNoQuote
	}
	return q, nil
}

func newCheckout(t *testing.T, publicKey string) *Checkout {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	p := pricing.New(pricing.Config{
		Reference:    "USD",
		Settlement:   "GHS",
		FallbackRate: decimal.RequireFromString("15.5"),
	}, log)

	cat := catalog{
		courseID: {ID: courseID, Title: "Presence in 28 days", Price: decimal.NewFromInt(99), Published: true},
	}
	return New(cat, p, &quoteBook{quotes: make(map[string]payment.Quote)}, publicKey)
}

func TestStart(t *testing.T) {
	co := newCheckout(t, "pk_test")

	tests := []struct {
		name string
		in   Init
		want int64
	}{
		{"course", Init{Item: ItemCourse, CourseID: courseID, Email: "Ama@example.com"}, 153450},
		{"consultation", Init{Item: ItemBooking, ServiceType: "consultation", Email: "ama@example.com"}, 153450},
		{"coaching", Init{Item: ItemBooking, ServiceType: "one_on_one_coaching", Email: "ama@example.com"}, 1550000},
	}

	for _, tt := range tests {
		s, err := co.Start(context.Background(), tt.in)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if s.Amount != tt.want || s.Currency != "GHS" || s.PublicKey != "pk_test" || s.Email != "ama@example.com" {
			t.Errorf("%s: unexpected session %+v", tt.name, s)
		}
		if !strings.HasPrefix(s.Reference, tt.in.Item+"_") {
			t.Errorf("%s: reference %q", tt.name, s.Reference)
		}
	}
}

func TestStartIssuesQuote(t *testing.T) {
	co := newCheckout(t, "pk_test")

	s, err := co.Start(context.Background(), Init{Item: ItemCourse, CourseID: courseID, Email: "ama@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	q, err := co.quotes.(*quoteBook).Quoted(context.Background(), s.Reference)
	if err != nil {
		t.Fatalf("no quote stored for %s: %v", s.Reference, err)
	}
	if q.Item != ItemCourse || q.Currency != "GHS" || q.AmountMinor != s.Amount || !q.Rate.Equal(decimal.RequireFromString("15.5")) {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestStartUnknownItem(t *testing.T) {
	co := newCheckout(t, "pk_test")

	for _, in := range []Init{
		{Item: ItemCourse, CourseID: "3b0f7d0e-1111-4c2a-9f00-000000000000"},
		{Item: ItemBooking, ServiceType: "keynote"},
		{Item: ItemBooking, ServiceType: "yoga"},
	} {
		if _, err := co.Start(context.Background(), in); err != ErrUnknownItem {
			t.Errorf("%+v: got %v, want ErrUnknownItem", in, err)
		}
	}
}

func TestHandleInit(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	post := func(co *Checkout, body string) *httptest.ResponseRecorder {
		h := middleware.Errors(log)(HandleInit(co))
		rec := httptest.NewRecorder()
		h(context.Background(), rec, httptest.NewRequest(http.MethodPost, "/payments/init", strings.NewReader(body)))
		return rec
	}

	body := `{"item":"booking","serviceType":"consultation","email":"ama@example.com"}`

	if rec := post(newCheckout(t, ""), body); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("without public key: status %d, want 503", rec.Code)
	}

	if rec := post(newCheckout(t, "pk_test"), `{"item":"booking","serviceType":"consultation","email":"nope"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad email: status %d, want 400", rec.Code)
	}

	rec := post(newCheckout(t, "pk_test"), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	var s Session
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Reference == "" || s.Amount != 153450 {
		t.Fatalf("unexpected session %+v", s)
	}
}
