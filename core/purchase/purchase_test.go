package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/irsalhamdi/school-of-presence/core/course"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/notify"
	"github.com/irsalhamdi/school-of-presence/payment"
	"github.com/irsalhamdi/school-of-presence/pricing"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const courseID = "6f1c2a4e-8a57-4a5e-9d0b-3c1e2f4a5b6c"

// tx is what the fake gateway reports for a reference.
type tx struct {
	code   int
	status string
	amount int64
}

func gatewayServer(t *testing.T, txs map[string]tx) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
		tr, ok := txs[ref]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"status":false,"message":"Transaction reference not found"}`)
			return
		}
		if tr.code != 0 && tr.code != http.StatusOK {
			w.WriteHeader(tr.code)
			return
		}
		fmt.Fprintf(w, `{"status":true,"data":{"reference":%q,"status":%q,"amount":%d}}`, ref, tr.status, tr.amount)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type memRepo struct {
	mu    sync.Mutex
	rows  map[string]Purchase
	fail  error
	reads int
}

func newRepo() *memRepo {
	return &memRepo{rows: make(map[string]Purchase)}
}

func (m *memRepo) Create(ctx context.Context, p Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.rows[p.PaymentReference]; ok {
		return fmt.Errorf("inserting purchase: purchases_payment_reference_key: %w", database.ErrDBDuplicatedEntry)
	}
	m.rows[p.PaymentReference] = p
	return nil
}

func (m *memRepo) FetchByReference(ctx context.Context, reference string) (Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	p, ok := m.rows[reference]
	if !ok {
		return Purchase{}, database.ErrDBNotFound
	}
	return p, nil
}

func (m *memRepo) Owns(ctx context.Context, userID, courseID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.rows {
		if p.UserID == userID && p.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type catalog map[string]course.Course

func (c catalog) Fetch(ctx context.Context, id string) (course.Course, error) {
	crs, ok := c[id]
	if !ok {
		return course.Course{}, fmt.Errorf("selecting course[%s]: %w", id, database.ErrDBNotFound)
	}
	return crs, nil
}

type countingNotifier struct {
	admin    atomic.Int32
	customer atomic.Int32
	refuse   bool
}

func (n *countingNotifier) PurchaseRecorded(notify.Purchase) bool {
	n.admin.Add(1)
	return !n.refuse
}

func (n *countingNotifier) PaymentConfirmed(notify.Payment) bool {
	n.customer.Add(1)
	return !n.refuse
}

type fixture struct {
	rc   *Reconciler
	repo *memRepo
	note *countingNotifier
}

func newFixture(t *testing.T, txs map[string]tx) fixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	srv := gatewayServer(t, txs)
	resolver := pricing.New(pricing.Config{
		Reference:    "USD",
		Settlement:   "GHS",
		FallbackRate: decimal.RequireFromString("15.5"),
	}, log)
	verifier := payment.NewVerifier(
		payment.NewPaystack("sk_test", srv.URL, srv.Client()),
		resolver,
		decimal.RequireFromString("0.01"),
		0,
	)

	cat := catalog{
		courseID: {ID: courseID, Title: "Presence in 28 days", Price: decimal.RequireFromString("99.00")},
	}

	f := fixture{repo: newRepo(), note: &countingNotifier{}}
	f.rc = NewReconciler(verifier, cat, f.repo, f.note, "USD", log)
	return f
}

var ama = Buyer{UserID: "u-ama", Email: "ama@example.com", Name: "Ama Mensah"}

func TestConfirmRecordsOnceUnderConcurrentDuplicates(t *testing.T) {
	f := newFixture(t, map[string]tx{"R123": {status: "success", amount: 9900}})

	const attempts = 20
	var (
		wg         sync.WaitGroup
		failures   atomic.Int32
		duplicates atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			rcp, err := f.rc.Confirm(context.Background(), ama, Confirmation{CourseID: courseID, PaymentReference: "R123"})
			if err != nil {
				failures.Add(1)
				return
			}
			if rcp.Duplicate {
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d attempts failed, every attempt should report success", failures.Load())
	}
	if f.repo.count() != 1 {
		t.Fatalf("stored %d purchases, want 1", f.repo.count())
	}
	if duplicates.Load() != attempts-1 {
		t.Fatalf("%d duplicates, want %d", duplicates.Load(), attempts-1)
	}
	if f.note.admin.Load() != 1 {
		t.Fatalf("admin notified %d times, want once", f.note.admin.Load())
	}
}

func TestConfirmFailsClosed(t *testing.T) {
	f := newFixture(t, map[string]tx{
		"R500":      {code: http.StatusInternalServerError},
		"RSHORT":    {status: "success", amount: 9800},
		"RABANDON":  {status: "abandoned", amount: 9900},
		"RTWOCENTS": {status: "success", amount: 9902},
	})

	tests := []struct {
		ref  string
		kind payment.Kind
	}{
		{"R500", payment.KindStatus},
		{"RSHORT", payment.KindAmountMismatch},
		{"RABANDON", payment.KindNotSuccessful},
		{"RTWOCENTS", payment.KindAmountMismatch},
		{"RUNKNOWN", payment.KindStatus},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			_, err := f.rc.Confirm(context.Background(), ama, Confirmation{CourseID: courseID, PaymentReference: tt.ref})

			var ve *payment.VerificationError
			if !errors.As(err, &ve) || ve.Kind != tt.kind {
				t.Fatalf("expected a %s verification error, got %v", tt.kind, err)
			}
		})
	}

	if f.repo.count() != 0 {
		t.Fatalf("stored %d purchases for unverified payments", f.repo.count())
	}
	if f.note.admin.Load() != 0 {
		t.Fatal("notification sent for an unverified payment")
	}
}

func TestConfirmAcceptsOneCentDifference(t *testing.T) {
	f := newFixture(t, map[string]tx{"ROK": {status: "success", amount: 9901}})

	rcp, err := f.rc.Confirm(context.Background(), ama, Confirmation{CourseID: courseID, PaymentReference: "ROK"})
	if err != nil {
		t.Fatal(err)
	}
	if !rcp.Purchase.AmountPaid.Equal(decimal.RequireFromString("99.01")) || rcp.Purchase.Currency != "USD" {
		t.Fatalf("stored amount %s %s, want the settled 99.01 USD", rcp.Purchase.AmountPaid, rcp.Purchase.Currency)
	}
}

func TestConfirmRecordingFailure(t *testing.T) {
	f := newFixture(t, map[string]tx{"R123": {status: "success", amount: 9900}})
	f.repo.fail = errors.New("connection reset by peer")

	_, err := f.rc.Confirm(context.Background(), ama, Confirmation{CourseID: courseID, PaymentReference: "R123"})

	var re *payment.RecordingError
	if !errors.As(err, &re) {
		t.Fatalf("expected a RecordingError, got %v", err)
	}
	if re.Reference != "R123" || !strings.Contains(re.Error(), "contact support with reference R123") {
		t.Fatalf("recording error does not carry the reference: %v", re)
	}

	var ve *payment.VerificationError
	if errors.As(err, &ve) {
		t.Fatal("recording failure reported as a payment failure")
	}
	if f.note.admin.Load() != 0 {
		t.Fatal("notification sent without a stored purchase")
	}
}

func TestConfirmReferenceReplayedByAnotherUser(t *testing.T) {
	f := newFixture(t, map[string]tx{"R123": {status: "success", amount: 9900}})

	if _, err := f.rc.Confirm(context.Background(), ama, Confirmation{CourseID: courseID, PaymentReference: "R123"}); err != nil {
		t.Fatal(err)
	}

	kofi := Buyer{UserID: "u-kofi", Email: "kofi@example.com"}
	_, err := f.rc.Confirm(context.Background(), kofi, Confirmation{CourseID: courseID, PaymentReference: "R123"})
	if !errors.Is(err, ErrReferenceUsed) {
		t.Fatalf("expected ErrReferenceUsed, got %v", err)
	}

	if owned, _ := f.repo.Owns(context.Background(), kofi.UserID, courseID); owned {
		t.Fatal("replayed reference granted access")
	}
}

func TestConfirmUnknownCourse(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.rc.Confirm(context.Background(), ama, Confirmation{CourseID: "a8d6a1d5-0000-4000-8000-000000000000", PaymentReference: "R1"})
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestConfirmNotificationFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, map[string]tx{"R123": {status: "success", amount: 9900}})
	f.note.refuse = true

	rcp, err := f.rc.Confirm(context.Background(), ama, Confirmation{CourseID: courseID, PaymentReference: "R123"})
	if err != nil {
		t.Fatal(err)
	}
	if rcp.EmailSent {
		t.Fatal("emailSent reported although the notifier refused")
	}
	if f.repo.count() != 1 {
		t.Fatal("purchase not stored")
	}
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result {
	t.Helper()

	var res Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return res
}
