package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/school-of-presence/core/course"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/metrics"
	"github.com/irsalhamdi/school-of-presence/notify"
	"github.com/irsalhamdi/school-of-presence/payment"
	"github.com/irsalhamdi/school-of-presence/validate"
	"github.com/sirupsen/logrus"
)

type Verifier interface {
	Verify(ctx context.Context, reference string, expected payment.Price) (payment.VerifiedPayment, error)
}

type Catalog interface {
	Fetch(ctx context.Context, id string) (course.Course, error)
}

type Repository interface {
	Create(ctx context.Context, p Purchase) error
	FetchByReference(ctx context.Context, reference string) (Purchase, error)
}

type Notifier interface {
	PurchaseRecorded(p notify.Purchase) bool
	PaymentConfirmed(p notify.Payment) bool
}

// Reconciler turns a payment reference claimed by a buyer into a stored
// purchase. The gateway is always asked first; nothing is stored for a
// reference it does not confirm, and notifications only follow a new row.
type Reconciler struct {
	verifier Verifier
	catalog  Catalog
	repo     Repository
	notifier Notifier
	currency string
	log      logrus.FieldLogger
}

// NewReconciler builds a Reconciler for a catalog priced in currency.
func NewReconciler(v Verifier, c Catalog, r Repository, n Notifier, currency string, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		verifier: v,
		catalog:  c,
		repo:     r,
		notifier: n,
		currency: currency,
		log:      log,
	}
}

func (rc *Reconciler) Confirm(ctx context.Context, b Buyer, cf Confirmation) (Receipt, error) {
	log := rc.log.WithFields(logrus.Fields{
		"user_id":   b.UserID,
		"course_id": cf.CourseID,
		"reference": cf.PaymentReference,
	})

	c, err := rc.catalog.Fetch(ctx, cf.CourseID)
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			rc.outcome("course_not_found")
			return Receipt{}, ErrCourseNotFound
		}
		return Receipt{}, fmt.Errorf("fetching course: %w", err)
	}

	expected := payment.Price{Amount: c.Price, Currency: rc.currency}
	vp, err := rc.verifier.Verify(ctx, cf.PaymentReference, expected)
	if err != nil {
		rc.outcome("verification_failed")
		log.WithError(err).Warn("purchase payment not verified")
		return Receipt{}, err
	}

	p := Purchase{
		ID:               validate.GenerateID(),
		UserID:           b.UserID,
		CourseID:         c.ID,
		AmountPaid:       vp.Amount,
		Currency:         vp.Currency,
		PaymentReference: vp.Reference,
		CreatedAt:        time.Now().UTC(),
	}

	err = rc.repo.Create(ctx, p)
	switch {
	case errors.Is(err, database.ErrDBDuplicatedEntry):
		return rc.duplicate(ctx, log, p)
	case err != nil:
		rc.outcome("recording_failed")
		log.WithError(err).Error("payment verified but purchase not recorded")
		return Receipt{}, &payment.RecordingError{Reference: vp.Reference, Err: err}
	}

	rc.outcome("recorded")
	log.Info("purchase recorded")

	date := p.CreatedAt.Format("January 2, 2006")
	amount := p.AmountPaid.StringFixed(2) + " " + p.Currency

	sent := rc.notifier.PurchaseRecorded(notify.Purchase{
		CourseTitle:      c.Title,
		Email:            b.Email,
		Amount:           amount,
		PaymentReference: p.PaymentReference,
		Date:             date,
	})
	if b.Email != "" {
		sent = rc.notifier.PaymentConfirmed(notify.Payment{
			CustomerName:     b.greeting(),
			CustomerEmail:    b.Email,
			ServiceLabel:     c.Title,
			Amount:           amount,
			PaymentReference: p.PaymentReference,
			Date:             date,
		}) && sent
	}

	return Receipt{Purchase: p, EmailSent: sent}, nil
}

// duplicate resolves a reference that is already stored. The earlier row is
// the purchase when it belongs to the same buyer and course; a reference paid
// for someone else's purchase is refused.
func (rc *Reconciler) duplicate(ctx context.Context, log logrus.FieldLogger, p Purchase) (Receipt, error) {
	prev, err := rc.repo.FetchByReference(ctx, p.PaymentReference)
	if err != nil {
		rc.outcome("recording_failed")
		log.WithError(err).Error("duplicate reference but earlier purchase not readable")
		return Receipt{}, &payment.RecordingError{Reference: p.PaymentReference, Err: err}
	}

	if prev.UserID != p.UserID || prev.CourseID != p.CourseID {
		rc.outcome("reference_reused")
		log.WithField("owner_id", prev.UserID).Warn("payment reference replayed for another purchase")
		return Receipt{}, ErrReferenceUsed
	}

	rc.outcome("duplicate")
	log.Info("purchase already recorded")
	return Receipt{Purchase: prev, Duplicate: true}, nil
}

func (rc *Reconciler) outcome(o string) {
	metrics.Reconciliations.WithLabelValues("purchase", o).Inc()
}
