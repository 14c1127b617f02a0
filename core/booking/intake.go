package booking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/metrics"
	"github.com/irsalhamdi/school-of-presence/notify"
	"github.com/irsalhamdi/school-of-presence/payment"
	"github.com/irsalhamdi/school-of-presence/validate"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound         = errors.New("booking not found")
	ErrNoPaymentDue     = errors.New("booking has no payment due")
	ErrAlreadyPaid      = errors.New("booking already paid with another reference")
	ErrMissingReference = errors.New("payment reference required for a paid booking")
)

type Verifier interface {
	Verify(ctx context.Context, reference string, expected payment.Price) (payment.VerifiedPayment, error)
}

type Repository interface {
	Create(ctx context.Context, b Booking) error
	Fetch(ctx context.Context, id string) (Booking, error)
	UpdatePayment(ctx context.Context, id, reference string, now time.Time) error
	CountByReference(ctx context.Context, reference string) (int, error)
}

type Notifier interface {
	BookingReceived(b notify.Booking) bool
	PaymentConfirmed(p notify.Payment) bool
}

// Pricer converts catalog prices to what the gateway charges.
type Pricer interface {
	ToSettlement(amount decimal.Decimal) decimal.Decimal
	Reference() string
	Settlement() string
}

type Config struct {
	// SchedulingURL is the booking page opened after a consultation request.
	SchedulingURL string
}

// Intake stores booking requests. A booking claimed to be paid is only
// stored once the gateway confirms the payment for the catalog price.
type Intake struct {
	verifier Verifier
	repo     Repository
	notifier Notifier
	pricer   Pricer
	cfg      Config
	log      logrus.FieldLogger
}

func NewIntake(v Verifier, r Repository, n Notifier, p Pricer, cfg Config, log logrus.FieldLogger) *Intake {
	return &Intake{
		verifier: v,
		repo:     r,
		notifier: n,
		pricer:   p,
		cfg:      cfg,
		log:      log,
	}
}

// Submit validates and stores bn. Prices sent by the client are ignored; the
// catalog is the only source of what a service costs.
func (in *Intake) Submit(ctx context.Context, bn BookingNew) (Submission, error) {
	if err := check(bn); err != nil {
		in.outcome("invalid")
		return Submission{}, err
	}

	svc, _ := Lookup(strings.TrimSpace(bn.ServiceType))
	ref := strings.TrimSpace(bn.PaymentReference)

	status := PaymentNone
	if svc.RequiresPayment() {
		status = PaymentPending
		if bn.PaymentStatus == PaymentPaid {
			if ref == "" {
				in.outcome("invalid")
				return Submission{}, ErrMissingReference
			}
			status = PaymentPaid
		}
	}

	log := in.log.WithFields(logrus.Fields{
		"service":   svc.Type,
		"reference": ref,
	})

	if status == PaymentPaid {
		if _, err := in.verifier.Verify(ctx, ref, payment.Price{Amount: *svc.Price, Currency: in.pricer.Reference()}); err != nil {
			in.outcome("verification_failed")
			log.WithError(err).Warn("booking payment not verified")
			return Submission{}, err
		}
		in.flagDuplicate(ctx, log, ref)
	}

	now := time.Now().UTC()
	first, last := SplitName(bn.FullName)
	b := Booking{
		ID:            validate.GenerateID(),
		FirstName:     first,
		LastName:      last,
		Email:         strings.TrimSpace(bn.Email),
		Phone:         strings.TrimSpace(bn.Phone),
		Country:       strings.TrimSpace(bn.Country),
		Type:          svc.Type,
		PaymentStatus: status,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if info := bn.ServiceDetails.AdditionalInfo(); info != "" {
		b.AdditionalInfo = &info
	}
	if svc.Price != nil {
		b.Price = decimal.NewNullDecimal(*svc.Price)
	}
	if status == PaymentPaid {
		b.PaymentReference = &ref
	}

	if err := in.repo.Create(ctx, b); err != nil {
		if status == PaymentPaid {
			in.outcome("recording_failed")
			log.WithError(err).Error("payment verified but booking not recorded")
			return Submission{}, &payment.RecordingError{Reference: ref, Err: err}
		}
		return Submission{}, fmt.Errorf("storing booking: %w", err)
	}

	log = log.WithField("booking_id", b.ID)
	in.outcome("recorded")
	log.Info("booking recorded")

	sent := in.notifier.BookingReceived(in.adminNotice(b, svc, bn.ServiceDetails))
	if status == PaymentPaid {
		sent = in.notifier.PaymentConfirmed(in.receipt(b, svc)) && sent
	}

	sub := Submission{
		Success:         true,
		BookingID:       b.ID,
		RequiresPayment: svc.RequiresPayment(),
		EmailSent:       sent,
	}
	if svc.RequiresScheduling {
		u := in.schedulingURL(b, svc)
		sub.CalComURL = &u
	}

	return sub, nil
}

// ConfirmPayment moves a pending booking to paid once the gateway confirms
// reference. Confirming again with the reference already stored succeeds
// without side effects.
func (in *Intake) ConfirmPayment(ctx context.Context, id, reference string) (Booking, error) {
	reference = strings.TrimSpace(reference)
	log := in.log.WithFields(logrus.Fields{
		"booking_id": id,
		"reference":  reference,
	})

	b, err := in.repo.Fetch(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, fmt.Errorf("fetching booking: %w", err)
	}

	svc, ok := Lookup(b.Type)
	if !ok || !svc.RequiresPayment() {
		return Booking{}, ErrNoPaymentDue
	}

	if b.PaymentStatus == PaymentPaid {
		return in.alreadyPaid(b, reference)
	}

	expected := payment.Price{Amount: *svc.Price, Currency: in.pricer.Reference()}
	if _, err := in.verifier.Verify(ctx, reference, expected); err != nil {
		in.outcome("verification_failed")
		log.WithError(err).Warn("booking payment not verified")
		return Booking{}, err
	}
	in.flagDuplicate(ctx, log, reference)

	now := time.Now().UTC()
	if err := in.repo.UpdatePayment(ctx, b.ID, reference, now); err != nil {
		// A concurrent confirmation may have moved the booking out of pending.
		if errors.Is(err, database.ErrDBNotFound) {
			if cur, ferr := in.repo.Fetch(ctx, b.ID); ferr == nil && cur.PaymentStatus == PaymentPaid {
				log.Info("booking paid by a concurrent confirmation")
				return in.alreadyPaid(cur, reference)
			}
		}
		in.outcome("recording_failed")
		log.WithError(err).Error("payment verified but booking not updated")
		return Booking{}, &payment.RecordingError{Reference: reference, Err: err}
	}

	b.PaymentStatus = PaymentPaid
	b.PaymentReference = &reference
	b.UpdatedAt = now

	in.outcome("recorded")
	log.Info("booking paid")

	in.notifier.PaymentConfirmed(in.receipt(b, svc))
	return b, nil
}

// alreadyPaid answers a confirmation for a booking that is already paid:
// the stored reference succeeds again, any other is refused.
func (in *Intake) alreadyPaid(b Booking, reference string) (Booking, error) {
	if b.PaymentReference != nil && *b.PaymentReference == reference {
		in.outcome("duplicate")
		return b, nil
	}
	return Booking{}, ErrAlreadyPaid
}

// flagDuplicate reports a reference already carried by another booking.
// The booking is still stored.
func (in *Intake) flagDuplicate(ctx context.Context, log logrus.FieldLogger, reference string) {
	n, err := in.repo.CountByReference(ctx, reference)
	if err != nil {
		log.WithError(err).Warn("unable to check for duplicate booking reference")
		return
	}
	if n > 0 {
		metrics.DuplicateBookingReferences.Inc()
		log.WithField("existing", n).Warn("payment reference already used by another booking")
	}
}

func (in *Intake) adminNotice(b Booking, svc Service, d Details) notify.Booking {
	n := notify.Booking{
		BookingID:     b.ID,
		FullName:      b.FullName(),
		Email:         b.Email,
		Phone:         b.Phone,
		Country:       b.Country,
		ServiceLabel:  svc.Label,
		PaymentStatus: b.PaymentStatus,
	}
	if svc.Price != nil {
		n.PriceReference = svc.Price.StringFixed(2) + " " + in.pricer.Reference()
		n.PriceSettlement = in.pricer.ToSettlement(*svc.Price).StringFixed(2) + " " + in.pricer.Settlement()
	}
	if b.PaymentReference != nil {
		n.PaymentReference = *b.PaymentReference
	}
	for _, e := range d.Entries() {
		n.Details = append(n.Details, notify.Detail{Key: e[0], Value: e[1]})
	}
	return n
}

func (in *Intake) receipt(b Booking, svc Service) notify.Payment {
	p := notify.Payment{
		CustomerName:  b.FullName(),
		CustomerEmail: b.Email,
		ServiceLabel:  svc.Label,
		Amount:        svc.Price.StringFixed(2) + " " + in.pricer.Reference(),
		Date:          b.UpdatedAt.Format("January 2, 2006"),
	}
	if b.PaymentReference != nil {
		p.PaymentReference = *b.PaymentReference
	}
	return p
}

func (in *Intake) schedulingURL(b Booking, svc Service) string {
	info := "N/A"
	if b.AdditionalInfo != nil && *b.AdditionalInfo != "" {
		info = *b.AdditionalInfo
	}
	notes := fmt.Sprintf("Service: %s\nPhone: %s\nCountry: %s\n\n%s", svc.Type, b.Phone, b.Country, info)

	q := url.Values{
		"name":  {b.FullName()},
		"email": {b.Email},
		"notes": {notes},
	}

	sep := "?"
	if strings.Contains(in.cfg.SchedulingURL, "?") {
		sep = "&"
	}
	return in.cfg.SchedulingURL + sep + q.Encode()
}

func (in *Intake) outcome(o string) {
	metrics.Reconciliations.WithLabelValues("booking", o).Inc()
}
