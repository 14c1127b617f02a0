// Package notify sends the emails that follow a booking or a purchase. Every
// send runs detached from the request that caused it and only its outcome is
// logged: a notification never changes the result of the operation.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/irsalhamdi/school-of-presence/email"
	"github.com/irsalhamdi/school-of-presence/metrics"
	"github.com/sirupsen/logrus"
)

const (
	KindBookingAdmin    = "booking_admin"
	KindPaymentCustomer = "payment_confirmation"
	KindPurchaseAdmin   = "purchase_admin"
)

type Mailer interface {
	Configured() bool
	Send(ctx context.Context, to, subject, html string) error
}

// Runner detaches work from the calling goroutine.
type Runner interface {
	Go(fn func()) error
}

type Config struct {
	Admin    string
	Attempts uint
	Delay    time.Duration
	Timeout  time.Duration
}

type Detail struct {
	Key   string
	Value string
}

type Booking struct {
	BookingID        string
	FullName         string
	Email            string
	Phone            string
	Country          string
	ServiceLabel     string
	PaymentStatus    string
	PriceReference   string
	PriceSettlement  string
	PaymentReference string
	Details          []Detail
}

type Payment struct {
	CustomerName     string
	CustomerEmail    string
	ServiceLabel     string
	Amount           string
	PaymentReference string
	Date             string
}

type Purchase struct {
	CourseTitle      string
	Email            string
	Amount           string
	PaymentReference string
	Date             string
}

type Dispatcher struct {
	mailer Mailer
	runner Runner
	cfg    Config
	log    logrus.FieldLogger
}

func New(mailer Mailer, runner Runner, cfg Config, log logrus.FieldLogger) *Dispatcher {
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	return &Dispatcher{mailer: mailer, runner: runner, cfg: cfg, log: log}
}

// BookingReceived tells the admin about a new booking. The returned value
// reports whether the email was queued, not whether it was delivered.
func (d *Dispatcher) BookingReceived(b Booking) bool {
	subject := fmt.Sprintf("New Booking: %s - %s", b.ServiceLabel, b.FullName)
	return d.queue(KindBookingAdmin, d.cfg.Admin, subject, b, logrus.Fields{
		"booking_id": b.BookingID,
	})
}

// PaymentConfirmed sends the customer a receipt for a verified payment.
func (d *Dispatcher) PaymentConfirmed(p Payment) bool {
	subject := fmt.Sprintf("Payment Confirmation: %s", p.ServiceLabel)
	return d.queue(KindPaymentCustomer, p.CustomerEmail, subject, p, logrus.Fields{
		"reference": p.PaymentReference,
	})
}

// PurchaseRecorded tells the admin about a new course purchase.
func (d *Dispatcher) PurchaseRecorded(p Purchase) bool {
	subject := fmt.Sprintf("New Purchase: %s - %s", p.CourseTitle, p.Email)
	return d.queue(KindPurchaseAdmin, d.cfg.Admin, subject, p, logrus.Fields{
		"reference": p.PaymentReference,
	})
}

func (d *Dispatcher) queue(kind, to, subject string, data any, fields logrus.Fields) bool {
	log := d.log.WithFields(fields).WithField("kind", kind)

	if !d.mailer.Configured() {
		metrics.Notifications.WithLabelValues(kind, "unconfigured").Inc()
		log.Warn("mailer not configured, notification dropped")
		return false
	}

	html, err := email.Render(kind, data)
	if err != nil {
		metrics.Notifications.WithLabelValues(kind, "failed").Inc()
		log.WithError(err).Error("notification not rendered")
		return false
	}

	err = d.runner.Go(func() {
		d.send(log, kind, to, subject, html)
	})
	if err != nil {
		metrics.Notifications.WithLabelValues(kind, "dropped").Inc()
		log.WithError(err).Warn("notification not queued")
		return false
	}

	return true
}

func (d *Dispatcher) send(log logrus.FieldLogger, kind, to, subject, html string) {
	ctx := context.Background()
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	err := retry.Do(
		func() error {
			return d.mailer.Send(ctx, to, subject, html)
		},
		retry.Context(ctx),
		retry.Attempts(d.cfg.Attempts),
		retry.Delay(d.cfg.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, email.ErrNotConfigured)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Debugf("notification attempt %d failed", n+1)
		}),
	)
	if err != nil {
		metrics.Notifications.WithLabelValues(kind, "failed").Inc()
		log.WithError(err).Warn("notification email failed")
		return
	}

	metrics.Notifications.WithLabelValues(kind, "sent").Inc()
	log.Info("notification email sent")
}
