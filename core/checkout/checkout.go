// Package checkout prepares the payment widget. It hands out a fresh
// reference and the amount to charge; whether that payment happened is only
// ever decided by server side verification.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/core/booking"
	"github.com/irsalhamdi/school-of-presence/core/course"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/payment"
	"github.com/irsalhamdi/school-of-presence/pricing"
	"github.com/irsalhamdi/school-of-presence/random"
	"github.com/irsalhamdi/school-of-presence/validate"
	"github.com/shopspring/decimal"
)

const (
	ItemCourse  = "course"
	ItemBooking = "booking"
)

type Catalog interface {
	Fetch(ctx context.Context, id string) (course.Course, error)
}

type Pricer interface {
	Quote() pricing.Quote
}

// Quotes records the rate each reference was priced at.
type Quotes interface {
	Issue(ctx context.Context, q payment.Quote) error
}

// Init names what is about to be paid for: a course by id or a booking by
// service type.
type Init struct {
	Item        string `json:"item" validate:"required,oneof=course booking"`
	CourseID    string `json:"courseId" validate:"required_if=Item course,omitempty,uuid"`
	ServiceType string `json:"serviceType" validate:"required_if=Item booking"`
	Email       string `json:"email" validate:"required,email"`
}

// Session is what the widget is opened with. Amount is in minor units of
// Currency.
type Session struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Email     string `json:"email"`
	PublicKey string `json:"publicKey"`
}

var ErrUnknownItem = errors.New("unknown item")

type Checkout struct {
	catalog   Catalog
	pricer    Pricer
	quotes    Quotes
	publicKey string
}

func New(c Catalog, p Pricer, q Quotes, publicKey string) *Checkout {
	return &Checkout{catalog: c, pricer: p, quotes: q, publicKey: publicKey}
}

// Start prices in in the settlement currency and mints a reference for it.
// The rate used is stored with the reference so verification converts the
// payment back with that same rate.
func (co *Checkout) Start(ctx context.Context, in Init) (Session, error) {
	var price decimal.Decimal

	switch in.Item {
	case ItemCourse:
		c, err := co.catalog.Fetch(ctx, in.CourseID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return Session{}, ErrUnknownItem
			}
			return Session{}, fmt.Errorf("fetching course: %w", err)
		}
		if !c.Published {
			return Session{}, ErrUnknownItem
		}
		price = c.Price
	case ItemBooking:
		svc, ok := booking.Lookup(in.ServiceType)
		if !ok || !svc.RequiresPayment() {
			return Session{}, ErrUnknownItem
		}
		price = *svc.Price
	default:
		return Session{}, ErrUnknownItem
	}

	ref, err := random.Reference(in.Item)
	if err != nil {
		return Session{}, err
	}

	rate := co.pricer.Quote()
	q := payment.Quote{
		Reference:   ref,
		Item:        in.Item,
		Currency:    rate.Settlement,
		Rate:        rate.Rate,
		AmountMinor: payment.ToMinor(price.Mul(rate.Rate).Round(2)),
		CreatedAt:   time.Now().UTC(),
	}
	if err := co.quotes.Issue(ctx, q); err != nil {
		return Session{}, fmt.Errorf("issuing quote: %w", err)
	}

	return Session{
		Reference: ref,
		Amount:    q.AmountMinor,
		Currency:  q.Currency,
		Email:     strings.ToLower(in.Email),
		PublicKey: co.publicKey,
	}, nil
}

func HandleInit(co *Checkout) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if co.publicKey == "" {
			return weberr.NewError(errors.New("payment public key not set"), "Server config error", http.StatusServiceUnavailable)
		}

		var in Init
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		in.Email = strings.TrimSpace(in.Email)

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest,
				weberr.WithFields(map[string]interface{}{"invalid_fields": validate.Fields(in)}))
		}

		s, err := co.Start(ctx, in)
		if err != nil {
			if errors.Is(err, ErrUnknownItem) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("starting checkout: %w", err)
		}

		return web.Respond(ctx, w, s, http.StatusOK)
	}
}

// HandleRate exposes the exchange rate prices are currently converted with.
func HandleRate(p Pricer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, p.Quote(), http.StatusOK)
	}
}
