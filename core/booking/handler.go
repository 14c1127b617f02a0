package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/core/claims"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/payment"
	"github.com/irsalhamdi/school-of-presence/validate"
	"github.com/shopspring/decimal"
)

// Failure is the body of every rejected booking request.
type Failure struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Fields    FieldErrors `json:"fields,omitempty"`
	Reference string      `json:"reference,omitempty"`
}

func failure(err error, msg string, status int, opts ...weberr.Opt) error {
	opts = append(opts, weberr.WithResponse(Failure{Error: msg}, status))
	return weberr.Wrap(err, opts...)
}

// intakeError answers for the errors Submit and ConfirmPayment return.
func intakeError(err error) error {
	var vle *ValidationError
	var ve *payment.VerificationError
	var re *payment.RecordingError

	switch {
	case errors.As(err, &vle):
		return weberr.Wrap(err,
			weberr.WithFields(map[string]interface{}{"invalid_fields": vle.Fields}),
			weberr.WithResponse(Failure{Error: vle.Message, Fields: vle.Fields}, http.StatusBadRequest),
		)
	case errors.Is(err, ErrMissingReference):
		return failure(err, "Payment reference required", http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		return failure(err, "Booking not found", http.StatusNotFound)
	case errors.Is(err, ErrNoPaymentDue):
		return failure(err, "This booking has no payment due", http.StatusBadRequest)
	case errors.Is(err, ErrAlreadyPaid):
		return failure(err, "Booking already paid", http.StatusConflict)
	case errors.As(err, &ve) && ve.Kind == payment.KindUnconfigured:
		return failure(err, "Server config error", http.StatusServiceUnavailable, weberr.WithFields(ve.LogFields()))
	case errors.As(err, &ve):
		return failure(err, ve.Error(), http.StatusPaymentRequired, weberr.WithFields(ve.LogFields()))
	case errors.As(err, &re):
		return weberr.Wrap(err,
			weberr.WithFields(re.LogFields()),
			weberr.WithResponse(Failure{Error: re.Error(), Reference: re.Reference}, http.StatusInternalServerError),
		)
	}
	return err
}

func HandleCreate(in *Intake) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var bn BookingNew
		if err := web.Decode(w, r, &bn); err != nil {
			return failure(fmt.Errorf("unable to decode payload: %w", err), "Invalid request", http.StatusBadRequest)
		}

		sub, err := in.Submit(ctx, bn)
		if err != nil {
			return intakeError(err)
		}

		return web.Respond(ctx, w, sub, http.StatusOK)
	}
}

// HandleConfirmPayment settles a booking made before its payment went
// through.
func HandleConfirmPayment(in *Intake) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return failure(err, "Booking not found", http.StatusNotFound)
		}

		var pu PaymentUp
		if err := web.Decode(w, r, &pu); err != nil {
			return failure(fmt.Errorf("unable to decode payload: %w", err), "Invalid request", http.StatusBadRequest)
		}

		if err := validate.Check(pu); err != nil {
			return failure(err, err.Error(), http.StatusBadRequest)
		}

		b, err := in.ConfirmPayment(ctx, id, pu.PaymentReference)
		if err != nil {
			return intakeError(err)
		}

		return web.Respond(ctx, w, b, http.StatusOK)
	}
}

type Fetcher interface {
	Fetch(ctx context.Context, id string) (Booking, error)
}

// HandleShow returns a booking to an admin or to the user whose email it was
// made with.
func HandleShow(f Fetcher) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Query(r, "id")
		if id == "" {
			return failure(errors.New("missing booking id"), "Booking ID required", http.StatusBadRequest)
		}

		if _, err := claims.Get(ctx); err != nil {
			return failure(err, "Unauthorized", http.StatusUnauthorized)
		}

		if err := validate.CheckID(id); err != nil {
			return failure(err, "Booking not found", http.StatusNotFound)
		}

		b, err := f.Fetch(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return failure(err, "Booking not found", http.StatusNotFound)
			}
			return fmt.Errorf("fetching booking: %w", err)
		}

		if !claims.IsAdmin(ctx) && !claims.OwnsEmail(ctx, b.Email) {
			return failure(fmt.Errorf("booking[%s] belongs to another email", id), "Forbidden", http.StatusForbidden)
		}

		return web.Respond(ctx, w, b, http.StatusOK)
	}
}

// Offer is a catalog service as shown on the booking page.
type Offer struct {
	Service
	SettlementPrice    *decimal.Decimal `json:"settlementPrice,omitempty"`
	SettlementCurrency string           `json:"settlementCurrency,omitempty"`
}

func HandleListServices(p Pricer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		offers := make([]Offer, 0, len(Services))
		for _, s := range Services {
			o := Offer{Service: s}
			if s.Price != nil {
				sp := p.ToSettlement(*s.Price)
				o.SettlementPrice = &sp
				o.SettlementCurrency = p.Settlement()
			}
			offers = append(offers, o)
		}

		return web.Respond(ctx, w, offers, http.StatusOK)
	}
}
