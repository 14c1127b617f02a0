package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/jmoiron/sqlx"
)

// Store keeps bookings in postgres. payment_reference is indexed but not
// unique; duplicates are reported by the intake, not refused here.
type Store struct {
	DB sqlx.ExtContext
}

func (s Store) Create(ctx context.Context, b Booking) error {
	return Create(ctx, s.DB, b)
}

func (s Store) Fetch(ctx context.Context, id string) (Booking, error) {
	return Fetch(ctx, s.DB, id)
}

func (s Store) UpdatePayment(ctx context.Context, id, reference string, now time.Time) error {
	return UpdatePayment(ctx, s.DB, id, reference, now)
}

func (s Store) CountByReference(ctx context.Context, reference string) (int, error) {
	return CountByReference(ctx, s.DB, reference)
}

func Create(ctx context.Context, db sqlx.ExtContext, b Booking) error {
	q := `
	INSERT INTO bookings
		(booking_id, first_name, last_name, email, phone, country, booking_type, additional_info,
		 price, payment_status, payment_reference, status, created_at, updated_at)
	VALUES
		(:booking_id, :first_name, :last_name, :email, :phone, :country, :booking_type, :additional_info,
		 :price, :payment_status, :payment_reference, :status, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, b); err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Booking, error) {
	in := struct {
		ID string `db:"booking_id"`
	}{
		ID: id,
	}

	q := `
	SELECT
		*
	FROM
		bookings
	WHERE
		booking_id = :booking_id`

	var b Booking
	if err := database.NamedQueryStruct(ctx, db, q, in, &b); err != nil {
		return Booking{}, fmt.Errorf("selecting booking[%s]: %w", id, err)
	}

	return b, nil
}

// UpdatePayment marks a pending booking paid with reference. A booking that
// does not exist or is no longer pending yields database.ErrDBNotFound.
func UpdatePayment(ctx context.Context, db sqlx.ExtContext, id, reference string, now time.Time) error {
	in := struct {
		ID        string    `db:"booking_id"`
		Reference string    `db:"payment_reference"`
		Paid      string    `db:"paid"`
		Pending   string    `db:"pending"`
		UpdatedAt time.Time `db:"updated_at"`
	}{
		ID:        id,
		Reference: reference,
		Paid:      PaymentPaid,
		Pending:   PaymentPending,
		UpdatedAt: now,
	}

	q := `
	UPDATE
		bookings
	SET
		payment_status = :paid,
		payment_reference = :payment_reference,
		updated_at = :updated_at
	WHERE
		booking_id = :booking_id AND
		payment_status = :pending`

	n, err := database.NamedExecAffected(ctx, db, q, in)
	if err != nil {
		return fmt.Errorf("updating payment of booking[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating payment of booking[%s]: %w", id, database.ErrDBNotFound)
	}

	return nil
}

// CountByReference counts the bookings already carrying reference.
func CountByReference(ctx context.Context, db sqlx.ExtContext, reference string) (int, error) {
	in := struct {
		Reference string `db:"payment_reference"`
	}{
		Reference: reference,
	}

	q := `
	SELECT
		COUNT(*) AS total
	FROM
		bookings
	WHERE
		payment_reference = :payment_reference`

	var out struct {
		Total int `db:"total"`
	}
	if err := database.NamedQueryStruct(ctx, db, q, in, &out); err != nil {
		return 0, fmt.Errorf("counting bookings with reference %s: %w", reference, err)
	}

	return out.Total, nil
}
