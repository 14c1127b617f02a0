package purchase

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/jmoiron/sqlx"
)

// Store keeps purchases in postgres. The unique constraint on
// payment_reference is what makes recording idempotent.
type Store struct {
	DB sqlx.ExtContext
}

func (s Store) Create(ctx context.Context, p Purchase) error {
	return Create(ctx, s.DB, p)
}

func (s Store) FetchByReference(ctx context.Context, reference string) (Purchase, error) {
	return FetchByReference(ctx, s.DB, reference)
}

func (s Store) Owns(ctx context.Context, userID, courseID string) (bool, error) {
	return Owns(ctx, s.DB, userID, courseID)
}

// Create inserts p. A purchase with the same reference already stored yields
// database.ErrDBDuplicatedEntry.
func Create(ctx context.Context, db sqlx.ExtContext, p Purchase) error {
	q := `
	INSERT INTO purchases
		(purchase_id, user_id, course_id, amount_paid, currency, payment_reference, created_at)
	VALUES
		(:purchase_id, :user_id, :course_id, :amount_paid, :currency, :payment_reference, :created_at)`

	if err := database.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting purchase: %w", err)
	}

	return nil
}

func FetchByReference(ctx context.Context, db sqlx.ExtContext, reference string) (Purchase, error) {
	in := struct {
		Reference string `db:"payment_reference"`
	}{
		Reference: reference,
	}

	q := `
	SELECT
		*
	FROM
		purchases
	WHERE
		payment_reference = :payment_reference`

	var p Purchase
	if err := database.NamedQueryStruct(ctx, db, q, in, &p); err != nil {
		return Purchase{}, fmt.Errorf("selecting purchase[%s]: %w", reference, err)
	}

	return p, nil
}

func Owns(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (bool, error) {
	in := struct {
		UserID   string `db:"user_id"`
		CourseID string `db:"course_id"`
	}{
		UserID:   userID,
		CourseID: courseID,
	}

	q := `
	SELECT EXISTS (
		SELECT 1 FROM purchases WHERE user_id = :user_id AND course_id = :course_id
	) AS owned`

	var out struct {
		Owned bool `db:"owned"`
	}
	if err := database.NamedQueryStruct(ctx, db, q, in, &out); err != nil {
		return false, fmt.Errorf("checking ownership of course[%s] by user[%s]: %w", courseID, userID, err)
	}

	return out.Owned, nil
}

// OwnedCourseIDs lists the ids of every course userID has a purchase for.
func OwnedCourseIDs(ctx context.Context, db sqlx.ExtContext, userID string) ([]string, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{
		UserID: userID,
	}

	q := `
	SELECT DISTINCT
		course_id
	FROM
		purchases
	WHERE
		user_id = :user_id
	ORDER BY
		course_id`

	var rows []struct {
		CourseID string `db:"course_id"`
	}
	if err := database.NamedQuerySlice(ctx, db, q, in, &rows); err != nil {
		return nil, fmt.Errorf("selecting courses of user[%s]: %w", userID, err)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CourseID)
	}
	return ids, nil
}
