package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/payment"
	"github.com/jmoiron/sqlx"
)

// Store keeps the quote each reference was issued with. It is the
// payment.QuoteBook the verifier reads.
type Store struct {
	DB sqlx.ExtContext
}

func (s Store) Issue(ctx context.Context, q payment.Quote) error {
	return Issue(ctx, s.DB, q)
}

func (s Store) Quoted(ctx context.Context, reference string) (payment.Quote, error) {
	return Quoted(ctx, s.DB, reference)
}

func Issue(ctx context.Context, db sqlx.ExtContext, q payment.Quote) error {
	query := `
	INSERT INTO payment_quotes
		(reference, item, currency, rate, amount_minor, created_at)
	VALUES
		(:reference, :item, :currency, :rate, :amount_minor, :created_at)`

	if err := database.NamedExecContext(ctx, db, query, q); err != nil {
		return fmt.Errorf("inserting quote: %w", err)
	}

	return nil
}

// Quoted returns payment.ErrNoQuote for a reference checkout never issued.
func Quoted(ctx context.Context, db sqlx.ExtContext, reference string) (payment.Quote, error) {
	in := struct {
		Reference string `db:"reference"`
	}{
		Reference: reference,
	}

	query := `
	SELECT
		*
	FROM
		payment_quotes
	WHERE
		reference = :reference`

	var q payment.Quote
	if err := database.NamedQueryStruct(ctx, db, query, in, &q); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return payment.Quote{}, payment.ErrNoQuote
		}
		return payment.Quote{}, fmt.Errorf("selecting quote[%s]: %w", reference, err)
	}

	return q, nil
}
