// Package waitlist collects the emails of people waiting for the next cohort.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/validate"
	"github.com/jmoiron/sqlx"
)

type Entry struct {
	ID        string    `json:"id" db:"waitlist_id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type EntryNew struct {
	Email string `json:"email" validate:"required,email"`
}

// Join adds email to the waitlist. Emails are stored lower case so that the
// unique constraint catches the same address typed differently.
func Join(ctx context.Context, db sqlx.ExtContext, en EntryNew, now time.Time) (Entry, error) {
	e := Entry{
		ID:        validate.GenerateID(),
		Email:     strings.ToLower(strings.TrimSpace(en.Email)),
		CreatedAt: now,
	}

	q := `
	INSERT INTO waitlist
		(waitlist_id, email, created_at)
	VALUES
		(:waitlist_id, :email, :created_at)`

	if err := database.NamedExecContext(ctx, db, q, e); err != nil {
		return Entry{}, fmt.Errorf("inserting waitlist entry: %w", err)
	}

	return e, nil
}

func HandleJoin(db sqlx.ExtContext) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var en EntryNew
		if err := web.Decode(w, r, &en); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		en.Email = strings.TrimSpace(en.Email)

		if err := validate.Check(en); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		e, err := Join(ctx, db, en, time.Now().UTC())
		if err != nil {
			if errors.Is(err, database.ErrDBDuplicatedEntry) {
				return weberr.Conflict(err, "You're already on the waitlist")
			}
			return fmt.Errorf("joining waitlist: %w", err)
		}

		return web.Respond(ctx, w, e, http.StatusCreated)
	}
}
