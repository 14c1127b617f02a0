package course

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/core/claims"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/validate"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Pricer converts reference prices for display.
type Pricer interface {
	ToSettlement(amount decimal.Decimal) decimal.Decimal
	Settlement() string
}

func listing(c Course, p Pricer) Listing {
	return Listing{
		Course:             c,
		SettlementPrice:    p.ToSettlement(c.Price),
		SettlementCurrency: p.Settlement(),
	}
}

func HandleList(db *sqlx.DB, p Pricer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		cs, err := FetchAll(ctx, db, !claims.IsAdmin(ctx))
		if err != nil {
			return fmt.Errorf("listing courses: %w", err)
		}

		ls := make([]Listing, 0, len(cs))
		for _, c := range cs {
			ls = append(ls, listing(c, p))
		}

		return web.Respond(ctx, w, ls, http.StatusOK)
	}
}

// HandleShow hides unpublished courses from everyone but admins.
func HandleShow(db *sqlx.DB, p Pricer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course: %w", err)
		}

		if !c.Published && !claims.IsAdmin(ctx) {
			return weberr.NotFound(fmt.Errorf("course[%s] is not published", id))
		}

		return web.Respond(ctx, w, listing(c, p), http.StatusOK)
	}
}

func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		cs, err := FetchOwned(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing owned courses: %w", err)
		}

		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		now := time.Now().UTC()
		c := Course{
			ID:              validate.GenerateID(),
			Title:           cn.Title,
			Description:     cn.Description,
			LongDescription: cn.LongDescription,
			Price:           cn.Price.Round(2),
			VideoURL:        cn.VideoURL,
			ThumbnailURL:    cn.ThumbnailURL,
			Published:       cn.Published,
			DisplayOrder:    cn.DisplayOrder,
			Duration:        cn.Duration,
			CreatedAt:       now,
			UpdatedAt:       now,
			Version:         1,
		}

		if err := Create(ctx, db, c); err != nil {
			return fmt.Errorf("creating course: %w", err)
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course: %w", err)
		}

		if cu.Title != nil {
			c.Title = *cu.Title
		}
		if cu.Description != nil {
			c.Description = *cu.Description
		}
		if cu.LongDescription != nil {
			c.LongDescription = *cu.LongDescription
		}
		if cu.Price != nil {
			c.Price = cu.Price.Round(2)
		}
		if cu.VideoURL != nil {
			c.VideoURL = *cu.VideoURL
		}
		if cu.ThumbnailURL != nil {
			c.ThumbnailURL = *cu.ThumbnailURL
		}
		if cu.Published != nil {
			c.Published = *cu.Published
		}
		if cu.DisplayOrder != nil {
			c.DisplayOrder = *cu.DisplayOrder
		}
		if cu.Duration != nil {
			c.Duration = *cu.Duration
		}
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return weberr.Conflict(err, "course was modified, reload and try again")
			}
			return fmt.Errorf("updating course: %w", err)
		}
		c.Version++

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}
