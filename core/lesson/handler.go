package lesson

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/core/claims"
	"github.com/irsalhamdi/school-of-presence/core/course"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/validate"
	"github.com/jmoiron/sqlx"
)

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ln LessonNew
		if err := web.Decode(w, r, &ln); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ln); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if _, err := course.Fetch(ctx, db, ln.CourseID); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course: %w", err)
		}

		l := Lesson{
			ID:          validate.GenerateID(),
			CourseID:    ln.CourseID,
			Title:       ln.Title,
			Description: ln.Description,
			VideoURL:    ln.VideoURL,
			ResourceURL: ln.ResourceURL,
			DayNumber:   ln.DayNumber,
			Published:   ln.Published,
			CreatedAt:   time.Now().UTC(),
		}

		if err := Create(ctx, db, l); err != nil {
			return fmt.Errorf("creating lesson: %w", err)
		}

		return web.Respond(ctx, w, l, http.StatusCreated)
	}
}

// HandleDashboard serves the playable course. It must sit behind the access
// gate, which has already checked ownership.
func HandleDashboard(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		period, err := ParsePeriod(web.Query(r, "period"))
		if err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		courseID := web.Param(r, "id")
		c, err := course.Fetch(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course: %w", err)
		}

		ls, err := FetchByCourse(ctx, db, courseID, period)
		if err != nil {
			return err
		}

		d := Dashboard{
			Course:   c,
			VideoURL: c.VideoURL,
			Period:   period,
			Lessons:  ls,
		}

		p, err := FetchProgress(ctx, db, clm.UserID, courseID)
		switch {
		case err == nil:
			d.Progress = &p
		case !errors.Is(err, database.ErrDBNotFound):
			return err
		}

		return web.Respond(ctx, w, d, http.StatusOK)
	}
}

func HandleUpdateProgress(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var pu ProgressUp
		if err := web.Decode(w, r, &pu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(pu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		err = UpdateProgress(ctx, db, clm.UserID, web.Param(r, "id"), *pu.MinutesWatched, time.Now().UTC())
		if err != nil {
			return weberr.NewError(err, "Failed to update progress", http.StatusInternalServerError)
		}

		return web.Respond(ctx, w, map[string]bool{"success": true}, http.StatusOK)
	}
}

func HandleComplete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if err := MarkComplete(ctx, db, clm.UserID, web.Param(r, "id"), time.Now().UTC()); err != nil {
			return weberr.NewError(err, "Failed to mark complete", http.StatusInternalServerError)
		}

		return web.Respond(ctx, w, map[string]bool{"success": true}, http.StatusOK)
	}
}
