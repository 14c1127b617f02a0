package course

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/jmoiron/sqlx"
)

var ErrVersionConflict = errors.New("course was modified concurrently")

// Store reads courses for packages that only need a catalog lookup.
type Store struct {
	DB sqlx.ExtContext
}

func (s Store) Fetch(ctx context.Context, id string) (Course, error) {
	return Fetch(ctx, s.DB, id)
}

func Create(ctx context.Context, db sqlx.ExtContext, c Course) error {
	q := `
	INSERT INTO courses
		(course_id, title, description, long_description, price, video_url, thumbnail_url,
		 is_published, display_order, duration, created_at, updated_at, version)
	VALUES
		(:course_id, :title, :description, :long_description, :price, :video_url, :thumbnail_url,
		 :is_published, :display_order, :duration, :created_at, :updated_at, :version)`

	if err := database.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}

	return nil
}

// Update writes c if nobody changed it since it was read; c.Version must be
// the version that was read.
func Update(ctx context.Context, db sqlx.ExtContext, c Course) error {
	q := `
	UPDATE
		courses
	SET
		title = :title,
		description = :description,
		long_description = :long_description,
		price = :price,
		video_url = :video_url,
		thumbnail_url = :thumbnail_url,
		is_published = :is_published,
		display_order = :display_order,
		duration = :duration,
		updated_at = :updated_at,
		version = version + 1
	WHERE
		course_id = :course_id AND
		version = :version`

	n, err := database.NamedExecAffected(ctx, db, q, c)
	if err != nil {
		return fmt.Errorf("updating course[%s]: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating course[%s]: %w", c.ID, ErrVersionConflict)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	in := struct {
		ID string `db:"course_id"`
	}{
		ID: id,
	}

	q := `
	SELECT
		*
	FROM
		courses
	WHERE
		course_id = :course_id`

	var c Course
	if err := database.NamedQueryStruct(ctx, db, q, in, &c); err != nil {
		return Course{}, fmt.Errorf("selecting course[%s]: %w", id, err)
	}

	return c, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext, publishedOnly bool) ([]Course, error) {
	in := struct {
		PublishedOnly bool `db:"published_only"`
	}{
		PublishedOnly: publishedOnly,
	}

	q := `
	SELECT
		*
	FROM
		courses
	WHERE
		is_published OR NOT :published_only
	ORDER BY
		display_order, created_at`

	var cs []Course
	if err := database.NamedQuerySlice(ctx, db, q, in, &cs); err != nil {
		return nil, fmt.Errorf("selecting courses: %w", err)
	}

	return cs, nil
}

// FetchOwned lists the courses userID holds a purchase for.
func FetchOwned(ctx context.Context, db sqlx.ExtContext, userID string) ([]Course, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{
		UserID: userID,
	}

	q := `
	SELECT
		c.*
	FROM
		courses AS c
	WHERE
		c.course_id IN (
			SELECT course_id FROM purchases WHERE user_id = :user_id
		)
	ORDER BY
		c.display_order, c.created_at`

	var cs []Course
	if err := database.NamedQuerySlice(ctx, db, q, in, &cs); err != nil {
		return nil, fmt.Errorf("selecting courses owned by user[%s]: %w", userID, err)
	}

	return cs, nil
}
