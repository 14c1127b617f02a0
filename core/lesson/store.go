package lesson

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, l Lesson) error {
	q := `
	INSERT INTO lessons
		(lesson_id, course_id, title, description, video_url, resource_url, day_number, is_published, created_at)
	VALUES
		(:lesson_id, :course_id, :title, :description, :video_url, :resource_url, :day_number, :is_published, :created_at)`

	if err := database.NamedExecContext(ctx, db, q, l); err != nil {
		return fmt.Errorf("inserting lesson: %w", err)
	}

	return nil
}

// FetchByCourse lists the published lessons of a course up to maxDay.
func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string, maxDay int) ([]Lesson, error) {
	in := struct {
		CourseID string `db:"course_id"`
		MaxDay   int    `db:"max_day"`
	}{
		CourseID: courseID,
		MaxDay:   maxDay,
	}

	q := `
	SELECT
		*
	FROM
		lessons
	WHERE
		course_id = :course_id AND
		is_published AND
		day_number <= :max_day
	ORDER BY
		day_number`

	var ls []Lesson
	if err := database.NamedQuerySlice(ctx, db, q, in, &ls); err != nil {
		return nil, fmt.Errorf("selecting lessons of course[%s]: %w", courseID, err)
	}

	return ls, nil
}

func FetchProgress(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (Progress, error) {
	in := struct {
		UserID   string `db:"user_id"`
		CourseID string `db:"course_id"`
	}{
		UserID:   userID,
		CourseID: courseID,
	}

	q := `
	SELECT
		*
	FROM
		course_progress
	WHERE
		user_id = :user_id AND
		course_id = :course_id`

	var p Progress
	if err := database.NamedQueryStruct(ctx, db, q, in, &p); err != nil {
		return Progress{}, fmt.Errorf("selecting progress of user[%s] on course[%s]: %w", userID, courseID, err)
	}

	return p, nil
}

func UpdateProgress(ctx context.Context, db sqlx.ExtContext, userID, courseID string, minutes int, now time.Time) error {
	p := Progress{
		UserID:         userID,
		CourseID:       courseID,
		MinutesWatched: minutes,
		LastWatchedAt:  now,
	}

	q := `
	INSERT INTO course_progress
		(user_id, course_id, minutes_watched, is_completed, last_watched_at)
	VALUES
		(:user_id, :course_id, :minutes_watched, FALSE, :last_watched_at)
	ON CONFLICT (user_id, course_id) DO UPDATE SET
		minutes_watched = EXCLUDED.minutes_watched,
		last_watched_at = EXCLUDED.last_watched_at`

	if err := database.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("upserting progress: %w", err)
	}

	return nil
}

func MarkComplete(ctx context.Context, db sqlx.ExtContext, userID, courseID string, now time.Time) error {
	p := Progress{
		UserID:        userID,
		CourseID:      courseID,
		Completed:     true,
		LastWatchedAt: now,
	}

	q := `
	INSERT INTO course_progress
		(user_id, course_id, minutes_watched, is_completed, last_watched_at)
	VALUES
		(:user_id, :course_id, 0, TRUE, :last_watched_at)
	ON CONFLICT (user_id, course_id) DO UPDATE SET
		is_completed = TRUE,
		last_watched_at = EXCLUDED.last_watched_at`

	if err := database.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("marking course complete: %w", err)
	}

	return nil
}
