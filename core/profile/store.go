package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/jmoiron/sqlx"
)

// Create stores the profile of a new user. Users created without one get
// default settings on their first read.
func Create(ctx context.Context, db sqlx.ExtContext, p Profile) error {
	q := `
	INSERT INTO profiles
		(user_id, full_name, email_notifications, marketing_updates, created_at, updated_at)
	VALUES
		(:user_id, :full_name, :email_notifications, :marketing_updates, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string) (Profile, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{
		UserID: userID,
	}

	q := `
	SELECT
		u.user_id,
		u.email,
		u.role,
		COALESCE(p.full_name, '') AS full_name,
		COALESCE(p.email_notifications, TRUE) AS email_notifications,
		COALESCE(p.marketing_updates, FALSE) AS marketing_updates,
		COALESCE(p.created_at, u.created_at) AS created_at,
		COALESCE(p.updated_at, u.updated_at) AS updated_at
	FROM
		users AS u
	LEFT JOIN
		profiles AS p ON p.user_id = u.user_id
	WHERE
		u.user_id = :user_id`

	var p Profile
	if err := database.NamedQueryStruct(ctx, db, q, in, &p); err != nil {
		return Profile{}, fmt.Errorf("selecting profile of user[%s]: %w", userID, err)
	}

	return p, nil
}

func UpdateName(ctx context.Context, db sqlx.ExtContext, userID, name string, now time.Time) error {
	in := struct {
		UserID   string    `db:"user_id"`
		FullName string    `db:"full_name"`
		Now      time.Time `db:"now"`
	}{
		UserID:   userID,
		FullName: name,
		Now:      now,
	}

	q := `
	INSERT INTO profiles
		(user_id, full_name, created_at, updated_at)
	VALUES
		(:user_id, :full_name, :now, :now)
	ON CONFLICT (user_id) DO UPDATE SET
		full_name = EXCLUDED.full_name,
		updated_at = EXCLUDED.updated_at`

	if err := database.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("updating name of user[%s]: %w", userID, err)
	}

	return nil
}

func UpdateNotifications(ctx context.Context, db sqlx.ExtContext, userID string, up NotificationsUp, now time.Time) error {
	in := struct {
		UserID             string    `db:"user_id"`
		EmailNotifications bool      `db:"email_notifications"`
		MarketingUpdates   bool      `db:"marketing_updates"`
		Now                time.Time `db:"now"`
	}{
		UserID:             userID,
		EmailNotifications: *up.EmailNotifications,
		MarketingUpdates:   *up.MarketingUpdates,
		Now:                now,
	}

	q := `
	INSERT INTO profiles
		(user_id, email_notifications, marketing_updates, created_at, updated_at)
	VALUES
		(:user_id, :email_notifications, :marketing_updates, :now, :now)
	ON CONFLICT (user_id) DO UPDATE SET
		email_notifications = EXCLUDED.email_notifications,
		marketing_updates = EXCLUDED.marketing_updates,
		updated_at = EXCLUDED.updated_at`

	if err := database.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("updating notification settings of user[%s]: %w", userID, err)
	}

	return nil
}
