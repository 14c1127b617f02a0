package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, u User) error {
	q := `
	INSERT INTO users
		(user_id, email, password_hash, role, created_at, updated_at)
	VALUES
		(:user_id, :email, :password_hash, :role, :created_at, :updated_at)`

	u.Email = strings.ToLower(u.Email)
	if err := database.NamedExecContext(ctx, db, q, u); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	in := struct {
		ID string `db:"user_id"`
	}{
		ID: id,
	}

	q := `
	SELECT
		*
	FROM
		users
	WHERE
		user_id = :user_id`

	var u User
	if err := database.NamedQueryStruct(ctx, db, q, in, &u); err != nil {
		return User{}, fmt.Errorf("selecting user[%s]: %w", id, err)
	}

	return u, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	in := struct {
		Email string `db:"email"`
	}{
		Email: strings.ToLower(email),
	}

	q := `
	SELECT
		*
	FROM
		users
	WHERE
		email = :email`

	var u User
	if err := database.NamedQueryStruct(ctx, db, q, in, &u); err != nil {
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}

	return u, nil
}

func UpdatePassword(ctx context.Context, db sqlx.ExtContext, up PasswordUp) error {
	q := `
	UPDATE
		users
	SET
		password_hash = :password_hash,
		updated_at = :updated_at
	WHERE
		user_id = :user_id`

	n, err := database.NamedExecAffected(ctx, db, q, up)
	if err != nil {
		return fmt.Errorf("updating password of user[%s]: %w", up.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating password of user[%s]: %w", up.ID, database.ErrDBNotFound)
	}

	return nil
}
