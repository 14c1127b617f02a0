package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/core/claims"
	"github.com/irsalhamdi/school-of-presence/core/profile"
	"github.com/irsalhamdi/school-of-presence/core/user"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type Signup struct {
	FullName        string `json:"fullName" validate:"required,min=2,max=120"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var errBadCredentials = errors.New("invalid email or password")

// register creates the user and its profile in one transaction.
func register(ctx context.Context, db *sqlx.DB, email, fullName string, hash []byte) (user.User, error) {
	now := time.Now().UTC()
	u := user.User{
		ID:           validate.GenerateID(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         claims.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := user.Create(ctx, tx, u); err != nil {
			return err
		}

		p := profile.Profile{
			UserID:             u.ID,
			FullName:           fullName,
			EmailNotifications: true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return profile.Create(ctx, tx, p)
	})
	if err != nil {
		return user.User{}, fmt.Errorf("registering user: %w", err)
	}

	return u, nil
}

func HandleSignup(db *sqlx.DB, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var s Signup
		if err := web.Decode(w, r, &s); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		s.FullName = strings.TrimSpace(s.FullName)

		if err := validate.Check(s); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("generating password hash: %w", err)
		}

		u, err := register(ctx, db, s.Email, s.FullName, hash)
		if err != nil {
			if errors.Is(err, database.ErrDBDuplicatedEntry) {
				return weberr.Conflict(err, "email already in use")
			}
			return err
		}

		if err := login(ctx, sm, claims.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}); err != nil {
			return err
		}

		return web.Respond(ctx, w, u, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cred Credentials
		if err := web.Decode(w, r, &cred); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cred); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		u, err := user.FetchByEmail(ctx, db, cred.Email)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NewError(err, errBadCredentials.Error(), http.StatusUnauthorized)
			}
			return fmt.Errorf("fetching user: %w", err)
		}

		// Accounts created through an identity provider have no password.
		if len(u.PasswordHash) == 0 {
			return weberr.NewError(errBadCredentials, errBadCredentials.Error(), http.StatusUnauthorized)
		}

		if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(cred.Password)); err != nil {
			return weberr.NewError(err, errBadCredentials.Error(), http.StatusUnauthorized)
		}

		if err := login(ctx, sm, claims.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleLogout(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := sm.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
