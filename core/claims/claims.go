package claims

import (
	"context"
	"errors"
	"strings"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Claims identify the user behind a session. Email is the address the user
// signed up with and is what bookings are matched against.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, errors.New("claim value missing from context")
	}
	return v, nil
}

func IsAdmin(ctx context.Context) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Role == RoleAdmin
}

func IsUser(ctx context.Context, id string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.UserID == id
}

// OwnsEmail reports whether the caller signed up with addr. Addresses are
// compared case insensitively.
func OwnsEmail(ctx context.Context, addr string) bool {
	c, err := Get(ctx)
	if err != nil || c.Email == "" {
		return false
	}

	return strings.EqualFold(c.Email, addr)
}
