package profile

import (
	"errors"
	"time"
)

var (
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("Passwords do not match")
)

const minPasswordLen = 6

type Profile struct {
	UserID             string    `json:"userId" db:"user_id"`
	Email              string    `json:"email" db:"email"`
	Role               string    `json:"role" db:"role"`
	FullName           string    `json:"fullName" db:"full_name"`
	EmailNotifications bool      `json:"emailNotifications" db:"email_notifications"`
	MarketingUpdates   bool      `json:"marketingUpdates" db:"marketing_updates"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

type ProfileUp struct {
	FullName string `json:"fullName" validate:"required,min=2,max=120"`
}

type NotificationsUp struct {
	EmailNotifications *bool `json:"emailNotifications" validate:"required"`
	MarketingUpdates   *bool `json:"marketingUpdates" validate:"required"`
}

type PasswordUp struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// Check applies the password rules of the settings page.
func (p PasswordUp) Check() error {
	if len(p.Password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if p.Password != p.PasswordConfirm {
		return ErrPasswordMismatch
	}
	return nil
}
