package user

import "time"

type User struct {
	ID           string    `json:"id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type UserNew struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" validate:"eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=ADMIN USER"`
}

type PasswordUp struct {
	ID           string    `db:"user_id"`
	PasswordHash []byte    `db:"password_hash"`
	UpdatedAt    time.Time `db:"updated_at"`
}
