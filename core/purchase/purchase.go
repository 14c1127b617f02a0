package purchase

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrReferenceUsed  = errors.New("payment reference already used for another purchase")
)

// Purchase is a paid course. AmountPaid is what the gateway settled, in
// Currency.
type Purchase struct {
	ID               string          `json:"id" db:"purchase_id"`
	UserID           string          `json:"userId" db:"user_id"`
	CourseID         string          `json:"courseId" db:"course_id"`
	AmountPaid       decimal.Decimal `json:"amountPaid" db:"amount_paid"`
	Currency         string          `json:"currency" db:"currency"`
	PaymentReference string          `json:"paymentReference" db:"payment_reference"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
}

type Confirmation struct {
	CourseID         string `json:"courseId" validate:"required,uuid"`
	PaymentReference string `json:"paymentReference" validate:"required,max=200"`
}

type Buyer struct {
	UserID string
	Email  string
	Name   string
}

func (b Buyer) greeting() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Email
}

// Receipt is the outcome of a reconciliation that ended with a stored
// purchase. Duplicate is set when the purchase had been stored by an earlier
// attempt with the same reference.
type Receipt struct {
	Purchase  Purchase
	Duplicate bool
	EmailSent bool
}

// Result is the body of every purchase confirmation answer.
type Result struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Reference string `json:"reference,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	EmailSent bool   `json:"emailSent"`
}
