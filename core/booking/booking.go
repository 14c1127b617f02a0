package booking

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentNone    = "n/a"
)

const StatusPending = "pending"

// Details holds the service specific answers of the form, keyed as the form
// sends them (theme_expectation, coaching_options, ...).
type Details map[string]any

type BookingNew struct {
	FullName         string           `json:"fullName"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	Country          string           `json:"country"`
	ServiceType      string           `json:"serviceType"`
	ServiceLabel     string           `json:"serviceLabel"`
	ServiceDetails   Details          `json:"serviceDetails"`
	PriceUSD         *decimal.Decimal `json:"priceUSD"`
	PriceGHS         *decimal.Decimal `json:"priceGHS"`
	PaymentStatus    string           `json:"paymentStatus"`
	PaymentReference string           `json:"paymentReference"`
}

type Booking struct {
	ID               string              `json:"id" db:"booking_id"`
	FirstName        string              `json:"firstName" db:"first_name"`
	LastName         string              `json:"lastName" db:"last_name"`
	Email            string              `json:"email" db:"email"`
	Phone            string              `json:"phone" db:"phone"`
	Country          string              `json:"country" db:"country"`
	Type             string              `json:"bookingType" db:"booking_type"`
	AdditionalInfo   *string             `json:"additionalInfo" db:"additional_info"`
	Price            decimal.NullDecimal `json:"price" db:"price"`
	PaymentStatus    string              `json:"paymentStatus" db:"payment_status"`
	PaymentReference *string             `json:"paymentReference" db:"payment_reference"`
	Status           string              `json:"status" db:"status"`
	CreatedAt        time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time           `json:"updatedAt" db:"updated_at"`
}

func (b Booking) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

type PaymentUp struct {
	PaymentReference string `json:"paymentReference" validate:"required,max=200"`
}

// Submission is the answer to a booking request.
type Submission struct {
	Success         bool    `json:"success"`
	BookingID       string  `json:"bookingId"`
	CalComURL       *string `json:"calComUrl"`
	RequiresPayment bool    `json:"requiresPayment"`
	EmailSent       bool    `json:"emailSent"`
}

// SplitName splits a full name at the first space: "Ama Serwaa Mensah" is
// first name "Ama" and last name "Serwaa Mensah".
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	first, last, _ = strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}

var infoLabels = []struct {
	key   string
	label string
}{
	{"theme_expectation", "Theme/Expectation"},
	{"communication_aspect", "Communication Aspect"},
	{"mentoring_aspect", "Mentoring Aspect"},
	{"podcast_subject", "Podcast Subject"},
	{"coaching_options", "Coaching Focus"},
	{"other_notes", "Additional Notes"},
}

// AdditionalInfo renders the known details as "Label: value" lines. Unknown
// keys are left out.
func (d Details) AdditionalInfo() string {
	var lines []string
	for _, il := range infoLabels {
		if v := d.value(il.key); v != "" {
			lines = append(lines, il.label+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

// Entries lists every non empty detail, sorted by key.
func (d Details) Entries() [][2]string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out [][2]string
	for _, k := range keys {
		if v := d.value(k); v != "" {
			out = append(out, [2]string{k, v})
		}
	}
	return out
}

func (d Details) value(key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			if s := strings.TrimSpace(fmt.Sprint(e)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	default:
		return fmt.Sprint(v)
	}
}
