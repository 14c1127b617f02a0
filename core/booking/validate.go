package booking

import (
	"regexp"
	"strings"
)

// Form fields checked before a booking is stored.
const (
	FieldFullName    = "fullName"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldCountry     = "country"
	FieldServiceType = "serviceType"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps a field to the message shown next to it.
type FieldErrors map[string]string

// ValidationError rejects a booking form. Message summarizes Fields.
type ValidationError struct {
	Message string
	Fields  FieldErrors
}

func (e *ValidationError) Error() string { return e.Message }

// ValidateField checks a single form value and returns the message to show,
// or "" when the value is acceptable.
func ValidateField(field, value string) string {
	v := strings.TrimSpace(value)

	switch field {
	case FieldFullName:
		if v == "" {
			return "Full name is required"
		}
		if len([]rune(v)) < 2 {
			return "Name must be at least 2 characters"
		}
	case FieldEmail:
		if v == "" {
			return "Email is required"
		}
		if !emailShape.MatchString(v) {
			return "Please enter a valid email address"
		}
	case FieldPhone:
		if v == "" {
			return "Phone number is required"
		}
		if len(v) < 10 {
			return "Please enter a valid phone number"
		}
	case FieldCountry:
		if v == "" {
			return "Country is required"
		}
	case FieldServiceType:
		if v == "" {
			return "Please select a service"
		}
		if _, ok := Lookup(v); !ok {
			return "Please select a valid service"
		}
	}

	return ""
}

// ValidateForm is the union of ValidateField over every checked field. It
// returns nil for a valid form.
func ValidateForm(bn BookingNew) FieldErrors {
	values := map[string]string{
		FieldFullName:    bn.FullName,
		FieldEmail:       bn.Email,
		FieldPhone:       bn.Phone,
		FieldCountry:     bn.Country,
		FieldServiceType: bn.ServiceType,
	}

	var fe FieldErrors
	for field, value := range values {
		if msg := ValidateField(field, value); msg != "" {
			if fe == nil {
				fe = make(FieldErrors)
			}
			fe[field] = msg
		}
	}
	return fe
}

// check validates bn for storage. The summary follows what failed: missing
// values first, then the email shape.
func check(bn BookingNew) error {
	fe := ValidateForm(bn)
	if fe == nil {
		return nil
	}

	msg := "Invalid booking"
	for _, f := range []string{FieldFullName, FieldEmail, FieldPhone, FieldCountry, FieldServiceType} {
		if _, failed := fe[f]; failed && strings.TrimSpace(valueOf(bn, f)) == "" {
			msg = "Missing required fields"
			break
		}
	}
	if msg != "Missing required fields" {
		if _, failed := fe[FieldEmail]; failed {
			msg = "Invalid email format"
		}
	}

	return &ValidationError{Message: msg, Fields: fe}
}

func valueOf(bn BookingNew, field string) string {
	switch field {
	case FieldFullName:
		return bn.FullName
	case FieldEmail:
		return bn.Email
	case FieldPhone:
		return bn.Phone
	case FieldCountry:
		return bn.Country
	case FieldServiceType:
		return bn.ServiceType
	}
	return ""
}
