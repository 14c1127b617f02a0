package booking

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateField(t *testing.T) {
	tests := []struct {
		field string
		value string
		want  string
	}{
		{FieldFullName, "", "Full name is required"},
		{FieldFullName, "  A ", "Name must be at least 2 characters"},
		{FieldFullName, "Ama", ""},
		{FieldEmail, "", "Email is required"},
		{FieldEmail, "not-an-email", "Please enter a valid email address"},
		{FieldEmail, "ama@example", "Please enter a valid email address"},
		{FieldEmail, "ama mensah@example.com", "Please enter a valid email address"},
		{FieldEmail, "ama@example.com", ""},
		{FieldPhone, "   ", "Phone number is required"},
		{FieldPhone, "024 123", "Please enter a valid phone number"},
		{FieldPhone, "+233241234567", ""},
		{FieldCountry, "", "Country is required"},
		{FieldCountry, "Ghana", ""},
		{FieldServiceType, "", "Please select a service"},
		{FieldServiceType, "yoga", "Please select a valid service"},
		{FieldServiceType, TypeConsultation, ""},
	}

	for _, tt := range tests {
		if got := ValidateField(tt.field, tt.value); got != tt.want {
			t.Errorf("ValidateField(%s, %q) = %q, want %q", tt.field, tt.value, got, tt.want)
		}
	}
}

func TestValidateForm(t *testing.T) {
	if fe := ValidateForm(validForm()); fe != nil {
		t.Fatalf("valid form rejected: %v", fe)
	}

	bn := validForm()
	bn.Email = "not-an-email"
	bn.Country = ""

	want := FieldErrors{
		FieldEmail:   "Please enter a valid email address",
		FieldCountry: "Country is required",
	}
	if diff := cmp.Diff(want, ValidateForm(bn)); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckSummary(t *testing.T) {
	bn := validForm()
	bn.Email = "not-an-email"

	err := check(bn)
	vle, ok := err.(*ValidationError)
	if !ok || vle.Message != "Invalid email format" {
		t.Fatalf("bad email: got %v", err)
	}

	bn.Phone = ""
	vle, ok = check(bn).(*ValidationError)
	if !ok || vle.Message != "Missing required fields" {
		t.Fatalf("missing phone: got %+v", vle)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		full, first, last string
	}{
		{"Ama", "Ama", ""},
		{"Ama Mensah", "Ama", "Mensah"},
		{"  Ama Serwaa  Mensah ", "Ama", "Serwaa  Mensah"},
	}

	for _, tt := range tests {
		first, last := SplitName(tt.full)
		if first != tt.first || last != tt.last {
			t.Errorf("SplitName(%q) = %q, %q", tt.full, first, last)
		}
	}
}

func TestAdditionalInfo(t *testing.T) {
	d := Details{
		"coaching_options": []any{"Articulacy", "Commanding Presence"},
		"other_notes":      "  mornings only ",
		"podcast_subject":  "",
		"unknown":          "ignored",
	}

	want := "Coaching Focus: Articulacy, Commanding Presence\nAdditional Notes: mornings only"
	if got := d.AdditionalInfo(); got != want {
		t.Fatalf("AdditionalInfo() = %q, want %q", got, want)
	}

	if got := (Details{}).AdditionalInfo(); got != "" {
		t.Fatalf("empty details rendered %q", got)
	}
}

func TestCatalog(t *testing.T) {
	c, ok := Lookup(TypeConsultation)
	if !ok || !c.RequiresPayment() || !c.RequiresScheduling || c.Price.IntPart() != 99 {
		t.Fatalf("consultation: %+v", c)
	}

	k, ok := Lookup(TypeKeynote)
	if !ok || k.RequiresPayment() {
		t.Fatalf("keynote should be an inquiry: %+v", k)
	}
}

func validForm() BookingNew {
	return BookingNew{
		FullName:    "Ama Mensah",
		Email:       "ama@example.com",
		Phone:       "+233241234567",
		Country:     "Ghana",
		ServiceType: TypeConsultation,
	}
}
