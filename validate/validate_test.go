package validate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

type priced struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price" validate:"gte=0,lte=10000"`
}

func TestCheckDecimal(t *testing.T) {
	tests := []struct {
		name    string
		val     priced
		wantErr bool
	}{
		{"valid", priced{Name: "Presence", Price: decimal.RequireFromString("99.00")}, false},
		{"zero price", priced{Name: "Free", Price: decimal.Zero}, false},
		{"negative price", priced{Name: "Broken", Price: decimal.RequireFromString("-0.01")}, true},
		{"too expensive", priced{Name: "Gold", Price: decimal.RequireFromString("10000.01")}, true},
		{"missing name", priced{Price: decimal.RequireFromString("10")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.val)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFieldsUsesJSONNames(t *testing.T) {
	got := Fields(priced{Price: decimal.RequireFromString("-1")})
	want := map[string]string{
		"name":  "name is a required field",
		"price": "price must be 0 or greater",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected field errors (-want +got):\n%s", diff)
	}
}

func TestCheckID(t *testing.T) {
	if err := CheckID(GenerateID()); err != nil {
		t.Fatalf("generated id rejected: %v", err)
	}
	if err := CheckID("not-a-uuid"); err == nil {
		t.Fatal("malformed id accepted")
	}
}
