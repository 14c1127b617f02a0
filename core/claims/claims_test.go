package claims

import (
	"context"
	"testing"
)

func TestClaims(t *testing.T) {
	ctx := context.Background()

	if _, err := Get(ctx); err == nil {
		t.Fatal("expected an error without claims")
	}
	if IsAdmin(ctx) || OwnsEmail(ctx, "") {
		t.Fatal("anonymous context granted access")
	}

	ctx = Set(ctx, Claims{UserID: "u1", Email: "Ama@Example.com", Role: RoleUser})

	if IsAdmin(ctx) {
		t.Fatal("user reported as admin")
	}
	if !IsUser(ctx, "u1") || IsUser(ctx, "u2") {
		t.Fatal("IsUser mismatch")
	}
	if !OwnsEmail(ctx, "ama@example.com") || OwnsEmail(ctx, "kofi@example.com") {
		t.Fatal("OwnsEmail mismatch")
	}
}
