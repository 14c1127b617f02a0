package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestMapError(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "purchases_payment_reference_key"}

	err := mapError(fmt.Errorf("exec: %w", dup))
	if !errors.Is(err, ErrDBDuplicatedEntry) {
		t.Fatalf("unique violation not mapped: %v", err)
	}
	if err.Error() != "purchases_payment_reference_key: duplicated entry" {
		t.Fatalf("constraint name lost: %q", err.Error())
	}

	fk := &pq.Error{Code: "23503", Constraint: "purchases_course_id_fkey"}
	if err := mapError(fk); errors.Is(err, ErrDBDuplicatedEntry) || err != error(fk) {
		t.Fatalf("foreign key violation mapped to %v", err)
	}

	other := errors.New("connection refused")
	if err := mapError(other); err != other {
		t.Fatalf("unrelated error changed to %v", err)
	}
}
