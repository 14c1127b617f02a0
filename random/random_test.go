package random

import (
	"regexp"
	"testing"
)

func TestReference(t *testing.T) {
	shape := regexp.MustCompile(`^course_\d{13}_[0-9a-z]{9}$`)

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		ref, err := Reference("course")
		if err != nil {
			t.Fatal(err)
		}
		if !shape.MatchString(ref) {
			t.Fatalf("unexpected reference shape %q", ref)
		}
		if seen[ref] {
			t.Fatalf("reference %q generated twice", ref)
		}
		seen[ref] = true
	}
}

func TestStringLength(t *testing.T) {
	for _, n := range []int{0, 1, 32} {
		if got := len(String(n)); got != n {
			t.Fatalf("String(%d) has length %d", n, got)
		}
		s, err := StringSecure(n)
		if err != nil {
			t.Fatal(err)
		}
		if len(s) != n {
			t.Fatalf("StringSecure(%d) has length %d", n, len(s))
		}
	}
}
