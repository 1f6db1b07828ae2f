package relations

import (
	"reflect"
	"testing"
)

func TestNormalizePatch(t *testing.T) {
	raw := map[string]any{
		"name":        "  Acme BV  ",
		"email":       "",
		"website":     "   ",
		"telephone":   nil,
		"isCustomer":  false,
		"paymentTerm": float64(0),
	}

	got := NormalizePatch(raw)

	want := map[string]any{
		"name":        "Acme BV",
		"email":       nil,
		"website":     nil,
		"telephone":   nil,
		"isCustomer":  false,
		"paymentTerm": float64(0),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizePatchAbsentKeyStaysAbsent(t *testing.T) {
	got := NormalizePatch(map[string]any{"name": "Acme"})
	if _, present := got["email"]; present {
		t.Fatal("email must stay absent when not supplied")
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one key, got %v", got)
	}
}

func TestNormalizePatchEmptyStringBecomesExplicitNil(t *testing.T) {
	got := NormalizePatch(map[string]any{"email": ""})
	value, present := got["email"]
	if !present {
		t.Fatal("cleared field must stay present in the patch")
	}
	if value != nil {
		t.Fatalf("cleared field must be nil, got %v", value)
	}
}

func TestFilterPatch(t *testing.T) {
	raw := map[string]any{
		"name":      "Acme",
		"bogus":     1,
		"id":        "should not pass",
		"createdAt": "2024-01-01",
		"email":     "a@b.nl",
	}

	got := FilterPatch(raw, relationColumnsByField)

	if len(got) != 2 {
		t.Fatalf("expected 2 keys, got %v", got)
	}
	if got["name"] != "Acme" || got["email"] != "a@b.nl" {
		t.Fatalf("unexpected patch %v", got)
	}
}
