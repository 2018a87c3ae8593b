package forms

import (
	"errors"
	"testing"
)

func TestNormalizeRefillOrder(t *testing.T) {
	raw := map[string]interface{}{
		"OR-Name":         "John",
		"OR-Last-name":    "Doe",
		"OR-Phone-number": "123-456-7890",
		"OR-Medication":   "Aspirin",
	}

	sub, err := Normalize(raw, FormRefillOrder)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	want := map[string]string{
		"first_name": "John",
		"last_name":  "Doe",
		"phone":      "123-456-7890",
		"medication": "Aspirin",
	}
	for name, expected := range want {
		got, ok := sub.Get(name)
		if !ok {
			t.Errorf("field %s absent", name)
			continue
		}
		if got != expected {
			t.Errorf("field %s = %q, want %q", name, got, expected)
		}
	}

	for _, optional := range []string{"note", "delivery_option", "address", "time_slot"} {
		if v, ok := sub.Get(optional); ok {
			t.Errorf("optional field %s unexpectedly present: %q", optional, v)
		}
	}
}

func TestNormalizeAliasPriority(t *testing.T) {
	// Both the Webflow spelling and the canonical spelling are present; the
	// first alias in declared order must win.
	raw := map[string]interface{}{
		"OR-Name":         "FromWebflow",
		"first_name":      "FromCanonical",
		"OR-Last-name":    "Doe",
		"OR-Phone-number": "555-123-4567",
		"OR-Medication":   "Aspirin",
	}

	sub, err := Normalize(raw, FormRefillOrder)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got, _ := sub.Get("first_name"); got != "FromWebflow" {
		t.Errorf("first_name = %q, want alias-priority winner %q", got, "FromWebflow")
	}
}

func TestNormalizeAnyAliasPosition(t *testing.T) {
	// A single alias anywhere in the list must be selected.
	for _, alias := range []string{"OR-Name", "OR_Name", "first_name", "firstName", "name"} {
		raw := map[string]interface{}{
			alias:             "John",
			"OR-Last-name":    "Doe",
			"OR-Phone-number": "555-123-4567",
			"OR-Medication":   "Aspirin",
		}
		sub, err := Normalize(raw, FormRefillOrder)
		if err != nil {
			t.Fatalf("alias %s: normalize failed: %v", alias, err)
		}
		if got, _ := sub.Get("first_name"); got != "John" {
			t.Errorf("alias %s: first_name = %q, want %q", alias, got, "John")
		}
	}
}

func TestNormalizeMissingRequired(t *testing.T) {
	raw := map[string]interface{}{
		"Form-first-name": "Jane",
	}

	_, err := Normalize(raw, FormSignup)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	want := []string{"last_name", "phone"}
	if len(verr.Missing) != len(want) {
		t.Fatalf("missing = %v, want %v", verr.Missing, want)
	}
	for i, name := range want {
		if verr.Missing[i] != name {
			t.Errorf("missing[%d] = %q, want %q", i, verr.Missing[i], name)
		}
	}
	if verr.Raw["Form-first-name"] != "Jane" {
		t.Error("validation error should carry the raw payload")
	}
}

func TestNormalizeWhitespaceOnlyIsAbsent(t *testing.T) {
	raw := map[string]interface{}{
		"OR-Name":         "   ",
		"OR-Last-name":    "Doe",
		"OR-Phone-number": "555-123-4567",
		"OR-Medication":   "Aspirin",
	}

	_, err := Normalize(raw, FormRefillOrder)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Missing) != 1 || verr.Missing[0] != "first_name" {
		t.Errorf("missing = %v, want [first_name]", verr.Missing)
	}
}

func TestNormalizeIgnoresUnknownKeys(t *testing.T) {
	raw := map[string]interface{}{
		"Form-first-name":   "Jane",
		"Form-last-name":    "Smith",
		"Form-phone-number": "555-987-6543",
		"utm_source":        "newsletter",
		"cf-turnstile":      map[string]interface{}{"token": "abc"},
	}

	sub, err := Normalize(raw, FormSignup)
	if err != nil {
		t.Fatalf("unknown keys must not fail normalization: %v", err)
	}
	if len(sub.Values) != 3 {
		t.Errorf("got %d values, want 3", len(sub.Values))
	}
}

func TestNormalizeSignupMisspelledDOB(t *testing.T) {
	// The deployed form sends "Form-date-of-brith"; both spellings map to
	// date_of_birth with the live misspelling winning when both appear.
	raw := map[string]interface{}{
		"Form-first-name":    "John",
		"Form-last-name":     "Doe",
		"Form-phone-number":  "555-123-4567",
		"Form-date-of-brith": "1990-01-01",
	}

	sub, err := Normalize(raw, FormSignup)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got, _ := sub.Get("date_of_birth"); got != "1990-01-01" {
		t.Errorf("date_of_birth = %q, want %q", got, "1990-01-01")
	}
}

func TestNormalizeScalarCoercion(t *testing.T) {
	// encoding/json hands numbers over as float64 and checkboxes as bool;
	// both must normalize to usable text rather than being dropped.
	raw := map[string]interface{}{
		"OR-Name":         "John",
		"OR-Last-name":    "Doe",
		"OR-Phone-number": "555-123-4567",
		"OR-Medication":   "Aspirin",
		"time_slot":       float64(2),
		"delivery_option": true,
	}

	sub, err := Normalize(raw, FormRefillOrder)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got, _ := sub.Get("time_slot"); got != "2" {
		t.Errorf("time_slot = %q, want %q", got, "2")
	}
	if got, _ := sub.Get("delivery_option"); got != "true" {
		t.Errorf("delivery_option = %q, want %q", got, "true")
	}
}

func TestNormalizeUnknownFormType(t *testing.T) {
	if _, err := Normalize(map[string]interface{}{}, FormType("bogus")); err == nil {
		t.Fatal("expected error for unknown form type")
	}
}
