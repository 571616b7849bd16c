package pin

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{name: "six digits", in: "123456", ok: true},
		{name: "all zeros", in: "000000", ok: true},
		{name: "too short", in: "12345", ok: false},
		{name: "too long", in: "1234567", ok: false},
		{name: "empty", in: "", ok: false},
		{name: "letter", in: "12a456", ok: false},
		{name: "space", in: "12 456", ok: false},
		{name: "unicode digit", in: "12345٦", ok: false},
		{name: "negative sign", in: "-12345", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.in)
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidPin) {
				t.Fatalf("expected ErrInvalidPin, got %v", err)
			}
		})
	}
}

func TestHashAndMatches(t *testing.T) {
	hash, err := Hash("123456")
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	if hash == "123456" {
		t.Fatal("hash must not equal plaintext")
	}

	if !Matches(hash, "123456") {
		t.Fatal("expected hash to match its source pin")
	}
	if Matches(hash, "123457") {
		t.Fatal("expected mismatch for a different pin")
	}
	if Matches(hash, "000000") {
		t.Fatal("expected mismatch for all zeros")
	}
}

func TestHashRejectsInvalidPin(t *testing.T) {
	if _, err := Hash("12345"); !errors.Is(err, ErrInvalidPin) {
		t.Fatalf("expected ErrInvalidPin, got %v", err)
	}
}

func TestMatchesEmptyHash(t *testing.T) {
	if Matches("", "123456") {
		t.Fatal("empty hash must never match")
	}
	if Matches("   ", "123456") {
		t.Fatal("blank hash must never match")
	}
}
