// Package pin verifies six-digit access codes against stored bcrypt hashes.
package pin

import (
	"strings"

	apperrors "github.com/platewire/boardgate/internal/platform/errors"
	"golang.org/x/crypto/bcrypt"
)

// Length is the number of digits in an access PIN.
const Length = 6

// ErrInvalidPin indicates a submitted value that is not six ASCII digits.
var ErrInvalidPin = apperrors.New(apperrors.CodeInvalidPin, "pin must be exactly six digits")

// Validate enforces the canonical PIN shape before any storage access.
func Validate(pin string) error {
	if len(pin) != Length {
		return ErrInvalidPin
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPin
		}
	}
	return nil
}

// Hash derives the stored bcrypt hash for a PIN.
//
// Used at provisioning time; the plaintext never reaches storage.
func Hash(pin string) (string, error) {
	if err := Validate(pin); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "hash pin", err)
	}
	return string(hashed), nil
}

// Matches compares a submitted PIN against a stored hash.
func Matches(hash string, pin string) bool {
	if strings.TrimSpace(hash) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
