// Package credential provides the privileged-access credential domain model.
package credential

import (
	"regexp"
	"strings"
	"time"

	apperrors "github.com/platewire/boardgate/internal/platform/errors"
	"github.com/platewire/boardgate/internal/services/access/storage"
)

var (
	// ErrEmptyIdentifier indicates a missing identifier.
	ErrEmptyIdentifier = apperrors.New(apperrors.CodeCredentialEmptyID, "identifier is required")
	// ErrInvalidIdentifier indicates an identifier that is not an email address.
	ErrInvalidIdentifier = apperrors.New(apperrors.CodeCredentialInvalidID, "identifier must be an email address")

	identifierPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// NormalizeIdentifier canonicalizes an identifier for storage and lookup.
//
// Identifiers are emails; lookups must not depend on the casing the operator
// happened to type during provisioning.
func NormalizeIdentifier(identifier string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(identifier))
	if normalized == "" {
		return "", ErrEmptyIdentifier
	}
	if !identifierPattern.MatchString(normalized) {
		return "", ErrInvalidIdentifier
	}
	return normalized, nil
}

// New builds a provisioning-time credential record from a validated
// identifier and an already-hashed PIN.
func New(identifier string, pinHash string, now func() time.Time) (storage.Credential, error) {
	if now == nil {
		now = time.Now
	}
	normalized, err := NormalizeIdentifier(identifier)
	if err != nil {
		return storage.Credential{}, err
	}
	if strings.TrimSpace(pinHash) == "" {
		return storage.Credential{}, apperrors.New(apperrors.CodeInvalidArgument, "pin hash is required")
	}

	created := now().UTC()
	return storage.Credential{
		Identifier: normalized,
		PINHash:    pinHash,
		CreatedAt:  created,
		UpdatedAt:  created,
	}, nil
}

// HasBiometric reports whether a registration ceremony has completed for the
// record, which selects assertion over registration for the next ceremony.
func HasBiometric(c storage.Credential) bool {
	return strings.TrimSpace(c.CredentialID) != "" && strings.TrimSpace(c.CredentialJSON) != ""
}
