// Package storage defines persistence contracts for executive access assets.
//
// These interfaces exist so verification and ceremony logic can depend on
// stable domain semantics without coupling to SQLite schema details.
package storage

import (
	"context"
	"time"

	"github.com/platewire/boardgate/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// Credential is the single privileged-access record for one identifier.
//
// Exactly one row exists per identifier. The PIN is stored only as a bcrypt
// hash; the biometric fields hold the WebAuthn credential id and the encoded
// credential blob, both empty until a registration ceremony completes.
type Credential struct {
	Identifier     string
	PINHash        string
	CredentialID   string
	CredentialJSON string
	LastAccessAt   *time.Time
	AccessCount    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AuditFields carries the best-effort post-authentication update.
type AuditFields struct {
	LastAccessAt time.Time
	// Method records how access was granted (pin or biometric).
	Method string
}

// BiometricFields carries the result of a finished registration ceremony.
type BiometricFields struct {
	CredentialID   string
	CredentialJSON string
}

// CeremonySession stores the server-side half of a WebAuthn ceremony.
//
// Sessions are deleted when the ceremony finishes and expire by TTL so no
// ceremony state outlives its ceremony.
type CeremonySession struct {
	ID          string
	Kind        string
	Identifier  string
	SessionJSON string
	ExpiresAt   time.Time
}

// AuditEntry is one row of the append-only access history.
type AuditEntry struct {
	ID         string
	Identifier string
	Method     string
	OccurredAt time.Time
}

// CredentialStore persists privileged-access credential records.
type CredentialStore interface {
	PutCredential(ctx context.Context, credential Credential) error
	GetCredential(ctx context.Context, identifier string) (Credential, error)
	UpdateAuditFields(ctx context.Context, identifier string, fields AuditFields) error
	UpdateBiometricFields(ctx context.Context, identifier string, fields BiometricFields) error
	ClearBiometricFields(ctx context.Context, identifier string) error
}

// CeremonyStore persists WebAuthn ceremony sessions.
type CeremonyStore interface {
	PutCeremonySession(ctx context.Context, session CeremonySession) error
	GetCeremonySession(ctx context.Context, id string) (CeremonySession, error)
	DeleteCeremonySession(ctx context.Context, id string) error
	DeleteExpiredCeremonySessions(ctx context.Context, now time.Time) error
}

// AuditStore appends and reads access history entries.
type AuditStore interface {
	AppendAuditEntry(ctx context.Context, entry AuditEntry) error
	ListAuditEntries(ctx context.Context, identifier string, limit int) ([]AuditEntry, error)
}
