package pin

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/platewire/boardgate/internal/platform/errors"
	"github.com/platewire/boardgate/internal/platform/metrics"
	"github.com/platewire/boardgate/internal/services/access/credential"
	"github.com/platewire/boardgate/internal/services/access/storage"
)

var tracer = otel.Tracer("boardgate/access/pin")

// ErrCredentialsNotFound indicates no record exists for the identifier.
var ErrCredentialsNotFound = apperrors.New(apperrors.CodeCredentialsNotFound, "no credential record for identifier")

// ErrPinMismatch indicates the submitted PIN does not match the stored hash.
var ErrPinMismatch = apperrors.New(apperrors.CodePinMismatch, "pin does not match")

// AuditRecorder receives the best-effort post-authentication update.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, identifier string, method string)
}

// Verifier checks submitted PINs against the credential store.
type Verifier struct {
	store storage.CredentialStore
	audit AuditRecorder
}

// NewVerifier builds a verifier over the given store.
//
// The audit recorder may be nil; verification still succeeds, the audit
// update is simply skipped.
func NewVerifier(store storage.CredentialStore, audit AuditRecorder) *Verifier {
	return &Verifier{store: store, audit: audit}
}

// Verify checks a six-digit PIN for an identifier.
//
// Returns nil on match. A missing record yields ErrCredentialsNotFound and a
// hash mismatch yields ErrPinMismatch; callers surface both as the same
// generic denial so responses never leak whether an identifier exists. On
// match the audit recorder runs best-effort: its failure never invalidates
// the authentication.
func (v *Verifier) Verify(ctx context.Context, identifier string, submitted string) error {
	ctx, span := tracer.Start(ctx, "pin.Verify",
		trace.WithAttributes(attribute.String("access.method", "pin")))
	defer span.End()

	if v == nil || v.store == nil {
		return apperrors.New(apperrors.CodeInternal, "credential store is not configured")
	}
	if err := Validate(submitted); err != nil {
		metrics.PinAttempts.WithLabelValues("invalid").Inc()
		return err
	}

	normalized, err := credential.NormalizeIdentifier(identifier)
	if err != nil {
		metrics.PinAttempts.WithLabelValues("invalid").Inc()
		return err
	}

	record, err := v.store.GetCredential(ctx, normalized)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.PinAttempts.WithLabelValues("unknown_identifier").Inc()
			return ErrCredentialsNotFound
		}
		return apperrors.Wrap(apperrors.CodeInternal, "fetch credential record", err)
	}

	if !Matches(record.PINHash, submitted) {
		metrics.PinAttempts.WithLabelValues("mismatch").Inc()
		return ErrPinMismatch
	}

	metrics.PinAttempts.WithLabelValues("match").Inc()
	if v.audit != nil {
		v.audit.RecordAccess(ctx, normalized, "pin")
	}
	return nil
}
