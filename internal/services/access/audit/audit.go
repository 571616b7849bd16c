// Package audit applies best-effort post-authentication bookkeeping.
//
// A successful verification stamps last-access, bumps the access count, and
// appends one row of access history. None of it can fail an authentication
// that already succeeded: errors are logged and counted, never returned.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/platewire/boardgate/internal/platform/id"
	"github.com/platewire/boardgate/internal/platform/metrics"
	"github.com/platewire/boardgate/internal/services/access/storage"
)

// Access methods recorded in credential history.
const (
	MethodPIN       = "pin"
	MethodBiometric = "biometric"
)

// Recorder writes audit fields and history entries after a grant.
type Recorder struct {
	credentials storage.CredentialStore
	entries     storage.AuditStore
	log         *zap.Logger

	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewRecorder builds a recorder over the given stores.
func NewRecorder(credentials storage.CredentialStore, entries storage.AuditStore, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		credentials: credentials,
		entries:     entries,
		log:         log,
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

// RecordAccess applies the audit update for one granted access.
//
// Both the PIN and the biometric path call this with their method label, so
// the two paths keep identical audit semantics.
func (r *Recorder) RecordAccess(ctx context.Context, identifier string, method string) {
	if r == nil {
		return
	}
	now := r.clock().UTC()

	if r.credentials != nil {
		err := r.credentials.UpdateAuditFields(ctx, identifier, storage.AuditFields{
			LastAccessAt: now,
			Method:       method,
		})
		if err != nil {
			metrics.AuditWriteFailures.Inc()
			r.log.Warn("audit field update dropped",
				zap.String("identifier", identifier),
				zap.String("method", method),
				zap.Error(err))
			return
		}
	}

	if r.entries != nil {
		entryID, err := r.idGenerator()
		if err == nil {
			err = r.entries.AppendAuditEntry(ctx, storage.AuditEntry{
				ID:         entryID,
				Identifier: identifier,
				Method:     method,
				OccurredAt: now,
			})
		}
		if err != nil {
			metrics.AuditWriteFailures.Inc()
			r.log.Warn("audit history append dropped",
				zap.String("identifier", identifier),
				zap.String("method", method),
				zap.Error(err))
			return
		}
	}

	metrics.AuditWrites.Inc()
}
