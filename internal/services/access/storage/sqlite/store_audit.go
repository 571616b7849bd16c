package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/platewire/boardgate/internal/services/access/storage"
)

const appendAuditEntryQuery = `
INSERT INTO audit_entries (id, identifier, method, occurred_at)
VALUES (?, ?, ?, ?);
`

const listAuditEntriesQuery = `
SELECT id, identifier, method, occurred_at
FROM audit_entries
WHERE identifier = ?
ORDER BY occurred_at DESC
LIMIT ?;
`

const defaultAuditListLimit = 50

// AppendAuditEntry records one access event in the history log.
func (s *Store) AppendAuditEntry(ctx context.Context, entry storage.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("entry id is required")
	}
	if strings.TrimSpace(entry.Identifier) == "" {
		return fmt.Errorf("identifier is required")
	}
	if strings.TrimSpace(entry.Method) == "" {
		return fmt.Errorf("method is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, appendAuditEntryQuery,
		entry.ID,
		entry.Identifier,
		entry.Method,
		toMillis(entry.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns the most recent access events for an identifier.
func (s *Store) ListAuditEntries(ctx context.Context, identifier string, limit int) ([]storage.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(identifier) == "" {
		return nil, fmt.Errorf("identifier is required")
	}
	if limit <= 0 {
		limit = defaultAuditListLimit
	}

	rows, err := s.sqlDB.QueryContext(ctx, listAuditEntriesQuery, identifier, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]storage.AuditEntry, 0)
	for rows.Next() {
		var (
			entry      storage.AuditEntry
			occurredAt int64
		)
		if err := rows.Scan(&entry.ID, &entry.Identifier, &entry.Method, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.OccurredAt = fromMillis(occurredAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
