package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/platewire/boardgate/internal/services/access/storage"
)

const putCredentialQuery = `
INSERT INTO credentials (identifier, pin_hash, credential_id, credential_json, last_access_at, access_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(identifier) DO UPDATE SET
    pin_hash        = excluded.pin_hash,
    credential_id   = excluded.credential_id,
    credential_json = excluded.credential_json,
    updated_at      = excluded.updated_at;
`

const getCredentialQuery = `
SELECT identifier, pin_hash, credential_id, credential_json, last_access_at, access_count, created_at, updated_at
FROM credentials
WHERE identifier = ?;
`

const updateAuditFieldsQuery = `
UPDATE credentials
SET last_access_at = ?, access_count = access_count + 1, updated_at = ?
WHERE identifier = ?;
`

const updateBiometricFieldsQuery = `
UPDATE credentials
SET credential_id = ?, credential_json = ?, updated_at = ?
WHERE identifier = ?;
`

// PutCredential inserts or replaces the single record for an identifier.
func (s *Store) PutCredential(ctx context.Context, credential storage.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(credential.Identifier) == "" {
		return fmt.Errorf("identifier is required")
	}
	if strings.TrimSpace(credential.PINHash) == "" {
		return fmt.Errorf("pin hash is required")
	}

	lastAccess := sql.NullInt64{}
	if credential.LastAccessAt != nil {
		lastAccess = sql.NullInt64{Int64: toMillis(*credential.LastAccessAt), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(ctx, putCredentialQuery,
		credential.Identifier,
		credential.PINHash,
		credential.CredentialID,
		credential.CredentialJSON,
		lastAccess,
		credential.AccessCount,
		toMillis(credential.CreatedAt),
		toMillis(credential.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

// GetCredential fetches the record for an identifier.
func (s *Store) GetCredential(ctx context.Context, identifier string) (storage.Credential, error) {
	if err := ctx.Err(); err != nil {
		return storage.Credential{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Credential{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(identifier) == "" {
		return storage.Credential{}, fmt.Errorf("identifier is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, getCredentialQuery, identifier)

	var (
		record     storage.Credential
		lastAccess sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(
		&record.Identifier,
		&record.PINHash,
		&record.CredentialID,
		&record.CredentialJSON,
		&lastAccess,
		&record.AccessCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Credential{}, storage.ErrNotFound
		}
		return storage.Credential{}, fmt.Errorf("get credential: %w", err)
	}

	if lastAccess.Valid {
		value := fromMillis(lastAccess.Int64)
		record.LastAccessAt = &value
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

// UpdateAuditFields stamps last access and increments the access count.
//
// The increment happens in SQL so concurrent writers cannot lose counts.
func (s *Store) UpdateAuditFields(ctx context.Context, identifier string, fields storage.AuditFields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("identifier is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, updateAuditFieldsQuery,
		toMillis(fields.LastAccessAt),
		toMillis(fields.LastAccessAt),
		identifier,
	)
	if err != nil {
		return fmt.Errorf("update audit fields: %w", err)
	}
	return requireRow(result)
}

// UpdateBiometricFields stores the credential id and blob from a finished
// registration ceremony.
func (s *Store) UpdateBiometricFields(ctx context.Context, identifier string, fields storage.BiometricFields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("identifier is required")
	}
	if strings.TrimSpace(fields.CredentialID) == "" {
		return fmt.Errorf("credential id is required")
	}
	if strings.TrimSpace(fields.CredentialJSON) == "" {
		return fmt.Errorf("credential json is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, updateBiometricFieldsQuery,
		fields.CredentialID,
		fields.CredentialJSON,
		toMillis(timeNow()),
		identifier,
	)
	if err != nil {
		return fmt.Errorf("update biometric fields: %w", err)
	}
	return requireRow(result)
}

// ClearBiometricFields removes a stored biometric credential, forcing the
// next ceremony back to registration.
func (s *Store) ClearBiometricFields(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("identifier is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, updateBiometricFieldsQuery,
		"", "", toMillis(timeNow()), identifier,
	)
	if err != nil {
		return fmt.Errorf("clear biometric fields: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
