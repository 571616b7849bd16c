// Package errors provides structured error handling for the access service.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Generic errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// Credential errors
	CodeCredentialsNotFound     Code = "CREDENTIALS_NOT_FOUND"
	CodeCredentialEmptyID       Code = "CREDENTIAL_EMPTY_IDENTIFIER"
	CodeCredentialInvalidID     Code = "CREDENTIAL_INVALID_IDENTIFIER"
	CodeCredentialAlreadyExists Code = "CREDENTIAL_ALREADY_EXISTS"

	// PIN errors
	CodeInvalidPin  Code = "INVALID_PIN"
	CodePinMismatch Code = "PIN_MISMATCH"

	// Biometric ceremony errors
	CodeBiometricUnavailable Code = "BIOMETRIC_UNAVAILABLE"
	CodeCeremonyFailed       Code = "CEREMONY_FAILED"
	CodeCeremonyExpired      Code = "CEREMONY_EXPIRED"
	CodeCeremonyKindMismatch Code = "CEREMONY_KIND_MISMATCH"

	// Gate errors
	CodeGateSessionNotFound Code = "GATE_SESSION_NOT_FOUND"
	CodeGateTerminal        Code = "GATE_TERMINAL"

	// Audit errors
	CodeAuditWriteFailed Code = "AUDIT_WRITE_FAILED"

	// Token errors
	CodeTokenInvalid Code = "TOKEN_INVALID"
	CodeTokenExpired Code = "TOKEN_EXPIRED"
)

// HTTPStatus maps an error code to the HTTP status the API surfaces.
//
// Denial-shaped codes collapse onto 401 so responses never reveal whether an
// identifier exists.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument, CodeInvalidPin, CodeCeremonyKindMismatch,
		CodeCredentialEmptyID, CodeCredentialInvalidID:
		return http.StatusBadRequest
	case CodeCredentialsNotFound, CodePinMismatch, CodeCeremonyFailed,
		CodeCeremonyExpired, CodeUnauthenticated, CodeTokenInvalid, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeNotFound, CodeGateSessionNotFound:
		return http.StatusNotFound
	case CodeCredentialAlreadyExists, CodeGateTerminal:
		return http.StatusConflict
	case CodeBiometricUnavailable:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
