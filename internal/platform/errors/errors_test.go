package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	a := New(CodePinMismatch, "pin mismatch")
	b := New(CodePinMismatch, "different message")
	if !stderrors.Is(a, b) {
		t.Fatal("expected errors with the same code to match")
	}

	c := New(CodeCredentialsNotFound, "no record")
	if stderrors.Is(a, c) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk failure")
	err := Wrap(CodeAuditWriteFailed, "update audit fields", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be found in chain")
	}
	if err.Error() != "update audit fields" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: CodeUnknown},
		{name: "plain error", err: stderrors.New("boom"), want: CodeUnknown},
		{name: "domain error", err: New(CodeCeremonyFailed, "cancelled"), want: CodeCeremonyFailed},
		{name: "wrapped domain error", err: fmt.Errorf("outer: %w", New(CodeInvalidPin, "short")), want: CodeInvalidPin},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Fatalf("CodeOf = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestHTTPStatusHidesAccountExistence(t *testing.T) {
	// A missing record and a wrong PIN must surface identically.
	if CodeCredentialsNotFound.HTTPStatus() != CodePinMismatch.HTTPStatus() {
		t.Fatal("expected credentials-not-found and pin-mismatch to share a status")
	}
	if got := CodePinMismatch.HTTPStatus(); got != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", got)
	}
}

func TestHTTPStatusDefaults(t *testing.T) {
	if got := CodeUnknown.HTTPStatus(); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unknown code, got %d", got)
	}
	if got := CodeBiometricUnavailable.HTTPStatus(); got != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 for biometric unavailable, got %d", got)
	}
}
