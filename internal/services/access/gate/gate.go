// Package gate orchestrates the executive access flow: PIN entry, biometric
// ceremonies, and the grant decision.
//
// A Gate is a single-session state machine driven by caller events. It is not
// goroutine safe; the embedding layer serializes events per session, matching
// the single-threaded, event-driven shape of the portal UI it backs.
package gate

import (
	"context"

	apperrors "github.com/platewire/boardgate/internal/platform/errors"
	"github.com/platewire/boardgate/internal/platform/metrics"
	"github.com/platewire/boardgate/internal/services/access/ceremony"
)

// State identifies where a gate session is in the access flow.
type State string

// Denial is not a state of its own: a failed attempt returns the session to
// StateEntering with the Denied flag set.
const (
	StateIdle            State = "idle"
	StateEntering        State = "entering"
	StateBiometricPrompt State = "biometric_prompt"
	StateVerifying       State = "verifying"
	StateGranted         State = "granted"
)

// PinLength is the number of digit positions in the entry widget.
const PinLength = 6

// DeniedMessage is the only denial text the gate surfaces. A missing record
// and a wrong PIN read identically so the gate never confirms an account.
const DeniedMessage = "Access denied. Try again."

// ErrTerminal indicates an event arrived after the session was granted.
var ErrTerminal = apperrors.New(apperrors.CodeGateTerminal, "gate session is terminal")

// ErrBiometricUnavailable indicates the platform probe reported no verifying
// authenticator, so the biometric path is not offered.
var ErrBiometricUnavailable = apperrors.New(apperrors.CodeBiometricUnavailable, "biometric authentication is unavailable")

// Verifier checks a completed six-digit sequence.
type Verifier interface {
	Verify(ctx context.Context, identifier string, pin string) error
}

// CeremonyRunner drives WebAuthn ceremonies for the biometric path.
type CeremonyRunner interface {
	Mode(ctx context.Context, identifier string) (ceremony.Kind, error)
	BeginRegistration(ctx context.Context, identifier string) (ceremony.BeginResult, error)
	FinishRegistration(ctx context.Context, sessionID string, responseJSON []byte) (ceremony.FinishResult, error)
	BeginAssertion(ctx context.Context, identifier string) (ceremony.BeginResult, error)
	FinishAssertion(ctx context.Context, sessionID string, responseJSON []byte) (ceremony.FinishResult, error)
}

// Capability reports whether a verifying platform authenticator is available.
type Capability interface {
	Probe(ctx context.Context) bool
}

// Gate is one executive access session.
type Gate struct {
	identifier string
	verifier   Verifier
	ceremonies CeremonyRunner
	capability Capability
	onSuccess  func()

	state            State
	digits           string
	biometricOffered bool
	fired            bool
	method           string
	message          string
	denied           bool
}

// New builds a gate for one identifier. The success callback fires exactly
// once, on the transition into StateGranted.
func New(identifier string, verifier Verifier, ceremonies CeremonyRunner, capability Capability, onSuccess func()) *Gate {
	return &Gate{
		identifier: identifier,
		verifier:   verifier,
		ceremonies: ceremonies,
		capability: capability,
		onSuccess:  onSuccess,
		state:      StateIdle,
	}
}

// Open probes platform capability and moves the gate into PIN entry.
//
// When the probe reports unsupported the biometric option is simply never
// offered; the PIN path is unaffected.
func (g *Gate) Open(ctx context.Context) {
	if g.state != StateIdle {
		return
	}
	if g.capability != nil {
		g.biometricOffered = g.capability.Probe(ctx)
	}
	g.state = StateEntering
}

// State returns the current session state.
func (g *Gate) State() State {
	return g.state
}

// Identifier returns the identifier this session authenticates.
func (g *Gate) Identifier() string {
	return g.identifier
}

// BiometricOffered reports whether the biometric path may be shown.
func (g *Gate) BiometricOffered() bool {
	return g.biometricOffered
}

// Method reports how access was granted: "pin" or "biometric". Empty until
// the session reaches StateGranted.
func (g *Gate) Method() string {
	return g.method
}

// Message returns the current user-facing message, empty when none.
func (g *Gate) Message() string {
	return g.message
}

// Denied reports whether the previous event ended in a denial. It resets on
// the next input event.
func (g *Gate) Denied() bool {
	return g.denied
}

// Positions returns the six entry positions, filled left to right.
func (g *Gate) Positions() []string {
	positions := make([]string, PinLength)
	for i, r := range g.digits {
		positions[i] = string(r)
	}
	return positions
}

// Cursor returns the index of the position that receives the next digit.
func (g *Gate) Cursor() int {
	return len(g.digits)
}

// PressDigit handles one key press during PIN entry.
//
// Non-digit input is rejected silently: the position keeps its value and no
// message is shown. Entering the sixth digit triggers verification exactly
// once; the buffer is cleared before the result is reported, so a completed
// sequence can never verify twice.
func (g *Gate) PressDigit(ctx context.Context, r rune) error {
	if g.state == StateGranted {
		return ErrTerminal
	}
	if g.state != StateEntering {
		return nil
	}
	g.denied = false
	g.message = ""
	if r < '0' || r > '9' {
		return nil
	}
	if len(g.digits) >= PinLength {
		return nil
	}
	g.digits += string(r)
	if len(g.digits) < PinLength {
		return nil
	}
	g.verifyPin(ctx)
	return nil
}

// PressBackspace clears the previous position and moves focus back.
func (g *Gate) PressBackspace() error {
	if g.state == StateGranted {
		return ErrTerminal
	}
	if g.state != StateEntering {
		return nil
	}
	g.denied = false
	g.message = ""
	if len(g.digits) > 0 {
		g.digits = g.digits[:len(g.digits)-1]
	}
	return nil
}

// Clear resets all entry positions.
func (g *Gate) Clear() error {
	if g.state == StateGranted {
		return ErrTerminal
	}
	g.denied = false
	g.message = ""
	g.digits = ""
	if g.state == StateBiometricPrompt {
		g.state = StateEntering
	}
	return nil
}

func (g *Gate) verifyPin(ctx context.Context) {
	g.state = StateVerifying
	submitted := g.digits
	g.digits = ""

	if g.verifier == nil {
		g.deny()
		return
	}
	if err := g.verifier.Verify(ctx, g.identifier, submitted); err != nil {
		g.deny()
		metrics.GateDenied.WithLabelValues("pin").Inc()
		return
	}
	g.grant("pin")
}

// BeginBiometric starts the ceremony variant the stored record calls for.
//
// Registration when no biometric credential is on file, assertion otherwise.
// Unavailable capability hides the path entirely; reaching this method while
// hidden is a caller error.
func (g *Gate) BeginBiometric(ctx context.Context) (ceremony.BeginResult, ceremony.Kind, error) {
	if g.state == StateGranted {
		return ceremony.BeginResult{}, "", ErrTerminal
	}
	if !g.biometricOffered {
		return ceremony.BeginResult{}, "", ErrBiometricUnavailable
	}
	if g.ceremonies == nil {
		return ceremony.BeginResult{}, "", apperrors.New(apperrors.CodeInternal, "ceremony runner is not configured")
	}
	g.denied = false
	g.message = ""

	kind, err := g.ceremonies.Mode(ctx, g.identifier)
	if err != nil {
		return ceremony.BeginResult{}, "", err
	}

	var result ceremony.BeginResult
	switch kind {
	case ceremony.KindRegistration:
		result, err = g.ceremonies.BeginRegistration(ctx, g.identifier)
	default:
		result, err = g.ceremonies.BeginAssertion(ctx, g.identifier)
	}
	if err != nil {
		return ceremony.BeginResult{}, "", err
	}
	g.state = StateBiometricPrompt
	return result, kind, nil
}

// FinishBiometric completes a ceremony started by BeginBiometric.
//
// Success grants the session; any ceremony failure surfaces the generic
// denial message and returns the gate to PIN entry.
func (g *Gate) FinishBiometric(ctx context.Context, kind ceremony.Kind, sessionID string, responseJSON []byte) error {
	if g.state == StateGranted {
		return ErrTerminal
	}
	if g.state != StateBiometricPrompt {
		return apperrors.New(apperrors.CodeInvalidArgument, "no biometric ceremony in progress")
	}
	g.state = StateVerifying

	var err error
	switch kind {
	case ceremony.KindRegistration:
		_, err = g.ceremonies.FinishRegistration(ctx, sessionID, responseJSON)
	default:
		_, err = g.ceremonies.FinishAssertion(ctx, sessionID, responseJSON)
	}
	if err != nil {
		g.deny()
		metrics.GateDenied.WithLabelValues("biometric").Inc()
		return err
	}
	g.grant("biometric")
	return nil
}

func (g *Gate) deny() {
	// Denial is not terminal: entry resets to six empty positions and the
	// session stays interactive. No attempt limit applies.
	g.digits = ""
	g.denied = true
	g.message = DeniedMessage
	g.state = StateEntering
}

func (g *Gate) grant(method string) {
	g.method = method
	g.message = ""
	g.denied = false
	g.state = StateGranted
	metrics.GateGranted.WithLabelValues(method).Inc()
	if !g.fired && g.onSuccess != nil {
		g.fired = true
		g.onSuccess()
	}
}
