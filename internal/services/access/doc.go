// Package access defines the executive authentication boundary.
//
// It is the single place that owns PIN verification, biometric ceremonies,
// and the gate state machine that decides when the board portal unlocks, so
// the portal can depend on one grant decision instead of re-implementing
// authentication rules.
//
// Subpackages:
//   - app: access server wiring and lifecycle
//   - api/http: JSON API handlers for gate sessions and direct verification
//   - gate: per-session access state machine
//   - pin: PIN shape rules, hashing, and verification
//   - ceremony: WebAuthn registration and assertion adapter
//   - audit: best-effort access history recording
//   - credential: credential record model and identifier rules
//   - token: session tokens minted on grant
//   - storage: persistence interfaces and SQLite implementation
package access
