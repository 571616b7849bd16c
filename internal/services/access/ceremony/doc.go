// Package ceremony runs WebAuthn registration and assertion ceremonies for
// the executive access gate.
//
// Each ceremony is split into begin and finish because the platform
// authenticator lives in the caller's browser. The server half of a ceremony
// is persisted with a TTL and deleted the moment the ceremony finishes, so no
// ceremony state outlives its ceremony. Challenges are generated fresh per
// invocation by the WebAuthn library and verified against the stored session.
package ceremony
