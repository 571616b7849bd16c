package ceremony

import (
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/platewire/boardgate/internal/services/access/storage"
)

// gateUser adapts a credential record to the webauthn.User contract.
type gateUser struct {
	record      storage.Credential
	credentials []webauthn.Credential
}

func newGateUser(record storage.Credential, credentials []webauthn.Credential) *gateUser {
	return &gateUser{record: record, credentials: credentials}
}

func (u *gateUser) WebAuthnID() []byte {
	return []byte(u.record.Identifier)
}

func (u *gateUser) WebAuthnName() string {
	return u.record.Identifier
}

func (u *gateUser) WebAuthnDisplayName() string {
	return u.record.Identifier
}

func (u *gateUser) WebAuthnIcon() string {
	return ""
}

func (u *gateUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
