package ceremony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	apperrors "github.com/platewire/boardgate/internal/platform/errors"
	"github.com/platewire/boardgate/internal/platform/id"
	"github.com/platewire/boardgate/internal/platform/metrics"
	"github.com/platewire/boardgate/internal/services/access/credential"
	"github.com/platewire/boardgate/internal/services/access/storage"
)

var tracer = otel.Tracer("boardgate/access/ceremony")

var (
	// ErrCredentialsNotFound indicates no record exists for the identifier.
	ErrCredentialsNotFound = apperrors.New(apperrors.CodeCredentialsNotFound, "no credential record for identifier")
	// ErrCeremonyFailed indicates a cancelled, expired, or rejected ceremony.
	ErrCeremonyFailed = apperrors.New(apperrors.CodeCeremonyFailed, "ceremony failed")
	// ErrRegistrationExpected indicates an assertion was requested with no
	// biometric credential on file.
	ErrRegistrationExpected = apperrors.New(apperrors.CodeCeremonyKindMismatch, "no biometric credential on file; registration expected")
	// ErrAssertionExpected indicates a registration was requested for a record
	// that already holds a biometric credential.
	ErrAssertionExpected = apperrors.New(apperrors.CodeCeremonyKindMismatch, "biometric credential already on file; assertion expected")
)

// AuditRecorder receives the best-effort post-authentication update.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, identifier string, method string)
}

type ceremonyProvider interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateLogin(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
}

type ceremonyParser interface {
	ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error)
	ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error)
}

type defaultParser struct{}

func (defaultParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBytes(data)
}

func (defaultParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBytes(data)
}

// Adapter runs WebAuthn ceremonies against the credential store.
type Adapter struct {
	credentials storage.CredentialStore
	sessions    storage.CeremonyStore
	audit       AuditRecorder
	config      Config
	log         *zap.Logger

	webAuthn ceremonyProvider
	initErr  error
	parser   ceremonyParser

	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewAdapter builds a ceremony adapter with the library-backed provider.
func NewAdapter(credentials storage.CredentialStore, sessions storage.CeremonyStore, audit AuditRecorder, config Config, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	webAuthn, err := webauthn.New(&webauthn.Config{
		RPDisplayName: config.RPDisplayName,
		RPID:          config.RPID,
		RPOrigins:     config.RPOrigins,
	})
	return &Adapter{
		credentials: credentials,
		sessions:    sessions,
		audit:       audit,
		config:      config,
		log:         log,
		webAuthn:    webAuthn,
		initErr:     err,
		parser:      defaultParser{},
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

// BeginResult carries the server half of a started ceremony back to the caller.
type BeginResult struct {
	SessionID   string
	OptionsJSON []byte
}

// FinishResult reports a completed ceremony.
type FinishResult struct {
	Identifier   string
	CredentialID string
}

// Mode reports which ceremony variant applies to an identifier: registration
// when no biometric credential is on file, assertion otherwise.
func (a *Adapter) Mode(ctx context.Context, identifier string) (Kind, error) {
	record, err := a.loadCredential(ctx, identifier)
	if err != nil {
		return "", err
	}
	if credential.HasBiometric(record) {
		return KindAssertion, nil
	}
	return KindRegistration, nil
}

// BeginRegistration starts a registration ceremony for an identifier with no
// biometric credential on file.
func (a *Adapter) BeginRegistration(ctx context.Context, identifier string) (BeginResult, error) {
	ctx, span := tracer.Start(ctx, "ceremony.BeginRegistration")
	defer span.End()

	if err := a.ready(); err != nil {
		return BeginResult{}, err
	}
	record, err := a.loadCredential(ctx, identifier)
	if err != nil {
		return BeginResult{}, err
	}
	if credential.HasBiometric(record) {
		return BeginResult{}, ErrAssertionExpected
	}

	user := newGateUser(record, nil)
	creation, session, err := a.webAuthn.BeginRegistration(user,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			UserVerification:        protocol.VerificationRequired,
		}),
	)
	if err != nil {
		return BeginResult{}, apperrors.Wrap(apperrors.CodeInternal, "begin registration ceremony", err)
	}

	result, err := a.storeSession(ctx, KindRegistration, record.Identifier, session, creation)
	if err != nil {
		return BeginResult{}, err
	}
	metrics.CeremoniesStarted.WithLabelValues(string(KindRegistration)).Inc()
	return result, nil
}

// FinishRegistration validates the authenticator response and persists the
// resulting credential id and public-key blob.
//
// A successful registration signals the same on-success path as a verified
// PIN: the audit recorder runs with the biometric method label.
func (a *Adapter) FinishRegistration(ctx context.Context, sessionID string, responseJSON []byte) (FinishResult, error) {
	ctx, span := tracer.Start(ctx, "ceremony.FinishRegistration")
	defer span.End()

	if err := a.ready(); err != nil {
		return FinishResult{}, err
	}
	session, data, err := a.loadSession(ctx, sessionID, KindRegistration)
	if err != nil {
		return FinishResult{}, err
	}
	record, err := a.loadCredential(ctx, session.Identifier)
	if err != nil {
		return FinishResult{}, err
	}

	parsed, err := a.parseCreation(responseJSON)
	if err != nil {
		return FinishResult{}, err
	}
	validated, err := a.webAuthn.CreateCredential(newGateUser(record, nil), data, parsed)
	if err != nil {
		metrics.CeremoniesFinished.WithLabelValues(string(KindRegistration), "failed").Inc()
		return FinishResult{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "validate registration response", err)
	}

	credentialJSON, err := json.Marshal(validated)
	if err != nil {
		return FinishResult{}, apperrors.Wrap(apperrors.CodeInternal, "encode credential", err)
	}
	credentialID := encodeCredentialID(validated.ID)
	err = a.credentials.UpdateBiometricFields(ctx, record.Identifier, storage.BiometricFields{
		CredentialID:   credentialID,
		CredentialJSON: string(credentialJSON),
	})
	if err != nil {
		return FinishResult{}, apperrors.Wrap(apperrors.CodeInternal, "store biometric credential", err)
	}
	_ = a.sessions.DeleteCeremonySession(ctx, sessionID)

	metrics.CeremoniesFinished.WithLabelValues(string(KindRegistration), "ok").Inc()
	if a.audit != nil {
		a.audit.RecordAccess(ctx, record.Identifier, "biometric")
	}
	return FinishResult{Identifier: record.Identifier, CredentialID: credentialID}, nil
}

// BeginAssertion starts an assertion ceremony against the stored credential.
func (a *Adapter) BeginAssertion(ctx context.Context, identifier string) (BeginResult, error) {
	ctx, span := tracer.Start(ctx, "ceremony.BeginAssertion")
	defer span.End()

	if err := a.ready(); err != nil {
		return BeginResult{}, err
	}
	record, err := a.loadCredential(ctx, identifier)
	if err != nil {
		return BeginResult{}, err
	}
	if !credential.HasBiometric(record) {
		return BeginResult{}, ErrRegistrationExpected
	}

	stored, err := decodeStoredCredential(record)
	if err != nil {
		return BeginResult{}, err
	}
	user := newGateUser(record, []webauthn.Credential{stored})
	assertion, session, err := a.webAuthn.BeginLogin(user)
	if err != nil {
		return BeginResult{}, apperrors.Wrap(apperrors.CodeInternal, "begin assertion ceremony", err)
	}

	result, err := a.storeSession(ctx, KindAssertion, record.Identifier, session, assertion)
	if err != nil {
		return BeginResult{}, err
	}
	metrics.CeremoniesStarted.WithLabelValues(string(KindAssertion)).Inc()
	return result, nil
}

// FinishAssertion validates the authenticator response against the stored
// credential and applies the audit update on success.
func (a *Adapter) FinishAssertion(ctx context.Context, sessionID string, responseJSON []byte) (FinishResult, error) {
	ctx, span := tracer.Start(ctx, "ceremony.FinishAssertion")
	defer span.End()

	if err := a.ready(); err != nil {
		return FinishResult{}, err
	}
	session, data, err := a.loadSession(ctx, sessionID, KindAssertion)
	if err != nil {
		return FinishResult{}, err
	}
	record, err := a.loadCredential(ctx, session.Identifier)
	if err != nil {
		return FinishResult{}, err
	}
	stored, err := decodeStoredCredential(record)
	if err != nil {
		return FinishResult{}, err
	}

	parsed, err := a.parseAssertion(responseJSON)
	if err != nil {
		return FinishResult{}, err
	}
	validated, err := a.webAuthn.ValidateLogin(newGateUser(record, []webauthn.Credential{stored}), data, parsed)
	if err != nil {
		metrics.CeremoniesFinished.WithLabelValues(string(KindAssertion), "failed").Inc()
		return FinishResult{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "validate assertion response", err)
	}

	// Persist the updated sign counter so clone detection keeps working. A
	// failure here does not fail the finished ceremony, but it is logged and
	// counted rather than dropped silently.
	a.persistSignCounter(ctx, record.Identifier, validated)
	_ = a.sessions.DeleteCeremonySession(ctx, sessionID)

	metrics.CeremoniesFinished.WithLabelValues(string(KindAssertion), "ok").Inc()
	if a.audit != nil {
		a.audit.RecordAccess(ctx, record.Identifier, "biometric")
	}
	return FinishResult{Identifier: record.Identifier, CredentialID: encodeCredentialID(validated.ID)}, nil
}

func (a *Adapter) persistSignCounter(ctx context.Context, identifier string, validated *webauthn.Credential) {
	credentialJSON, err := json.Marshal(validated)
	if err == nil {
		err = a.credentials.UpdateBiometricFields(ctx, identifier, storage.BiometricFields{
			CredentialID:   encodeCredentialID(validated.ID),
			CredentialJSON: string(credentialJSON),
		})
	}
	if err != nil {
		metrics.CeremonyPersistFailures.Inc()
		a.log.Warn("sign counter update dropped",
			zap.String("identifier", identifier),
			zap.Error(err))
	}
}

func (a *Adapter) ready() error {
	if a == nil || a.credentials == nil || a.sessions == nil {
		return apperrors.New(apperrors.CodeInternal, "ceremony stores are not configured")
	}
	if a.initErr != nil || a.webAuthn == nil {
		return apperrors.Wrap(apperrors.CodeInternal, "webauthn configuration is not available", a.initErr)
	}
	if a.parser == nil {
		return apperrors.New(apperrors.CodeInternal, "ceremony parser is not configured")
	}
	return nil
}

func (a *Adapter) loadCredential(ctx context.Context, identifier string) (storage.Credential, error) {
	if a == nil || a.credentials == nil {
		return storage.Credential{}, apperrors.New(apperrors.CodeInternal, "credential store is not configured")
	}
	normalized, err := credential.NormalizeIdentifier(identifier)
	if err != nil {
		return storage.Credential{}, err
	}
	record, err := a.credentials.GetCredential(ctx, normalized)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Credential{}, ErrCredentialsNotFound
		}
		return storage.Credential{}, apperrors.Wrap(apperrors.CodeInternal, "fetch credential record", err)
	}
	return record, nil
}

func (a *Adapter) storeSession(ctx context.Context, kind Kind, identifier string, session *webauthn.SessionData, options any) (BeginResult, error) {
	if session == nil {
		return BeginResult{}, apperrors.New(apperrors.CodeInternal, "ceremony session data is required")
	}
	sessionID, err := a.idGenerator()
	if err != nil {
		return BeginResult{}, apperrors.Wrap(apperrors.CodeInternal, "create ceremony session id", err)
	}
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return BeginResult{}, apperrors.Wrap(apperrors.CodeInternal, "encode ceremony session", err)
	}
	err = a.sessions.PutCeremonySession(ctx, storage.CeremonySession{
		ID:          sessionID,
		Kind:        string(kind),
		Identifier:  identifier,
		SessionJSON: string(sessionJSON),
		ExpiresAt:   a.clock().UTC().Add(a.config.SessionTTL),
	})
	if err != nil {
		return BeginResult{}, apperrors.Wrap(apperrors.CodeInternal, "store ceremony session", err)
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return BeginResult{}, apperrors.Wrap(apperrors.CodeInternal, "encode ceremony options", err)
	}
	return BeginResult{SessionID: sessionID, OptionsJSON: optionsJSON}, nil
}

func (a *Adapter) loadSession(ctx context.Context, sessionID string, expected Kind) (storage.CeremonySession, webauthn.SessionData, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.CeremonySession{}, webauthn.SessionData{}, apperrors.New(apperrors.CodeInvalidArgument, "ceremony session id is required")
	}
	stored, err := a.sessions.GetCeremonySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.CeremonySession{}, webauthn.SessionData{}, apperrors.New(apperrors.CodeCeremonyFailed, "ceremony session not found")
		}
		return storage.CeremonySession{}, webauthn.SessionData{}, apperrors.Wrap(apperrors.CodeInternal, "load ceremony session", err)
	}
	if stored.Kind != string(expected) {
		return storage.CeremonySession{}, webauthn.SessionData{}, apperrors.New(apperrors.CodeCeremonyKindMismatch, "ceremony session kind mismatch")
	}
	if stored.ExpiresAt.Before(a.clock().UTC()) {
		_ = a.sessions.DeleteCeremonySession(ctx, sessionID)
		return storage.CeremonySession{}, webauthn.SessionData{}, apperrors.New(apperrors.CodeCeremonyExpired, "ceremony session expired")
	}

	var data webauthn.SessionData
	if err := json.Unmarshal([]byte(stored.SessionJSON), &data); err != nil {
		return storage.CeremonySession{}, webauthn.SessionData{}, apperrors.Wrap(apperrors.CodeInternal, "decode ceremony session", err)
	}
	return stored, data, nil
}

func (a *Adapter) parseCreation(responseJSON []byte) (*protocol.ParsedCredentialCreationData, error) {
	if len(responseJSON) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "credential response json is required")
	}
	parsed, err := a.parser.ParseCredentialCreationResponseBytes(responseJSON)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCeremonyFailed, "parse credential response", err)
	}
	return parsed, nil
}

func (a *Adapter) parseAssertion(responseJSON []byte) (*protocol.ParsedCredentialAssertionData, error) {
	if len(responseJSON) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "credential response json is required")
	}
	parsed, err := a.parser.ParseCredentialRequestResponseBytes(responseJSON)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCeremonyFailed, "parse credential response", err)
	}
	return parsed, nil
}

func decodeStoredCredential(record storage.Credential) (webauthn.Credential, error) {
	var stored webauthn.Credential
	if err := json.Unmarshal([]byte(record.CredentialJSON), &stored); err != nil {
		return webauthn.Credential{}, apperrors.Wrap(apperrors.CodeInternal, fmt.Sprintf("decode credential %s", record.CredentialID), err)
	}
	return stored, nil
}

func encodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}
