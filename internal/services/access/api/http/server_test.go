package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/platewire/boardgate/internal/services/access/ceremony"
	"github.com/platewire/boardgate/internal/services/access/gate"
	"github.com/platewire/boardgate/internal/services/access/pin"
	"github.com/platewire/boardgate/internal/services/access/token"
)

type fakeVerifier struct {
	accepted map[string]string
	calls    int
}

func (v *fakeVerifier) Verify(_ context.Context, identifier, submitted string) error {
	v.calls++
	want, ok := v.accepted[identifier]
	if !ok {
		return pin.ErrCredentialsNotFound
	}
	if want != submitted {
		return pin.ErrPinMismatch
	}
	return nil
}

type fakeCeremonies struct {
	mode      ceremony.Kind
	modeErr   error
	finishErr error
}

func (f *fakeCeremonies) Mode(_ context.Context, _ string) (ceremony.Kind, error) {
	if f.modeErr != nil {
		return "", f.modeErr
	}
	return f.mode, nil
}

func (f *fakeCeremonies) BeginRegistration(_ context.Context, _ string) (ceremony.BeginResult, error) {
	return ceremony.BeginResult{SessionID: "ceremony-1", OptionsJSON: []byte(`{"publicKey":{}}`)}, nil
}

func (f *fakeCeremonies) FinishRegistration(_ context.Context, _ string, _ []byte) (ceremony.FinishResult, error) {
	if f.finishErr != nil {
		return ceremony.FinishResult{}, f.finishErr
	}
	return ceremony.FinishResult{Identifier: "ceo@example.com", CredentialID: "cred-1"}, nil
}

func (f *fakeCeremonies) BeginAssertion(_ context.Context, _ string) (ceremony.BeginResult, error) {
	return ceremony.BeginResult{SessionID: "ceremony-2", OptionsJSON: []byte(`{"publicKey":{}}`)}, nil
}

func (f *fakeCeremonies) FinishAssertion(_ context.Context, _ string, _ []byte) (ceremony.FinishResult, error) {
	if f.finishErr != nil {
		return ceremony.FinishResult{}, f.finishErr
	}
	return ceremony.FinishResult{Identifier: "ceo@example.com", CredentialID: "cred-1"}, nil
}

func testTokenConfig() token.Config {
	return token.Config{
		Issuer:   "boardgate",
		Audience: "boardgate-portal",
		Key:      []byte("test-signing-key"),
		TTL:      time.Hour,
	}
}

func newTestServer(t *testing.T, verifier gate.Verifier, ceremonies gate.CeremonyRunner) *Server {
	t.Helper()
	return NewServer(zap.NewNop(), verifier, ceremonies, testTokenConfig(), false)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func openSession(t *testing.T, s *Server, capable bool) sessionResponse {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/gate/sessions", map[string]any{
		"identifier":        "ceo@example.com",
		"biometric_capable": capable,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeSession(t, rec)
}

func pressDigits(t *testing.T, s *Server, sessionID, pin string) sessionResponse {
	t.Helper()
	var last sessionResponse
	for _, r := range pin {
		rec := doJSON(t, s, http.MethodPost, "/api/gate/sessions/"+sessionID+"/events", map[string]any{
			"type":  "digit",
			"value": string(r),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		last = decodeSession(t, rec)
	}
	return last
}

func TestOpenSession(t *testing.T) {
	s := newTestServer(t, &fakeVerifier{}, &fakeCeremonies{mode: ceremony.KindAssertion})

	resp := openSession(t, s, true)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, string(gate.StateEntering), resp.State)
	assert.True(t, resp.BiometricOffered)
	assert.Equal(t, 0, resp.Cursor)
	assert.Len(t, resp.Positions, 6)
}

func TestOpenSessionWithoutCapability(t *testing.T) {
	s := newTestServer(t, &fakeVerifier{}, &fakeCeremonies{mode: ceremony.KindAssertion})

	resp := openSession(t, s, false)
	assert.False(t, resp.BiometricOffered)
}

func TestOpenSessionRejectsInvalidIdentifier(t *testing.T) {
	s := newTestServer(t, &fakeVerifier{}, &fakeCeremonies{})

	rec := doJSON(t, s, http.MethodPost, "/api/gate/sessions", map[string]any{
		"identifier": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPinGrantIssuesToken(t *testing.T) {
	verifier := &fakeVerifier{accepted: map[string]string{"ceo@example.com": "123456"}}
	s := newTestServer(t, verifier, &fakeCeremonies{})

	sess := openSession(t, s, false)
	resp := pressDigits(t, s, sess.ID, "123456")

	assert.Equal(t, string(gate.StateGranted), resp.State)
	assert.Equal(t, "pin", resp.Method)
	require.NotEmpty(t, resp.Token)

	claims, err := token.Validate(resp.Token, testTokenConfig())
	require.NoError(t, err)
	assert.Equal(t, "ceo@example.com", claims.Identifier)
	assert.Equal(t, "pin", claims.Method)
}

func TestWrongPinDeniesWithoutRevealingCause(t *testing.T) {
	verifier := &fakeVerifier{accepted: map[string]string{"ceo@example.com": "123456"}}
	s := newTestServer(t, verifier, &fakeCeremonies{})

	sess := openSession(t, s, false)
	resp := pressDigits(t, s, sess.ID, "000000")

	assert.Equal(t, string(gate.StateEntering), resp.State)
	assert.True(t, resp.Denied)
	assert.Equal(t, gate.DeniedMessage, resp.Message)
	assert.Empty(t, resp.Token)
	assert.Equal(t, 0, resp.Cursor)
}

func TestGrantedSessionIsTornDown(t *testing.T) {
	verifier := &fakeVerifier{accepted: map[string]string{"ceo@example.com": "123456"}}
	s := newTestServer(t, verifier, &fakeCeremonies{})

	sess := openSession(t, s, false)
	resp := pressDigits(t, s, sess.ID, "123456")
	require.Equal(t, string(gate.StateGranted), resp.State)
	require.NotEmpty(t, resp.Token, "the grant response carries the token before teardown")

	// The grant is terminal; the session no longer exists afterwards.
	assert.Equal(t, 0, s.SessionCount())
	rec := doJSON(t, s, http.MethodPost, "/api/gate/sessions/"+sess.ID+"/events", map[string]any{
		"type": "digit", "value": "1",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGrantedSessionsDoNotAccumulate(t *testing.T) {
	verifier := &fakeVerifier{accepted: map[string]string{"ceo@example.com": "123456"}}
	s := newTestServer(t, verifier, &fakeCeremonies{})

	for i := 0; i < 20; i++ {
		sess := openSession(t, s, false)
		resp := pressDigits(t, s, sess.ID, "123456")
		require.Equal(t, string(gate.StateGranted), resp.State)
	}
	assert.Equal(t, 0, s.SessionCount())
}

func TestAbandonedSessionsAreEvicted(t *testing.T) {
	s := newTestServer(t, &fakeVerifier{}, &fakeCeremonies{})

	for i := 0; i < 20; i++ {
		openSession(t, s, false)
	}
	require.Equal(t, 20, s.SessionCount())

	// Nothing is evicted while the sessions are within their TTL.
	assert.Equal(t, 0, s.EvictIdleSessions(time.Now()))
	assert.Equal(t, 20, s.SessionCount())

	evicted := s.EvictIdleSessions(time.Now().Add(gateSessionTTL + time.Minute))
	assert.Equal(t, 20, evicted)
	assert.Equal(t, 0, s.SessionCount())
}

func TestActiveSessionSurvivesSweep(t *testing.T) {
	verifier := &fakeVerifier{accepted: map[string]string{"ceo@example.com": "123456"}}
	s := newTestServer(t, verifier, &fakeCeremonies{})

	sess := openSession(t, s, false)
	pressDigits(t, s, sess.ID, "123")

	assert.Equal(t, 0, s.EvictIdleSessions(time.Now()))
	assert.Equal(t, 1, s.SessionCount())
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer(t, &fakeVerifier{}, &fakeCeremonies{})

	rec := doJSON(t, s, http.MethodPost, "/api/gate/sessions/missing/events", map[string]any{
		"type": "digit", "value": "1",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBiometricRoundTrip(t *testing.T) {
	s := newTestServer(t, &fakeVerifier{}, &fakeCeremonies{mode: ceremony.KindAssertion})

	sess := openSession(t, s, true)

	rec := doJSON(t, s, http.MethodPost, "/api/gate/sessions/"+sess.ID+"/biometric/begin", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var begin biometricBeginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &begin))
	assert.Equal(t, string(ceremony.KindAssertion), begin.Kind)
	assert.Equal(t, "ceremony-2", begin.SessionID)

	rec = doJSON(t, s, http.MethodPost, "/api/gate/sessions/"+sess.ID+"/biometric/finish", map[string]any{
		"kind":       begin.Kind,
		"session_id": begin.SessionID,
		"response":   map[string]any{},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeSession(t, rec)
	assert.Equal(t, string(gate.StateGranted), resp.State)
	assert.Equal(t, "biometric", resp.Method)
	assert.NotEmpty(t, resp.Token)
}

func TestBiometricBeginWithoutCapability(t *testing.T) {
	s := newTestServer(t, &fakeVerifier{}, &fakeCeremonies{mode: ceremony.KindAssertion})

	sess := openSession(t, s, false)
	rec := doJSON(t, s, http.MethodPost, "/api/gate/sessions/"+sess.ID+"/biometric/begin", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestDirectPinVerify(t *testing.T) {
	verifier := &fakeVerifier{accepted: map[string]string{"ceo@example.com": "123456"}}
	s := newTestServer(t, verifier, &fakeCeremonies{})

	rec := doJSON(t, s, http.MethodPost, "/api/access/pin/verify", map[string]any{
		"identifier": "ceo@example.com",
		"pin":        "123456",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp pinVerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Verified)
	assert.NotEmpty(t, resp.Token)
}

func TestDenialBodiesAreUniform(t *testing.T) {
	// Wrong PIN for a known identifier and any PIN for an unknown one must
	// produce byte-identical responses.
	verifier := &fakeVerifier{accepted: map[string]string{"ceo@example.com": "123456"}}
	s := newTestServer(t, verifier, &fakeCeremonies{})

	known := doJSON(t, s, http.MethodPost, "/api/access/pin/verify", map[string]any{
		"identifier": "ceo@example.com",
		"pin":        "000000",
	})
	unknown := doJSON(t, s, http.MethodPost, "/api/access/pin/verify", map[string]any{
		"identifier": "nobody@example.com",
		"pin":        "000000",
	})

	assert.Equal(t, http.StatusUnauthorized, known.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
}

func TestCredentialMode(t *testing.T) {
	s := newTestServer(t, &fakeVerifier{}, &fakeCeremonies{mode: ceremony.KindRegistration})

	rec := doJSON(t, s, http.MethodGet, "/api/access/credentials/ceo@example.com/mode", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp credentialModeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(ceremony.KindRegistration), resp.Mode)
}

func TestCredentialModeHidesAccountExistence(t *testing.T) {
	// An identifier with no record must answer exactly like one that exists
	// but has never enrolled.
	s := newTestServer(t, &fakeVerifier{}, &fakeCeremonies{
		mode:    ceremony.KindRegistration,
		modeErr: ceremony.ErrCredentialsNotFound,
	})

	unknown := doJSON(t, s, http.MethodGet, "/api/access/credentials/nobody@example.com/mode", nil)
	require.Equal(t, http.StatusOK, unknown.Code)

	known := doJSON(t, newTestServer(t, &fakeVerifier{}, &fakeCeremonies{mode: ceremony.KindRegistration}),
		http.MethodGet, "/api/access/credentials/ceo@example.com/mode", nil)
	require.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &fakeVerifier{}, &fakeCeremonies{})

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
