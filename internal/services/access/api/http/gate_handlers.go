package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/platewire/boardgate/internal/platform/errors"
	"github.com/platewire/boardgate/internal/platform/id"
	"github.com/platewire/boardgate/internal/platform/metrics"
	"github.com/platewire/boardgate/internal/services/access/ceremony"
	"github.com/platewire/boardgate/internal/services/access/credential"
	"github.com/platewire/boardgate/internal/services/access/gate"
	"github.com/platewire/boardgate/internal/services/access/token"
)

// clientCapability carries the capability probe result the portal reports
// when it opens a session. The server has no authenticator of its own.
type clientCapability bool

func (c clientCapability) Probe(_ context.Context) bool {
	return bool(c)
}

type openSessionRequest struct {
	Identifier       string `json:"identifier" binding:"required"`
	BiometricCapable bool   `json:"biometric_capable"`
}

type sessionResponse struct {
	ID               string   `json:"id"`
	State            string   `json:"state"`
	Positions        []string `json:"positions"`
	Cursor           int      `json:"cursor"`
	BiometricOffered bool     `json:"biometric_offered"`
	Denied           bool     `json:"denied"`
	Message          string   `json:"message,omitempty"`
	Method           string   `json:"method,omitempty"`
	Token            string   `json:"token,omitempty"`
}

func (s *Server) sessionBody(sessionID string, sess *gateSession) sessionResponse {
	g := sess.gate
	resp := sessionResponse{
		ID:               sessionID,
		State:            string(g.State()),
		Positions:        g.Positions(),
		Cursor:           g.Cursor(),
		BiometricOffered: g.BiometricOffered(),
		Denied:           g.Denied(),
		Message:          g.Message(),
	}
	if g.State() == gate.StateGranted {
		resp.Method = g.Method()
		resp.Token = sess.token
	}
	return resp
}

func (s *Server) handleOpenSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid session request", err))
		return
	}
	identifier, err := credential.NormalizeIdentifier(req.Identifier)
	if err != nil {
		s.writeError(c, err)
		return
	}

	sess := &gateSession{lastActive: time.Now()}
	var g *gate.Gate
	g = gate.New(identifier, s.verifier, s.ceremonies, clientCapability(req.BiometricCapable), func() {
		// The gate sets its method before it fires this callback.
		sess.token, sess.tokenErr = token.Issue(identifier, g.Method(), s.tokenCfg)
	})
	sess.gate = g
	g.Open(c.Request.Context())

	sessionID, err := id.NewID()
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()
	metrics.GateSessionsOpened.Inc()

	c.JSON(http.StatusCreated, s.sessionBody(sessionID, sess))
}

func (s *Server) lookupSession(sessionID string) (*gateSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeGateSessionNotFound, "gate session not found")
	}
	return sess, nil
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.lookupSession(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	c.JSON(http.StatusOK, s.sessionBody(c.Param("id"), sess))
}

type sessionEventRequest struct {
	Type  string `json:"type" binding:"required"`
	Value string `json:"value"`
}

func (s *Server) handleSessionEvent(c *gin.Context) {
	sess, err := s.lookupSession(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	var req sessionEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid event request", err))
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastActive = time.Now()

	switch req.Type {
	case "digit":
		runes := []rune(req.Value)
		if len(runes) != 1 {
			s.writeError(c, apperrors.New(apperrors.CodeInvalidArgument, "digit event requires a single character value"))
			return
		}
		err = sess.gate.PressDigit(c.Request.Context(), runes[0])
	case "backspace":
		err = sess.gate.PressBackspace()
	case "clear":
		err = sess.gate.Clear()
	default:
		s.writeError(c, apperrors.New(apperrors.CodeInvalidArgument, "unknown event type"))
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.finishGrant(sess)
	body := s.sessionBody(c.Param("id"), sess)
	s.tearDownIfGranted(c.Param("id"), sess)
	c.JSON(http.StatusOK, body)
}

// finishGrant surfaces a token minting failure after the gate reached the
// granted state. The grant itself stands; only the token is missing.
func (s *Server) finishGrant(sess *gateSession) {
	if sess.tokenErr != nil {
		s.log.Error("issue session token", zap.Error(sess.tokenErr))
		sess.tokenErr = nil
	}
}

// tearDownIfGranted removes a granted session from the registry. A grant is
// terminal, so the response being built is the last one the session serves.
func (s *Server) tearDownIfGranted(sessionID string, sess *gateSession) {
	if sess.gate.State() == gate.StateGranted {
		s.removeSession(sessionID)
	}
}

type biometricBeginResponse struct {
	Kind      string          `json:"kind"`
	SessionID string          `json:"session_id"`
	Options   json.RawMessage `json:"options"`
}

func (s *Server) handleBiometricBegin(c *gin.Context) {
	sess, err := s.lookupSession(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastActive = time.Now()

	result, kind, err := sess.gate.BeginBiometric(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, biometricBeginResponse{
		Kind:      string(kind),
		SessionID: result.SessionID,
		Options:   json.RawMessage(result.OptionsJSON),
	})
}

type biometricFinishRequest struct {
	Kind      string          `json:"kind" binding:"required"`
	SessionID string          `json:"session_id" binding:"required"`
	Response  json.RawMessage `json:"response" binding:"required"`
}

func (s *Server) handleBiometricFinish(c *gin.Context) {
	sess, err := s.lookupSession(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	var req biometricFinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid finish request", err))
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastActive = time.Now()

	if err := sess.gate.FinishBiometric(c.Request.Context(), ceremony.Kind(req.Kind), req.SessionID, []byte(req.Response)); err != nil {
		s.writeError(c, err)
		return
	}
	s.finishGrant(sess)
	body := s.sessionBody(c.Param("id"), sess)
	s.tearDownIfGranted(c.Param("id"), sess)
	c.JSON(http.StatusOK, body)
}
