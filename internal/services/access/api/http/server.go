// Package http exposes the executive access flow over a JSON API.
//
// Gate sessions are server-side state machines keyed by opaque IDs; every
// route below /api/gate drives one session. The /api/access routes serve
// callers that run the flow themselves.
package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/platewire/boardgate/internal/platform/errors"
	"github.com/platewire/boardgate/internal/platform/metrics"
	"github.com/platewire/boardgate/internal/services/access/gate"
	"github.com/platewire/boardgate/internal/services/access/token"
)

// Server wires the access flow onto a gin engine.
type Server struct {
	log        *zap.Logger
	verifier   gate.Verifier
	ceremonies gate.CeremonyRunner
	tokenCfg   token.Config
	engine     *gin.Engine

	mu       sync.Mutex
	sessions map[string]*gateSession
}

// gateSessionTTL bounds how long an abandoned session stays in the registry
// before the sweeper evicts it.
const gateSessionTTL = 15 * time.Minute

// gateSession is one live gate plus the token minted on grant. The mutex
// serializes events so the gate itself stays single-threaded.
type gateSession struct {
	mu         sync.Mutex
	gate       *gate.Gate
	token      string
	tokenErr   error
	lastActive time.Time
}

// NewServer builds the API surface. Debug mode relaxes gin and allows the
// local portal dev server through CORS.
func NewServer(log *zap.Logger, verifier gate.Verifier, ceremonies gate.CeremonyRunner, tokenCfg token.Config, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
	)
	if debug {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: []string{"http://localhost:5173"},
				AllowMethods: []string{"GET", "POST", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Authorization", "Content-Type"},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	s := &Server{
		log:        log,
		verifier:   verifier,
		ceremonies: ceremonies,
		tokenCfg:   tokenCfg,
		engine:     engine,
		sessions:   make(map[string]*gateSession),
	}

	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := engine.Group("/api")
	gates := api.Group("/gate")
	gates.POST("/sessions", s.handleOpenSession)
	gates.GET("/sessions/:id", s.handleGetSession)
	gates.POST("/sessions/:id/events", s.handleSessionEvent)
	gates.POST("/sessions/:id/biometric/begin", s.handleBiometricBegin)
	gates.POST("/sessions/:id/biometric/finish", s.handleBiometricFinish)

	access := api.Group("/access")
	access.POST("/pin/verify", s.handlePinVerify)
	access.GET("/credentials/:identifier/mode", s.handleCredentialMode)

	return s
}

// Router returns the underlying engine for listeners and tests.
func (s *Server) Router() http.Handler {
	return s.engine
}

// SessionCount reports the number of live gate sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) removeSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// EvictIdleSessions drops granted sessions and sessions idle past the TTL,
// returning how many were removed. Granted sessions survive only until this
// runs; the grant response already carried the token, so nothing is lost.
func (s *Server) EvictIdleSessions(now time.Time) int {
	s.mu.Lock()
	snapshot := make(map[string]*gateSession, len(s.sessions))
	for sessionID, sess := range s.sessions {
		snapshot[sessionID] = sess
	}
	s.mu.Unlock()

	evicted := 0
	for sessionID, sess := range snapshot {
		sess.mu.Lock()
		stale := sess.gate.State() == gate.StateGranted || now.Sub(sess.lastActive) > gateSessionTTL
		sess.mu.Unlock()
		if stale {
			s.removeSession(sessionID)
			evicted++
		}
	}
	return evicted
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// errorBody is the single error envelope the API returns.
type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a domain error onto an HTTP response. Every 401 carries
// the same denial text regardless of cause, so a missing record and a wrong
// PIN are indistinguishable to the caller.
func (s *Server) writeError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	switch {
	case status == http.StatusUnauthorized:
		c.JSON(status, errorBody{Error: gate.DeniedMessage})
	case status == http.StatusInternalServerError:
		s.log.Error("request failed", zap.String("code", string(code)), zap.Error(err))
		c.JSON(status, errorBody{Error: "internal error"})
	default:
		c.JSON(status, errorBody{Error: err.Error()})
	}
}
