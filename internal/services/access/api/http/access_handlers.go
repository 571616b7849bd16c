package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/platewire/boardgate/internal/platform/errors"
	"github.com/platewire/boardgate/internal/services/access/ceremony"
	"github.com/platewire/boardgate/internal/services/access/token"
)

type pinVerifyRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Pin        string `json:"pin" binding:"required"`
}

type pinVerifyResponse struct {
	Verified bool   `json:"verified"`
	Token    string `json:"token,omitempty"`
}

// handlePinVerify serves callers that drive the flow themselves instead of
// going through a gate session.
func (s *Server) handlePinVerify(c *gin.Context) {
	var req pinVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid verify request", err))
		return
	}
	if err := s.verifier.Verify(c.Request.Context(), req.Identifier, req.Pin); err != nil {
		s.writeError(c, err)
		return
	}

	signed, err := token.Issue(req.Identifier, "pin", s.tokenCfg)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pinVerifyResponse{Verified: true, Token: signed})
}

type credentialModeResponse struct {
	Mode string `json:"mode"`
}

// handleCredentialMode reports whether the next biometric ceremony for the
// identifier is a registration or an assertion. An unknown identifier answers
// exactly like a known one with no enrollment, so the response never reveals
// whether an account exists.
func (s *Server) handleCredentialMode(c *gin.Context) {
	kind, err := s.ceremonies.Mode(c.Request.Context(), c.Param("identifier"))
	if apperrors.HasCode(err, apperrors.CodeCredentialsNotFound) {
		kind = ceremony.KindRegistration
		err = nil
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, credentialModeResponse{Mode: string(kind)})
}
