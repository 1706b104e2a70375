package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/internal/service"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
	"github.com/Phurinho/outcome-career-align/pkg/response"
)

type tokenIssuer interface {
	IssueToken(req service.IssueTokenRequest) (*service.IssuedToken, error)
}

// SessionView describes the caller and what the role policy lets them do.
type SessionView struct {
	UserID       string              `json:"userId"`
	Role         models.Role         `json:"role"`
	Career       string              `json:"career,omitempty"`
	Capabilities models.Capabilities `json:"capabilities"`
}

// AuthHandler exposes session endpoints.
type AuthHandler struct {
	service tokenIssuer
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service tokenIssuer) *AuthHandler {
	return &AuthHandler{service: service}
}

// IssueToken godoc
// @Summary Issue a development access token for a role
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body service.IssueTokenRequest true "Session"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/token [post]
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req service.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid token payload"))
		return
	}
	token, err := h.service.IssueToken(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, token)
}

// Me godoc
// @Summary Current session with role capabilities
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	capabilities, err := service.Capabilities(claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, SessionView{
		UserID:       claims.UserID,
		Role:         claims.Role,
		Career:       claims.Career,
		Capabilities: capabilities,
	})
}
