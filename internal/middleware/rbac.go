package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/internal/service"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
	"github.com/Phurinho/outcome-career-align/pkg/response"
)

// RequireCapability lets the request through only when the caller's role
// grants capability according to the role policy.
func RequireCapability(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if err := service.Authorize(claims.Role, capability); err != nil {
			response.Error(c, err)
			return
		}
		c.Next()
	}
}
