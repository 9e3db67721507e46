package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vozsegura-api/internal/policy"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
	"github.com/noah-isme/vozsegura-api/pkg/response"
)

// RequireCapability admits principals whose role holds capability.
func RequireCapability(capability policy.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !policy.Allows(principal.Role, capability) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// IsAdmin admits administrators only.
func IsAdmin() gin.HandlerFunc {
	return RequireCapability(policy.ManageReports)
}
