package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vozsegura-api/internal/service"
)

// Audit attaches the client IP and user agent to the request context so that
// services can stamp them on audit entries.
func Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithRequestMeta(c.Request.Context(), service.RequestMeta{
			IP:        c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
