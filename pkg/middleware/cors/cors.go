package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	allowedMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
	allowedHeaders = "Authorization, Content-Type, X-Request-ID"
	exposedHeaders = "Content-Disposition, X-Request-ID"
)

// Policy decides which browser origins may call the API. With no origins
// configured every origin is accepted but credentials are never allowed.
type Policy struct {
	origins map[string]struct{}
	maxAge  string
}

// NewPolicy normalises the configured origins.
func NewPolicy(origins []string, maxAge time.Duration) *Policy {
	p := &Policy{origins: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		if origin = normalize(origin); origin != "" {
			p.origins[origin] = struct{}{}
		}
	}
	if maxAge > 0 {
		p.maxAge = strconv.Itoa(int(maxAge.Seconds()))
	}
	return p
}

func (p *Policy) open() bool { return len(p.origins) == 0 }

// Allows reports whether a request from origin may read the response.
func (p *Policy) Allows(origin string) bool {
	if p.open() {
		return true
	}
	_, ok := p.origins[normalize(origin)]
	return ok
}

// Middleware answers preflight requests and decorates actual ones. A
// preflight from a rejected origin gets 403 so the browser stops there.
func (p *Policy) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		origin := c.GetHeader("Origin")
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if origin == "" {
			c.Next()
			return
		}
		if !p.Allows(origin) {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		if p.open() {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Expose-Headers", exposedHeaders)

		if preflight {
			h.Set("Access-Control-Allow-Methods", allowedMethods)
			h.Set("Access-Control-Allow-Headers", allowedHeaders)
			if p.maxAge != "" {
				h.Set("Access-Control-Max-Age", p.maxAge)
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// New is shorthand for NewPolicy(origins, maxAge).Middleware().
func New(origins []string, maxAge time.Duration) gin.HandlerFunc {
	return NewPolicy(origins, maxAge).Middleware()
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
