package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerMiddleware() {
	if s == nil || s.router == nil {
		return
	}
	s.router.Use(gin.Logger(), gin.Recovery())
	if policy := corsPolicyFromEnv(); policy != nil {
		s.router.Use(policy.middleware())
	}
}

// corsPolicy is the allowed-origin set parsed from FOLKTEXTS_CORS_ORIGINS
// (comma-separated origins, or "*"). A nil policy emits no CORS headers.
type corsPolicy struct {
	allowAll bool
	origins  map[string]struct{}
}

func corsPolicyFromEnv() *corsPolicy {
	raw := strings.TrimSpace(os.Getenv("FOLKTEXTS_CORS_ORIGINS"))
	if raw == "" {
		return nil
	}

	p := &corsPolicy{origins: make(map[string]struct{})}
	for _, part := range strings.Split(raw, ",") {
		origin := strings.TrimSpace(part)
		switch origin {
		case "":
		case "*":
			p.allowAll = true
		default:
			p.origins[origin] = struct{}{}
		}
	}
	if !p.allowAll && len(p.origins) == 0 {
		return nil
	}
	return p
}

func (p *corsPolicy) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimSpace(c.GetHeader("Origin"))
		if origin == "" {
			c.Next()
			return
		}

		allowed := p.allowAll
		if !allowed {
			_, allowed = p.origins[origin]
		}
		if allowed {
			if p.allowAll {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", "GET,OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func apiKeyAuthMiddleware(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	return func(c *gin.Context) {
		if key == "" || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if strings.TrimSpace(c.GetHeader("X-API-Key")) != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
