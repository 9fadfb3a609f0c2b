package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig holds configuration for CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists exact origins. ["*"] allows any origin.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	// AllowWildcard enables patterns such as https://*.example.com.
	AllowWildcard bool
	MaxAge        time.Duration
}

// DefaultCORSConfig allows the public API methods from no origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         12 * time.Hour,
	}
}

// CORS returns gin-contrib/cors middleware for config. With no allowed
// origins the middleware is a no-op.
func CORS(config CORSConfig) gin.HandlerFunc {
	if len(config.AllowedOrigins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	cc := cors.Config{
		AllowMethods:  config.AllowedMethods,
		AllowHeaders:  config.AllowedHeaders,
		ExposeHeaders: config.ExposedHeaders,
		AllowWildcard: config.AllowWildcard,
		MaxAge:        config.MaxAge,
	}
	for _, o := range config.AllowedOrigins {
		if o == "*" {
			cc.AllowAllOrigins = true
			break
		}
	}
	if !cc.AllowAllOrigins {
		cc.AllowOrigins = config.AllowedOrigins
	}
	return cors.New(cc)
}
