package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/lox/blackjack/internal/auth"
)

const identityKey = "identity"

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, "session", id)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", fields...)
			return
		}
		logger.Debug("Request", fields...)
	}
}

// authenticate checks the bearer token, or the token query parameter for
// websocket clients that cannot set headers.
func authenticate(v auth.Validator, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}

		id, err := v.Validate(c.Request.Context(), token)
		switch {
		case err == nil:
			if id != nil {
				c.Set(identityKey, id)
			}
			c.Next()
		case errors.Is(err, auth.ErrUnavailable):
			logger.Warn("Auth service unavailable", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		}
	}
}
