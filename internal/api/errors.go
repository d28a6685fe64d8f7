package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
)

// errorStatus maps an error to the HTTP status reported to clients
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrLockTimeout):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
