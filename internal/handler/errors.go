package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// statusFor maps pipeline error kinds onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDocumentParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrRetrieval):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrModel):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("Request failed")
	}
	c.JSON(status, gin.H{"status": "error", "message": err.Error()})
}
