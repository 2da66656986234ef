package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/streamsaviour-go/internal/domain"
)

const internalErrorMessage = "Internal server error"

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var streamErr *domain.StreamError
	switch {
	case errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrFormatNotFound),
		errors.Is(err, domain.ErrInvalidPatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrDownloadNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPayloadUnavailable):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &streamErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the user-facing text of err
func messageFor(err error) string {
	var streamErr *domain.StreamError
	if errors.As(err, &streamErr) {
		return streamErr.Message
	}
	switch statusFor(err) {
	case http.StatusInternalServerError:
		return internalErrorMessage
	case http.StatusGatewayTimeout:
		return "Request timed out."
	}
	return err.Error()
}

// respondError writes {"error": msg} with the mapped status
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": messageFor(err)})
}
