package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/services"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRule),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, services.ErrDateInPast),
		errors.Is(err, services.ErrEmptyFlowID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx *gin.Context, err error) {
	ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func sessionIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID format"})
		return uuid.Nil, false
	}
	return sessionID, true
}
