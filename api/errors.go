package api

import (
	"errors"
	"net/http"

	"bitwise74/fileshare-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFromErr maps the core's error taxonomy to HTTP status codes in
// one place so every endpoint answers with the same stable codes
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAccessDenied),
		errors.Is(err, service.ErrAccountLocked),
		errors.Is(err, service.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrUnknownRecipient):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithErr writes the error response. 5xx causes are logged with the
// request ID, 4xx messages go to the caller verbatim
func abortWithErr(c *gin.Context, err error) {
	requestID := c.MustGet("requestID").(string)
	status := statusFromErr(err)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "Internal server error"

		zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":     msg,
		"requestID": requestID,
	})
}
