package api

import (
	"errors"
	"net/http"

	"ironworks/gym-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Error: message, Code: codeForStatus(code)})
}

// respondServiceError maps a service error to its HTTP status. Internal
// errors are logged and replaced with a generic message.
func respondServiceError(c *gin.Context, log *zap.Logger, err error) {
	// Bad credentials are an argument error to the service but 401 on the wire.
	if errors.Is(err, service.ErrAuthenticationFailed) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "unauthorized"})
		return
	}

	kind := service.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(status, ErrorResponse{Error: "internal server error", Code: string(service.KindInternal)})
		return
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: string(kind)})
}

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindInvalidArgument:
		return http.StatusBadRequest
	case service.KindInvalidState:
		return http.StatusUnprocessableEntity
	case service.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(service.KindInvalidArgument)
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return string(service.KindForbidden)
	case http.StatusNotFound:
		return string(service.KindNotFound)
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	return string(service.KindInternal)
}
