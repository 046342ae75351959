package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/signalsfoundry/wsn-simulator/internal/config"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/kb"
)

// ErrBadRequest is used for malformed request bodies and query strings.
var ErrBadRequest = errors.New("bad request")

// StatusFor maps simulator errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, kb.ErrRunNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrBadRequest),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrUnknownProtocol),
		errors.Is(err, config.ErrProtocolNotComparable):
		return http.StatusBadRequest

	case errors.Is(err, kb.ErrRunExists):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(c *gin.Context, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		requestLogger(c).Error(c.Request.Context(), "request failed",
			logging.Err(err), logging.Int("status", code))
	}
	c.AbortWithStatusJSON(code, errorResponse{
		Error:     err.Error(),
		RequestID: c.Writer.Header().Get(requestIDHeader),
	})
}
