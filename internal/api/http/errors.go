package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/termhost/internal/domain/service"
	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
)

// StatusFor maps registry and tool errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case terminal.IsNotFound(err), errors.Is(err, service.ErrServiceNotFound):
		return http.StatusNotFound
	case terminal.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, terminal.ErrInvalidConfig),
		errors.Is(err, service.ErrInvalidToolID),
		errors.Is(err, service.ErrUnknownTool):
		return http.StatusBadRequest
	case errors.Is(err, terminal.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes {"error": ...} with the mapped status and records the
// error on the context for the request logger and tracer.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(StatusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
