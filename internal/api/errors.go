package api

import (
	"github.com/labstack/echo/v4"

	"github.com/sharksmhi/ctdstations/internal/api/middleware"
	"github.com/sharksmhi/ctdstations/internal/logger"
)

// ErrorResponse represents a standard error response for the API
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// HandleError logs the failure and writes an ErrorResponse. The correlation
// ID is the request ID, so clients can quote it.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code, middleware.GetRequestID(ctx))

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Path()),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= 500 {
		c.log.Error("API Error", fields...)
	} else {
		c.log.Debug("API request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}
