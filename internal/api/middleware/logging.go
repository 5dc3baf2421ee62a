// Package middleware provides HTTP middleware components for the query API.
package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sharksmhi/ctdstations/internal/logger"
)

const requestIDKey = "request_id"

// RequestID assigns every request an ID, reusing an incoming X-Request-ID
// header, and stores it as the request's trace ID for logging.
func RequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(requestIDKey, id)
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), id)))
		},
	})
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

// NewRequestLogger creates a request logging middleware.
func NewRequestLogger(log logger.Logger) echo.MiddlewareFunc {
	return NewRequestLoggerWithSkipper(log, nil)
}

// NewRequestLoggerWithSkipper creates a request logging middleware with a custom skipper.
func NewRequestLoggerWithSkipper(log logger.Logger, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:     skipper,
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if log == nil {
				return nil
			}

			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}

			log.WithContext(c.Request().Context()).Info("request", fields...)
			return nil
		},
	})
}
