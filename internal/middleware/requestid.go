package middleware

import (
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDKey is both the header and the echo.Context key
const RequestIDKey = "X-Request-ID"

// RequestID adds a unique request ID to each request and a logger carrying it
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDKey)
			if requestID == "" {
				requestID = uuid.New().String()
				c.Request().Header.Set(RequestIDKey, requestID)
			}
			c.Set(RequestIDKey, requestID)
			c.Response().Header().Set(RequestIDKey, requestID)

			ctxLogger := logger.GetLogger().With(zap.String("request_id", requestID))
			c.Set(logger.EchoKey, ctxLogger)
			c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), ctxLogger)))

			return next(c)
		}
	}
}
