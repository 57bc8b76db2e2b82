package middleware

import (
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request once the response status is known
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.Int64("bytes_out", c.Response().Size),
			}

			log := logger.FromContext(c)
			switch {
			case status >= 500:
				log.Error("Request failed", append(fields, zap.Error(err))...)
			case status >= 400:
				log.Warn("Request rejected", fields...)
			default:
				log.Info("Request handled", fields...)
			}
			return nil
		}
	}
}
