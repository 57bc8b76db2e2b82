package handler

import (
	"errors"
	"net/http"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// respondError translates a service error into its status and body
func respondError(c echo.Context, err error) error {
	status := apperr.StatusCode(err)
	resp := ErrorResponse{Error: http.StatusText(status)}

	var e *apperr.Error
	if errors.As(err, &e) {
		resp.Error = e.Message
		if e.Field != "" {
			resp.Details = echo.Map{"field": e.Field}
		}
	}

	log := logger.FromContext(c)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Info("Request rejected", zap.Int("status", status), zap.String("reason", resp.Error))
	}
	return c.JSON(status, resp)
}

// ErrorHandler renders errors that escape handlers, such as unknown routes, in the same shape
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, ErrorResponse{Error: msg})
		}
	} else {
		err = respondError(c, err)
	}
	if err != nil {
		logger.FromContext(c).Error("Failed to write error response", zap.Error(err))
	}
}
