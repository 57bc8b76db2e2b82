package middleware

import (
	"net/http"
	"strings"

	"github.com/CyrilCartoux/watch-pros-sub002/pkg/jwtutil"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/CyrilCartoux/watch-pros-sub002/prometheus"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Context keys set by Auth
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
	ClaimsKey = "claims"
)

// Auth validates the bearer token from the Authorization header
func Auth(v *jwtutil.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)
			prometheus.AuthAttemptsCounter.Inc()

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := v.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			userID, _ := claims.UserID()

			c.Set(UserIDKey, userID)
			c.Set(EmailKey, claims.Email)
			c.Set(ClaimsKey, claims)

			l := log.With(zap.String("user_id", userID.String()))
			c.Set(logger.EchoKey, l)
			c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), l)))

			prometheus.AuthSuccessCounter.Inc()
			return next(c)
		}
	}
}

// RequireRole rejects callers whose token does not carry role. Must run after Auth.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(ClaimsKey).(*jwtutil.UserClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			if !claims.HasRole(role) {
				prometheus.RecordAuthError("forbidden")
				logger.FromContext(c).Warn("Caller lacks required role", zap.String("role", role))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated caller's id
func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(UserIDKey).(uuid.UUID)
	return id, ok
}

// UserEmail returns the authenticated caller's email, if the token carried one
func UserEmail(c echo.Context) string {
	email, _ := c.Get(EmailKey).(string)
	return email
}
