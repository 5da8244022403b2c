package middleware

import (
	"errors"
	"strings"

	"promptshare/internal/apperr"
	"promptshare/internal/metrics"
	"promptshare/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID = "user_id"
	LocalEmail  = "email"
	LocalClaims = "claims"
)

// AuthRequired is a Fiber middleware to check for a valid bearer token.
func AuthRequired(authService *services.AuthService, m *metrics.Metrics, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			result := metrics.ResultInvalid
			message := "Invalid token"
			if errors.Is(err, apperr.ErrTokenExpired) {
				result = metrics.ResultExpired
				message = "Token expired"
			}
			m.TokenVerifications.WithLabelValues(result).Inc()
			log.WithError(err).Debug("bearer token rejected")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": message,
			})
		}
		m.TokenVerifications.WithLabelValues(metrics.ResultSuccess).Inc()

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalClaims, claims)

		return c.Next()
	}
}

// Claims returns the verified claims stored by AuthRequired, or nil.
func Claims(c *fiber.Ctx) *services.TokenClaims {
	claims, _ := c.Locals(LocalClaims).(*services.TokenClaims)
	return claims
}
