package handlers

import (
	"errors"

	"promptshare/internal/apperr"
	"promptshare/internal/metrics"
	"promptshare/internal/middleware"
	"promptshare/internal/services"
	"promptshare/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for credential authentication.
type AuthHandler struct {
	authService *services.AuthService
	metrics     *metrics.Metrics
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, m *metrics.Metrics, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		metrics:     m,
		log:         log,
	}
}

// RegisterRoutes registers the credential routes. authRequired guards /me.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
	router.Get("/me", authRequired, h.HandleMe)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	user, err := h.authService.Register(c.UserContext(), in)
	if err != nil {
		var verr *validation.ValidationError
		switch {
		case errors.As(err, &verr):
			h.metrics.Registrations.WithLabelValues(metrics.ResultInvalid).Inc()
			return validationFailed(c, verr)
		case errors.Is(err, apperr.ErrDuplicateEmail):
			h.metrics.Registrations.WithLabelValues(metrics.ResultConflict).Inc()
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Email is already in use",
			})
		}
		h.metrics.Registrations.WithLabelValues(metrics.ResultError).Inc()
		h.log.WithError(err).WithField("email", in.Email).Error("Error registering user")
		return internalError(c, err)
	}

	h.metrics.Registrations.WithLabelValues(metrics.ResultSuccess).Inc()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User is registered successfully",
		"success": true,
		"user":    user.Public(),
	})
}

// HandleLogin handles email/password login and issues a bearer token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	result, err := h.authService.Login(c.UserContext(), in)
	if err != nil {
		var verr *validation.ValidationError
		switch {
		case errors.As(err, &verr):
			h.metrics.Logins.WithLabelValues(metrics.ResultInvalid).Inc()
			return validationFailed(c, verr)
		case errors.Is(err, apperr.ErrInvalidCredentials):
			h.metrics.Logins.WithLabelValues(metrics.ResultFailure).Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid email or password",
			})
		}
		h.metrics.Logins.WithLabelValues(metrics.ResultError).Inc()
		h.log.WithError(err).WithField("email", in.Email).Error("Error during login")
		return internalError(c, err)
	}

	h.metrics.Logins.WithLabelValues(metrics.ResultSuccess).Inc()
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   result.Token,
		"user":    result.User,
	})
}

// HandleMe returns the user the bearer token was issued to.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}

	user, err := h.authService.CurrentUser(c.UserContext(), claims)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "User not found"})
		}
		h.log.WithError(err).WithField("user_id", claims.UserID).Error("Error loading current user")
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"user": user.Public()})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
	})
}

func validationFailed(c *fiber.Ctx, verr *validation.ValidationError) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  verr.Fields,
	})
}

func internalError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal Server Error",
		"error":   apperr.PublicMessage(err),
	})
}
