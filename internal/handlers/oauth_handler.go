package handlers

import (
	"errors"
	"net/url"
	"time"

	"promptshare/internal/apperr"
	"promptshare/internal/metrics"
	"promptshare/internal/models"
	"promptshare/internal/oauth"
	"promptshare/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/sirupsen/logrus"
)

// Error codes appended to the auth error URL.
const (
	ErrorAccessDenied  = "AccessDenied"
	ErrorOAuthCallback = "OAuthCallback"
)

const (
	sessionEmailKey   = "email"
	sessionNameKey    = "name"
	sessionImageKey   = "image"
	sessionExpiresKey = "expires"

	stateCookieTTL = 10 * time.Minute
)

// OAuthConfig holds the URLs and cookie settings of the OAuth flow.
type OAuthConfig struct {
	BaseURL           string
	ErrorURL          string
	SessionExpiration time.Duration
	CookieSecure      bool
}

// OAuthHandler drives provider sign-in and serves the session object.
type OAuthHandler struct {
	providers *oauth.Registry
	resolver  *services.IdentityResolver
	projector *services.SessionProjector
	sessions  *session.Store
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	cfg       OAuthConfig
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(
	providers *oauth.Registry,
	resolver *services.IdentityResolver,
	projector *services.SessionProjector,
	sessions *session.Store,
	m *metrics.Metrics,
	log logrus.FieldLogger,
	cfg OAuthConfig,
) *OAuthHandler {
	return &OAuthHandler{
		providers: providers,
		resolver:  resolver,
		projector: projector,
		sessions:  sessions,
		metrics:   m,
		log:       log,
		cfg:       cfg,
	}
}

// RegisterRoutes registers the session framework routes under router.
func (h *OAuthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/providers", h.HandleProviders)
	router.Get("/signin/:provider", h.HandleSignIn)
	router.Get("/callback/:provider", h.HandleCallback)
	router.Get("/session", h.HandleSession)
	router.Post("/signout", h.HandleSignOut)
}

type providerInfo struct {
	ID          models.Provider `json:"id"`
	Name        string          `json:"name"`
	SignInURL   string          `json:"signinUrl"`
	CallbackURL string          `json:"callbackUrl"`
}

// HandleProviders lists the configured providers.
func (h *OAuthHandler) HandleProviders(c *fiber.Ctx) error {
	list := make([]providerInfo, 0)
	for _, p := range h.providers.List() {
		list = append(list, providerInfo{
			ID:          p.ID(),
			Name:        p.Name(),
			SignInURL:   h.cfg.BaseURL + "/api/auth/signin/" + string(p.ID()),
			CallbackURL: oauth.CallbackURL(h.cfg.BaseURL, p.ID()),
		})
	}
	return c.JSON(list)
}

// HandleSignIn starts the authorization code flow.
func (h *OAuthHandler) HandleSignIn(c *fiber.Ctx) error {
	p, ok := h.providers.Get(c.Params("provider"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Unknown provider"})
	}

	state, err := oauth.NewState()
	if err != nil {
		h.log.WithError(err).Error("Error generating oauth state")
		return internalError(c, err)
	}
	h.setShortCookie(c, oauth.StateCookie, state)

	if target, ok := oauth.SafeCallbackURL(c.Query("callbackUrl"), h.cfg.BaseURL); ok {
		h.setShortCookie(c, oauth.CallbackCookie, target)
	}

	return c.Redirect(p.AuthCodeURL(state), fiber.StatusFound)
}

// HandleCallback completes the flow and runs the sign-in hook.
func (h *OAuthHandler) HandleCallback(c *fiber.Ctx) error {
	p, ok := h.providers.Get(c.Params("provider"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Unknown provider"})
	}
	entry := h.log.WithField("provider", p.ID())

	stateCookie := c.Cookies(oauth.StateCookie)
	callbackCookie := c.Cookies(oauth.CallbackCookie)
	h.clearCookie(c, oauth.StateCookie)
	h.clearCookie(c, oauth.CallbackCookie)

	if !oauth.StateMatches(stateCookie, c.Query("state")) {
		entry.Warn("oauth state mismatch")
		return h.fail(c, p.ID(), ErrorOAuthCallback)
	}
	if reason := c.Query("error"); reason != "" {
		entry.WithField("reason", reason).Info("provider refused authorization")
		return h.fail(c, p.ID(), ErrorAccessDenied)
	}

	ctx := c.UserContext()
	token, err := p.Exchange(ctx, c.Query("code"))
	if err != nil {
		entry.WithError(err).Warn("oauth code exchange failed")
		return h.fail(c, p.ID(), ErrorOAuthCallback)
	}
	profile, err := p.FetchProfile(ctx, token)
	if err != nil {
		entry.WithError(err).Warn("oauth profile fetch failed")
		return h.fail(c, p.ID(), ErrorOAuthCallback)
	}

	if !h.resolver.SignIn(ctx, *profile) {
		return h.fail(c, p.ID(), ErrorAccessDenied)
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		entry.WithError(err).Error("Error loading session")
		return h.fail(c, p.ID(), ErrorOAuthCallback)
	}
	// A fresh id on every sign-in prevents session fixation.
	if err := sess.Regenerate(); err != nil {
		entry.WithError(err).Error("Error regenerating session")
		return h.fail(c, p.ID(), ErrorOAuthCallback)
	}
	sess.Set(sessionEmailKey, profile.Email)
	sess.Set(sessionNameKey, profile.DisplayName)
	sess.Set(sessionImageKey, profile.AvatarURL)
	sess.Set(sessionExpiresKey, time.Now().Add(h.cfg.SessionExpiration).Unix())
	if err := sess.Save(); err != nil {
		entry.WithError(err).Error("Error saving session")
		return h.fail(c, p.ID(), ErrorOAuthCallback)
	}

	h.metrics.OAuthSignIns.WithLabelValues(string(p.ID()), metrics.ResultSuccess).Inc()

	target := "/"
	if safe, ok := oauth.SafeCallbackURL(callbackCookie, h.cfg.BaseURL); ok {
		target = safe
	}
	return c.Redirect(target, fiber.StatusFound)
}

// HandleSession returns the projected session of the caller.
func (h *OAuthHandler) HandleSession(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		h.log.WithError(err).Error("Error loading session")
		return internalError(c, err)
	}

	email, _ := sess.Get(sessionEmailKey).(string)
	if email == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not authenticated"})
	}
	name, _ := sess.Get(sessionNameKey).(string)
	image, _ := sess.Get(sessionImageKey).(string)
	expires, _ := sess.Get(sessionExpiresKey).(int64)

	projected, err := h.projector.Project(c.UserContext(), &models.Session{
		User:    models.SessionUser{Email: email, Name: name, Image: image},
		Expires: time.Unix(expires, 0).UTC(),
	})
	if err != nil {
		if errors.Is(err, apperr.ErrSessionUserNotFound) {
			h.metrics.SessionProjections.WithLabelValues(metrics.ResultNotFound).Inc()
			h.log.WithField("email", email).Warn("session refers to a missing user")
			if destroyErr := sess.Destroy(); destroyErr != nil {
				h.log.WithError(destroyErr).Error("Error destroying session")
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Session user not found"})
		}
		h.metrics.SessionProjections.WithLabelValues(metrics.ResultError).Inc()
		h.log.WithError(err).WithField("email", email).Error("Error projecting session")
		return internalError(c, err)
	}

	h.metrics.SessionProjections.WithLabelValues(metrics.ResultSuccess).Inc()
	return c.JSON(projected)
}

// HandleSignOut destroys the caller's session.
func (h *OAuthHandler) HandleSignOut(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		h.log.WithError(err).Error("Error loading session")
		return internalError(c, err)
	}
	if err := sess.Destroy(); err != nil {
		h.log.WithError(err).Error("Error destroying session")
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Signed out"})
}

func (h *OAuthHandler) fail(c *fiber.Ctx, provider models.Provider, code string) error {
	result := metrics.ResultFailure
	if code == ErrorAccessDenied {
		result = metrics.ResultDenied
	}
	h.metrics.OAuthSignIns.WithLabelValues(string(provider), result).Inc()
	return c.Redirect(errorRedirect(h.cfg.ErrorURL, code), fiber.StatusFound)
}

func errorRedirect(errorURL, code string) string {
	u, err := url.Parse(errorURL)
	if err != nil {
		return "/?error=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("error", code)
	u.RawQuery = q.Encode()
	return u.String()
}

func (h *OAuthHandler) setShortCookie(c *fiber.Ctx, name, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(stateCookieTTL),
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *OAuthHandler) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
