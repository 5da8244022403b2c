package oauth

import (
	"strings"

	"promptshare/internal/models"
)

// CallbackPath is the route, relative to the base URL, a provider redirects back to.
const CallbackPath = "/api/auth/callback/"

// Registry holds the enabled providers in a stable order.
type Registry struct {
	providers map[models.Provider]Provider
	order     []models.Provider
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[models.Provider]Provider)}
}

// Register adds p, replacing any provider with the same id.
func (r *Registry) Register(p Provider) {
	if _, ok := r.providers[p.ID()]; !ok {
		r.order = append(r.order, p.ID())
	}
	r.providers[p.ID()] = p
}

// Get looks a provider up by its id.
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.providers[models.Provider(id)]
	return p, ok
}

// List returns the providers in registration order.
func (r *Registry) List() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// RegistryConfig lists the credentials of each supported provider.
type RegistryConfig struct {
	BaseURL  string
	Google   Credentials
	GitHub   Credentials
	Facebook Credentials
}

// CallbackURL builds the absolute redirect URL for a provider.
func CallbackURL(baseURL string, id models.Provider) string {
	return strings.TrimRight(baseURL, "/") + CallbackPath + string(id)
}

// NewRegistryFromConfig registers every provider whose credentials are complete.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	if cfg.Google.Enabled() {
		cfg.Google.RedirectURL = CallbackURL(cfg.BaseURL, models.ProviderGoogle)
		r.Register(NewGoogle(cfg.Google))
	}
	if cfg.GitHub.Enabled() {
		cfg.GitHub.RedirectURL = CallbackURL(cfg.BaseURL, models.ProviderGitHub)
		r.Register(NewGitHub(cfg.GitHub))
	}
	if cfg.Facebook.Enabled() {
		cfg.Facebook.RedirectURL = CallbackURL(cfg.BaseURL, models.ProviderFacebook)
		r.Register(NewFacebook(cfg.Facebook))
	}
	return r
}
