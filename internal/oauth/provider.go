package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"promptshare/internal/models"

	"golang.org/x/oauth2"
)

// ErrIncompleteProfile is returned when a provider answers without a subject id.
var ErrIncompleteProfile = errors.New("oauth: provider profile has no subject")

// Provider is one configured OAuth identity provider.
type Provider interface {
	ID() models.Provider
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*models.OAuthProfile, error)
}

// Credentials are the client registration of one provider.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether both halves of the client registration are set.
func (c Credentials) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// base carries the oauth2 config shared by every provider. Endpoint and the
// user info URLs are exported on the concrete types so tests can point them
// at an httptest server.
type base struct {
	id     models.Provider
	name   string
	config oauth2.Config
}

func newBase(id models.Provider, name string, creds Credentials, endpoint oauth2.Endpoint, scopes ...string) base {
	return base{
		id:   id,
		name: name,
		config: oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
	}
}

func (b *base) ID() models.Provider { return b.id }

func (b *base) Name() string { return b.name }

// SetEndpoint replaces the authorization and token endpoints.
func (b *base) SetEndpoint(endpoint oauth2.Endpoint) { b.config.Endpoint = endpoint }

func (b *base) AuthCodeURL(state string) string {
	return b.config.AuthCodeURL(state)
}

func (b *base) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := b.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s code exchange: %w", b.id, err)
	}
	return token, nil
}

// getJSON performs an authenticated GET and decodes the JSON answer into out.
func (b *base) getJSON(ctx context.Context, token *oauth2.Token, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.config.Client(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("failed getting user info from %s: %w", b.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s user info returned %d: %s", b.id, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s user info: %w", b.id, err)
	}
	return nil
}
