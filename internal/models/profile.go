package models

// Provider names an external identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderGitHub   Provider = "github"
	ProviderFacebook Provider = "facebook"
)

// OAuthProfile is a provider profile normalised at the boundary. Each
// provider decodes its own response shape and fills this in.
type OAuthProfile struct {
	Provider    Provider `json:"provider"`
	Subject     string   `json:"subject"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	AvatarURL   string   `json:"avatarUrl"`
}
