package oauth

import (
	"context"

	"promptshare/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Google signs users in with their Google account.
type Google struct {
	base

	// UserInfoURL defaults to the OpenID userinfo endpoint.
	UserInfoURL string
}

func NewGoogle(creds Credentials) *Google {
	return &Google{
		base:        newBase(models.ProviderGoogle, "Google", creds, google.Endpoint, "openid", "email", "profile"),
		UserInfoURL: googleUserInfoURL,
	}
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (g *Google) FetchProfile(ctx context.Context, token *oauth2.Token) (*models.OAuthProfile, error) {
	var info googleUserInfo
	if err := g.getJSON(ctx, token, g.UserInfoURL, &info); err != nil {
		return nil, err
	}
	if info.Sub == "" {
		return nil, ErrIncompleteProfile
	}
	return &models.OAuthProfile{
		Provider:    models.ProviderGoogle,
		Subject:     info.Sub,
		Email:       info.Email,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
	}, nil
}
