package oauth

import (
	"context"

	"promptshare/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// Facebook signs users in through the Graph API.
type Facebook struct {
	base

	UserInfoURL string
}

func NewFacebook(creds Credentials) *Facebook {
	return &Facebook{
		base:        newBase(models.ProviderFacebook, "Facebook", creds, facebook.Endpoint, "email", "public_profile"),
		UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)",
	}
}

type facebookUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (f *Facebook) FetchProfile(ctx context.Context, token *oauth2.Token) (*models.OAuthProfile, error) {
	var user facebookUser
	if err := f.getJSON(ctx, token, f.UserInfoURL, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, ErrIncompleteProfile
	}
	return &models.OAuthProfile{
		Provider:    models.ProviderFacebook,
		Subject:     user.ID,
		Email:       user.Email,
		DisplayName: user.Name,
		AvatarURL:   user.Picture.Data.URL,
	}, nil
}
