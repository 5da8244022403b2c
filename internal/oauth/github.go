package oauth

import (
	"context"
	"strconv"

	"promptshare/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHub signs users in with their GitHub account.
type GitHub struct {
	base

	// UserInfoURL and EmailsURL default to the public API and can be
	// overridden for testing.
	UserInfoURL string
	EmailsURL   string
}

func NewGitHub(creds Credentials) *GitHub {
	return &GitHub{
		base:        newBase(models.ProviderGitHub, "GitHub", creds, github.Endpoint, "read:user", "user:email"),
		UserInfoURL: "https://api.github.com/user",
		EmailsURL:   "https://api.github.com/user/emails",
	}
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) FetchProfile(ctx context.Context, token *oauth2.Token) (*models.OAuthProfile, error) {
	var user githubUser
	if err := g.getJSON(ctx, token, g.UserInfoURL, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, ErrIncompleteProfile
	}

	email := user.Email
	if email == "" {
		// Users with a private email only expose it through the emails API.
		var emails []githubEmail
		if err := g.getJSON(ctx, token, g.EmailsURL, &emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}
	return &models.OAuthProfile{
		Provider:    models.ProviderGitHub,
		Subject:     strconv.FormatInt(user.ID, 10),
		Email:       email,
		DisplayName: name,
		AvatarURL:   user.AvatarURL,
	}, nil
}
