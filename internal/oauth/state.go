package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	StateCookie    = "oauth_state"
	CallbackCookie = "oauth_callback"
)

// NewState returns a random, URL-safe state value for one authorization round trip.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// StateMatches compares the state echoed by the provider with the cookie copy.
func StateMatches(cookie, echoed string) bool {
	if cookie == "" || echoed == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie), []byte(echoed)) == 1
}

// SafeCallbackURL accepts only same-site paths or URLs under baseURL, so the
// callback cookie cannot turn sign-in into an open redirect.
func SafeCallbackURL(raw, baseURL string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\") {
		return raw, true
	}
	base := strings.TrimRight(baseURL, "/")
	if base != "" && (raw == base || strings.HasPrefix(raw, base+"/")) {
		return raw, true
	}
	return "", false
}
