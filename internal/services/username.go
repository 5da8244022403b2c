package services

import (
	"strings"

	"promptshare/internal/validation"

	"github.com/google/uuid"
)

// DeriveUsername turns an OAuth display name into a username that satisfies
// the account rules. The first attempt drops the first space and lower-cases
// the rest; when that is not a valid username the name is slugified, and
// anything still too short is padded with hex derived from the email. The
// result depends only on its inputs.
func DeriveUsername(displayName, email string) string {
	base := strings.ToLower(strings.Replace(displayName, " ", "", 1))
	if validation.IsValidUsername(base) {
		return base
	}

	slug := slugify(displayName)
	if slug == "" {
		local, _, _ := strings.Cut(email, "@")
		slug = slugify(local)
	}
	if len(slug) > validation.UsernameMaxLen {
		slug = strings.TrimRight(slug[:validation.UsernameMaxLen], "._")
	}
	if len(slug) < validation.UsernameMinLen {
		pad := strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String(), "-", "")
		slug += pad[:validation.UsernameMinLen-len(slug)]
	}
	return slug
}

func slugify(s string) string {
	var b strings.Builder
	lastSep := true // suppresses leading separators
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSep = false
		case r == '.' || r == '_' || r == ' ' || r == '-' || r == '\t':
			if lastSep {
				continue
			}
			if r == '_' {
				b.WriteRune('_')
			} else {
				b.WriteRune('.')
			}
			lastSep = true
		}
	}
	return strings.TrimRight(b.String(), "._")
}
