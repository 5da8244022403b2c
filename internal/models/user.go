package models

import "time"

// User is the canonical identity record, one per email regardless of the
// sign-in path that created it.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null" bson:"email" validate:"required,email"`
	Username     string    `json:"username" gorm:"type:varchar(20);not null" bson:"username" validate:"required,username"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;type:varchar(255)" bson:"password_hash,omitempty"`
	Image        string    `json:"image,omitempty" gorm:"type:text" bson:"image,omitempty"`
	GitHubID     *string   `json:"-" gorm:"column:github_id;uniqueIndex;type:varchar(64)" bson:"github_id,omitempty"`
	GoogleID     *string   `json:"-" gorm:"column:google_id;uniqueIndex;type:varchar(64)" bson:"google_id,omitempty"`
	FacebookID   *string   `json:"-" gorm:"column:facebook_id;uniqueIndex;type:varchar(64)" bson:"facebook_id,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// HasProviderLink reports whether any external identity asserted this account.
func (u *User) HasProviderLink() bool {
	return u.GitHubID != nil || u.GoogleID != nil || u.FacebookID != nil
}

// SetProviderID records the subject of the provider that created the account.
func (u *User) SetProviderID(provider Provider, subject string) {
	if subject == "" {
		return
	}
	id := subject
	switch provider {
	case ProviderGitHub:
		u.GitHubID = &id
	case ProviderGoogle:
		u.GoogleID = &id
	case ProviderFacebook:
		u.FacebookID = &id
	}
}

// PublicUser is the only shape of a user that leaves the service.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Image    string `json:"image,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Image:    u.Image,
	}
}
