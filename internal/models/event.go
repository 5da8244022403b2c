package models

import "time"

// Sources of a newly materialised user.
const (
	SourceRegistration = "registration"
	SourceOAuth        = "oauth"
)

// UserCreatedEvent is published whenever a canonical user record is created.
type UserCreatedEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Source    string    `json:"source"`
	Provider  Provider  `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserCreatedEvent builds the event for a freshly created user.
func NewUserCreatedEvent(u *User, source string, provider Provider) UserCreatedEvent {
	return UserCreatedEvent{
		UserID:    u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Source:    source,
		Provider:  provider,
		CreatedAt: u.CreatedAt,
	}
}
