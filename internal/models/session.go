package models

import "time"

// SessionUser is the principal carried by a session. Before projection only
// Email is set.
type SessionUser struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// Session is the object handed to the rest of the application.
type Session struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires,omitempty"`
}
