package model

import "time"

const (
	RoleTraveler = "traveler"
	RoleAdmin    = "admin"
)

// SupportedLanguages is the allow-list for a user's UI language.
var SupportedLanguages = []string{"en", "de", "fr", "es", "it"}

const DefaultLanguage = "en"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Language     string    `json:"language"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AuthUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Language string `json:"language"`
}

func (u User) Public() AuthUser {
	return AuthUser{ID: u.ID, Email: u.Email, Role: u.Role, Language: u.Language}
}

// Session is what a successful login produces. Token goes into the session
// cookie and is never rendered in a response body.
type Session struct {
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	User      AuthUser  `json:"user"`
}

type AuthClaims struct {
	UserID  string `json:"sub"`
	Role    string `json:"role"`
	TokenID string `json:"jti"`
}
