package auth

import (
	"time"

	"github.com/clubroster/roster/internal/rbac"
)

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         rbac.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RefreshToken is a server-side record of an issued refresh token. A refresh
// token is honored only while its record exists and has not expired.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	UserID    string
	Role      rbac.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims is the verified content of a refresh token.
type RefreshClaims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// Session is the result of a successful login.
type Session struct {
	User             *User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
