package model

import (
	"time"

	"github.com/google/uuid"
)

// User is both the login identity and the holder of the current session
// token. Token and TokenValidUntil are either both nil (logged out) or both set.
type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email           string     `gorm:"uniqueIndex;not null"`
	PasswordHash    string     `gorm:"not null"`
	Token           *string    `gorm:"uniqueIndex"`
	TokenValidUntil *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (User) TableName() string { return "users" }

// HasToken reports whether the user currently holds a session token.
func (u User) HasToken() bool {
	return u.Token != nil && u.TokenValidUntil != nil
}

// TokenValue returns the token or "" when logged out.
func (u User) TokenValue() string {
	if u.Token == nil {
		return ""
	}
	return *u.Token
}

// Credentials are the login form fields. Missing fields are empty strings.
type Credentials struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}
