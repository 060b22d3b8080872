package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User represents an account stored in PostgreSQL
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"uniqueIndex;size:50"`
	Email          string    `json:"email" gorm:"uniqueIndex"` // Ensure email is unique across all users
	Bio            string    `json:"bio"`
	Password       string    `json:"-"` // Store hashed password, ignore for JSON serialization
	FollowersCount int       `json:"followers_count" gorm:"default:0"`
	FollowingCount int       `json:"following_count" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserCompact is the trimmed-down user shape embedded in feed and notification payloads
type UserCompact struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Bio      string `json:"bio,omitempty"`
}

// ToCompact converts a User into its compact representation
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:       u.ID,
		Username: u.Username,
		Bio:      u.Bio,
	}
}

// RegisterRequest defines the request body for account registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Bio      string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// LoginRequest defines the request body for signing in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest defines the request body for profile updates
type UpdateUserRequest struct {
	Username string `json:"username,omitempty" validate:"omitempty,min=2,max=50"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Bio      string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
