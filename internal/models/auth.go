package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest authenticates either a student (StudentID + Password) or the teacher.
type LoginRequest struct {
	Role      UserRole `json:"role" validate:"omitempty,oneof=TEACHER STUDENT"`
	StudentID string   `json:"student_id" validate:"required_unless=Role TEACHER"`
	Password  string   `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name,omitempty"`
	Class    string   `json:"class,omitempty"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}
