package model

import "time"

// User represents a registered user and their credential state.
//
// The token fields hold SHA-256 digests of single-use secrets, never the
// secrets themselves. PasswordHash is excluded from JSON output; the other
// credential field names mirror the public contract.
type User struct {
	ID                       int        `json:"id"`
	Name                     string     `json:"name"`
	Email                    string     `json:"email"`
	Role                     string     `json:"role"`
	PasswordHash             string     `json:"-"`
	PasswordChangedAt        *time.Time `json:"passwordChangedAt,omitempty"`
	LoginAttempts            int        `json:"loginAttempts"`
	LockUntil                *time.Time `json:"lockUntil,omitempty"`
	ResetTokenDigest         string     `json:"passwordResetToken,omitempty"`
	ResetTokenExpiry         *time.Time `json:"passwordResetExpires,omitempty"`
	VerificationTokenDigest  string     `json:"verificationToken,omitempty"`
	VerificationTokenExpiry  *time.Time `json:"verificationTokenExpires,omitempty"`
	IsVerified               bool       `json:"is_verified"`
	LastLogin                *time.Time `json:"last_login,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// RegisterRequest is the payload for user registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=1,max=128"`
}

// LoginResponse is returned after successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ForgotPasswordRequest is the payload for requesting a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// ResetPasswordRequest is the payload for consuming a reset token.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}
