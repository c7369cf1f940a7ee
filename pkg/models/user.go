package models

import "time"

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // bcrypt hash, never sent to clients
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest represents the registration request body. Both fields
// must be present; empty values are accepted.
type RegisterRequest struct {
	Username *string `json:"username" binding:"required"`
	Password *string `json:"password" binding:"required"`
}

// LoginForm represents the form-encoded token request
type LoginForm struct {
	Username *string `form:"username" binding:"required"`
	Password *string `form:"password" binding:"required"`
}

// TokenResponse represents a successful login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse is a plain acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}
