package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest creates a new usuario account. Self-registered accounts are
// always estudiante; promotion goes through user administration.
type RegisterRequest struct {
	Nombre    string `json:"nombre" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email,max=160"`
	Password  string `json:"password" validate:"required,min=6"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginRequest holds credentials for authenticating a principal.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	PasswordActual string `json:"password_actual" validate:"required"`
	PasswordNuevo  string `json:"password_nuevo" validate:"required,min=6"`
}

// AuthResponse returns the issued token and the principal it represents.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
	Usuario   Principal `json:"usuario"`
}

// TokenClaims represents the JWT payload.
type TokenClaims struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Rol   Role   `json:"rol"`
	jwt.RegisteredClaims
}
