// Package auth manages user accounts: registration, password login with
// signed bearer tokens, and password reset.
package auth

import (
	"context"
	"errors"
	"time"
)

// Roles assigned to accounts.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	// ErrEmailTaken is returned when registering an email that already has
	// an account.
	ErrEmailTaken = errors.New("an account already exists with this email")

	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned for a bearer token that is malformed,
	// expired or not signed by this service.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidResetToken is returned for an unknown or expired password
	// reset token.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// User is an account. Password and reset token are stored as hashes only.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	PasswordHash   string    `json:"-"`
	ResetTokenHash string    `json:"-"`
	ResetExpiresAt time.Time `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Session is the result of a successful registration or login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Store persists accounts.
type Store interface {
	// Create inserts a new account or returns ErrEmailTaken.
	Create(ctx context.Context, user *User) error

	// GetByID returns the account or domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail returns the account or domain.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByResetToken returns the account holding tokenHash or
	// domain.ErrNotFound.
	GetByResetToken(ctx context.Context, tokenHash string) (*User, error)

	// Update stores the password and reset fields of an existing account.
	Update(ctx context.Context, user *User) error
}
