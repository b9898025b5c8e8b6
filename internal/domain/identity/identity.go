// Package identity describes the account and session provider that backs
// sign-up and sign-in.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrWeakPassword       = errors.New("password does not meet requirements")
)

type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is an authenticated session. Secret is only populated on creation.
type Session struct {
	ID        string
	AccountID string
	Secret    string
	ExpiresAt time.Time
}

type CreateAccountParams struct {
	Email    string
	Password string
	Name     string
}

type Provider interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (*Account, error)
	DeleteAccount(ctx context.Context, accountID string) error
	CreateEmailPasswordSession(ctx context.Context, email, password string) (*Session, error)
	// GetAccount resolves the account owning a live session secret.
	GetAccount(ctx context.Context, secret string) (*Account, error)
	DeleteSession(ctx context.Context, secret string) error
}
