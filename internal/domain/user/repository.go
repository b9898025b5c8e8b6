package user

import "context"

// Repository defines the interface for user document access
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*User, error)
	// GetByAccountID returns the profile owned by an identity account.
	GetByAccountID(ctx context.Context, accountID string) (*User, error)
}
