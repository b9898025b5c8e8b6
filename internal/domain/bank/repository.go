package bank

import "context"

// Repository defines the interface for bank account document access
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Account, error)
	ListByUserID(ctx context.Context, userID string) ([]*Account, error)
	Delete(ctx context.Context, id string) error
}
