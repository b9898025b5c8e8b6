// Package aggregation is the port to the bank-data aggregation provider.
package aggregation

import (
	"context"
	"time"
)

type LinkTokenParams struct {
	ClientUserID string
	ClientName   string
	Products     []string
	Language     string
	CountryCodes []string
}

type LinkToken struct {
	Token      string    `json:"linkToken"`
	Expiration time.Time `json:"expiration"`
}

// Exchange is the result of swapping a public token.
type Exchange struct {
	AccessToken string
	ItemID      string
}

type Account struct {
	AccountID    string
	Name         string
	OfficialName string
	Mask         string
	Type         string
	Subtype      string
}

type Client interface {
	CreateLinkToken(ctx context.Context, params LinkTokenParams) (*LinkToken, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*Exchange, error)
	GetAccounts(ctx context.Context, accessToken string) ([]Account, error)
	CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error)
	RemoveItem(ctx context.Context, accessToken string) error
}
