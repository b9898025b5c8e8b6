package bank

import "errors"

var ErrBankAccountNotFound = errors.New("bank account not found")

// Account is a linked bank account. AccessToken is plaintext in memory and
// encrypted by the repository at rest.
type Account struct {
	ID               string `json:"id"`
	UserID           string `json:"userId"`
	BankID           string `json:"bankId"`
	AccountID        string `json:"accountId"`
	AccessToken      string `json:"accessToken"`
	FundingSourceURL string `json:"fundingSourceUrl"`
	SharableID       string `json:"sharableId"`
}

type CreateParams struct {
	UserID           string
	BankID           string
	AccountID        string
	AccessToken      string
	FundingSourceURL string
	SharableID       string
}

// Summary is the client-safe view of a linked account.
type Summary struct {
	ID               string `json:"id"`
	BankID           string `json:"bankId"`
	AccountID        string `json:"accountId"`
	FundingSourceURL string `json:"fundingSourceUrl"`
	SharableID       string `json:"sharableId"`
}

func (a *Account) Summary() Summary {
	return Summary{
		ID:               a.ID,
		BankID:           a.BankID,
		AccountID:        a.AccountID,
		FundingSourceURL: a.FundingSourceURL,
		SharableID:       a.SharableID,
	}
}
