package documents

import (
	"context"
	"errors"
	"fmt"

	"horizon/internal/domain/bank"
)

// Cipher seals secrets before they reach the store.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// BankRepository implements bank.Repository. Access tokens are encrypted at
// rest and decrypted on read.
type BankRepository struct {
	store        Store
	cipher       Cipher
	databaseID   string
	collectionID string
}

func NewBankRepository(store Store, cipher Cipher, databaseID, collectionID string) *BankRepository {
	return &BankRepository{store: store, cipher: cipher, databaseID: databaseID, collectionID: collectionID}
}

func (r *BankRepository) Create(ctx context.Context, params bank.CreateParams) (*bank.Account, error) {
	sealed, err := r.cipher.Encrypt(params.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	data := map[string]any{
		"userId":           params.UserID,
		"bankId":           params.BankID,
		"accountId":        params.AccountID,
		"accessToken":      sealed,
		"fundingSourceUrl": params.FundingSourceURL,
		"sharableId":       params.SharableID,
	}

	doc, err := r.store.CreateDocument(ctx, r.databaseID, r.collectionID, "", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create bank document: %w", err)
	}

	account := bankFromDocument(doc)
	account.AccessToken = params.AccessToken
	return account, nil
}

func (r *BankRepository) ListByUserID(ctx context.Context, userID string) ([]*bank.Account, error) {
	docs, err := r.store.ListDocuments(ctx, r.databaseID, r.collectionID, Equal("userId", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list bank documents: %w", err)
	}

	accounts := make([]*bank.Account, 0, len(docs))
	for _, doc := range docs {
		account := bankFromDocument(doc)
		account.AccessToken, err = r.cipher.Decrypt(account.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token for %s: %w", doc.ID, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (r *BankRepository) Delete(ctx context.Context, id string) error {
	err := r.store.DeleteDocument(ctx, r.databaseID, r.collectionID, id)
	if errors.Is(err, ErrDocumentNotFound) {
		return bank.ErrBankAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete bank document: %w", err)
	}
	return nil
}

func bankFromDocument(doc *Document) *bank.Account {
	return &bank.Account{
		ID:               doc.ID,
		UserID:           stringField(doc.Data, "userId"),
		BankID:           stringField(doc.Data, "bankId"),
		AccountID:        stringField(doc.Data, "accountId"),
		AccessToken:      stringField(doc.Data, "accessToken"),
		FundingSourceURL: stringField(doc.Data, "fundingSourceUrl"),
		SharableID:       stringField(doc.Data, "sharableId"),
	}
}
