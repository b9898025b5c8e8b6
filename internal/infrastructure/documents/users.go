package documents

import (
	"context"
	"fmt"

	"horizon/internal/domain/user"
)

// UserRepository implements user.Repository on a document collection.
type UserRepository struct {
	store        Store
	databaseID   string
	collectionID string
}

func NewUserRepository(store Store, databaseID, collectionID string) *UserRepository {
	return &UserRepository{store: store, databaseID: databaseID, collectionID: collectionID}
}

func (r *UserRepository) Create(ctx context.Context, params user.CreateParams) (*user.User, error) {
	data := map[string]any{
		"userId":            params.UserID,
		"email":             params.Email,
		"firstName":         params.FirstName,
		"lastName":          params.LastName,
		"address1":          params.Address1,
		"city":              params.City,
		"state":             params.State,
		"postalCode":        params.PostalCode,
		"dateOfBirth":       params.DateOfBirth,
		"ssn":               params.SSN,
		"dwollaCustomerId":  params.DwollaCustomerID,
		"dwollaCustomerUrl": params.DwollaCustomerURL,
	}

	doc, err := r.store.CreateDocument(ctx, r.databaseID, r.collectionID, "", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create user document: %w", err)
	}
	return userFromDocument(doc), nil
}

func (r *UserRepository) GetByAccountID(ctx context.Context, accountID string) (*user.User, error) {
	docs, err := r.store.ListDocuments(ctx, r.databaseID, r.collectionID, Equal("userId", accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to list user documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, user.ErrUserNotFound
	}
	return userFromDocument(docs[0]), nil
}

func userFromDocument(doc *Document) *user.User {
	return &user.User{
		ID:                doc.ID,
		UserID:            stringField(doc.Data, "userId"),
		Email:             stringField(doc.Data, "email"),
		FirstName:         stringField(doc.Data, "firstName"),
		LastName:          stringField(doc.Data, "lastName"),
		Address1:          stringField(doc.Data, "address1"),
		City:              stringField(doc.Data, "city"),
		State:             stringField(doc.Data, "state"),
		PostalCode:        stringField(doc.Data, "postalCode"),
		DateOfBirth:       stringField(doc.Data, "dateOfBirth"),
		SSN:               stringField(doc.Data, "ssn"),
		DwollaCustomerID:  stringField(doc.Data, "dwollaCustomerId"),
		DwollaCustomerURL: stringField(doc.Data, "dwollaCustomerUrl"),
	}
}
