// Package documents stores user and bank account records as schemaless
// documents grouped into collections inside a database.
package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrDocumentNotFound = errors.New("document not found")

type Document struct {
	ID        string
	Data      map[string]any
	CreatedAt time.Time
}

// Query is an equality filter on a top-level document field.
type Query struct {
	Field string
	Value string
}

func Equal(field, value string) Query {
	return Query{Field: field, Value: value}
}

// Store is implemented by the Postgres and Firestore backends. An empty
// documentID on create asks the store to generate one.
type Store interface {
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*Document, error)
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...Query) ([]*Document, error)
	DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error
}

// UniqueID generates a document id.
func UniqueID() string {
	return uuid.NewString()
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
