// Package firebase backs the document store with Cloud Firestore.
package firebase

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"horizon/internal/infrastructure/documents"
)

// rootCollection holds one document per logical database; each database's
// collections hang off it as subcollections.
const rootCollection = "databases"

// Store implements documents.Store on Firestore.
type Store struct {
	client *firestore.Client
}

var _ documents.Store = (*Store)(nil)

// NewStore initializes a Firebase app and opens its Firestore client.
// credentialsFile may be empty to use application default credentials.
func NewStore(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) collection(databaseID, collectionID string) *firestore.CollectionRef {
	return s.client.Collection(rootCollection).Doc(databaseID).Collection(collectionID)
}

func (s *Store) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*documents.Document, error) {
	if documentID == "" {
		documentID = documents.UniqueID()
	}

	ref := s.collection(databaseID, collectionID).Doc(documentID)
	wr, err := ref.Create(ctx, data)
	if err != nil {
		return nil, mapError(err, "create document %s/%s/%s", databaseID, collectionID, documentID)
	}

	return &documents.Document{ID: documentID, Data: data, CreatedAt: wr.UpdateTime}, nil
}

// ListDocuments returns matching documents oldest first. Ordering is applied
// client side so equality filters never need a composite index.
func (s *Store) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...documents.Query) ([]*documents.Document, error) {
	q := s.collection(databaseID, collectionID).Query
	for _, f := range queries {
		q = q.Where(f.Field, "==", f.Value)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*documents.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapError(err, "list documents %s/%s", databaseID, collectionID)
		}
		out = append(out, fromSnapshot(snap))
	}

	sortOldestFirst(out)
	return out, nil
}

func (s *Store) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	_, err := s.collection(databaseID, collectionID).Doc(documentID).Delete(ctx, firestore.Exists)
	if err != nil {
		return mapError(err, "delete document %s/%s/%s", databaseID, collectionID, documentID)
	}
	return nil
}

func fromSnapshot(snap *firestore.DocumentSnapshot) *documents.Document {
	return &documents.Document{
		ID:        snap.Ref.ID,
		Data:      snap.Data(),
		CreatedAt: snap.CreateTime,
	}
}

func sortOldestFirst(docs []*documents.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
}

// mapError turns gRPC NotFound into documents.ErrDocumentNotFound.
func mapError(err error, format string, args ...any) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), documents.ErrDocumentNotFound)
	}
	return fmt.Errorf("failed to %s: %w", fmt.Sprintf(format, args...), err)
}
