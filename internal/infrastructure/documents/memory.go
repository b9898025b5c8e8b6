package documents

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for local development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]*Document
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]*Document),
		now:  time.Now,
	}
}

func collectionKey(databaseID, collectionID string) string {
	return databaseID + "/" + collectionID
}

func (s *MemoryStore) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*Document, error) {
	if documentID == "" {
		documentID = UniqueID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := collectionKey(databaseID, collectionID)
	coll, ok := s.docs[key]
	if !ok {
		coll = make(map[string]*Document)
		s.docs[key] = coll
	}
	if _, exists := coll[documentID]; exists {
		return nil, fmt.Errorf("document %s already exists in %s", documentID, key)
	}

	doc := &Document{ID: documentID, Data: maps.Clone(data), CreatedAt: s.now()}
	coll[documentID] = doc
	return clone(doc), nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...Query) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Document
	for _, doc := range s.docs[collectionKey(databaseID, collectionID)] {
		if matches(doc, queries) {
			out = append(out, clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.docs[collectionKey(databaseID, collectionID)]
	if _, ok := coll[documentID]; !ok {
		return ErrDocumentNotFound
	}
	delete(coll, documentID)
	return nil
}

func matches(doc *Document, queries []Query) bool {
	for _, q := range queries {
		if fmt.Sprint(doc.Data[q.Field]) != q.Value {
			return false
		}
	}
	return true
}

func clone(doc *Document) *Document {
	return &Document{ID: doc.ID, Data: maps.Clone(doc.Data), CreatedAt: doc.CreatedAt}
}
