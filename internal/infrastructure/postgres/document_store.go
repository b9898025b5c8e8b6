package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"horizon/internal/infrastructure/documents"
)

const uniqueViolation = "23505"

// DocumentStore implements documents.Store on a JSONB table.
type DocumentStore struct {
	db *DB
}

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*documents.Document, error) {
	if documentID == "" {
		documentID = documents.UniqueID()
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
		INSERT INTO documents (database_id, collection_id, id, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, data, created_at
	`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, databaseID, collectionID, documentID, payload))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("document %s already exists: %w", documentID, err)
		}
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	return doc, nil
}

func (s *DocumentStore) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...documents.Query) ([]*documents.Document, error) {
	query, args := buildListQuery(databaseID, collectionID, queries)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []*documents.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return out, nil
}

func (s *DocumentStore) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE database_id = $1 AND collection_id = $2 AND id = $3`,
		databaseID, collectionID, documentID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n == 0 {
		return documents.ErrDocumentNotFound
	}
	return nil
}

// buildListQuery turns equality filters into data->>field = value clauses.
// Field names travel as parameters, never as SQL text.
func buildListQuery(databaseID, collectionID string, queries []documents.Query) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, data, created_at FROM documents WHERE database_id = $1 AND collection_id = $2`)
	args := []any{databaseID, collectionID}

	for _, q := range queries {
		fieldArg := len(args) + 1
		valueArg := fieldArg + 1
		b.WriteString(" AND data->>$" + strconv.Itoa(fieldArg) + " = $" + strconv.Itoa(valueArg))
		args = append(args, q.Field, q.Value)
	}
	b.WriteString(" ORDER BY created_at, id")
	return b.String(), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*documents.Document, error) {
	var (
		doc     documents.Document
		payload []byte
	)
	if err := row.Scan(&doc.ID, &payload, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &doc.Data); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
	}
	return &doc, nil
}
