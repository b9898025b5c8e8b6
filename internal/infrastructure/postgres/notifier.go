package postgres

import (
	"context"
	"fmt"
)

// RevalidationChannel carries revalidated page paths between API instances.
const RevalidationChannel = "page_revalidated"

// RevalidationNotifier broadcasts revalidated paths with NOTIFY.
type RevalidationNotifier struct {
	db *DB
}

func NewRevalidationNotifier(db *DB) *RevalidationNotifier {
	return &RevalidationNotifier{db: db}
}

func (n *RevalidationNotifier) Broadcast(ctx context.Context, path string) error {
	if _, err := n.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, RevalidationChannel, path); err != nil {
		return fmt.Errorf("failed to notify %s: %w", RevalidationChannel, err)
	}
	return nil
}
