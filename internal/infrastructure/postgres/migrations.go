package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "documents",
		sql: `
			CREATE TABLE IF NOT EXISTS documents (
				database_id   TEXT        NOT NULL,
				collection_id TEXT        NOT NULL,
				id            TEXT        NOT NULL,
				data          JSONB       NOT NULL DEFAULT '{}'::jsonb,
				created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
				PRIMARY KEY (database_id, collection_id, id)
			);
			CREATE INDEX IF NOT EXISTS documents_data_gin ON documents USING GIN (data jsonb_path_ops);
		`,
	},
	{
		version: 2,
		name:    "identity",
		sql: `
			CREATE TABLE IF NOT EXISTS accounts (
				id            UUID        PRIMARY KEY,
				email         TEXT        NOT NULL,
				name          TEXT        NOT NULL DEFAULT '',
				password_hash TEXT        NOT NULL,
				created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
			);
			CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_lower ON accounts (lower(email));

			CREATE TABLE IF NOT EXISTS sessions (
				id          UUID        PRIMARY KEY,
				account_id  UUID        NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				secret_hash TEXT        NOT NULL UNIQUE,
				expires_at  TIMESTAMPTZ NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
			);
			CREATE INDEX IF NOT EXISTS sessions_expires_at ON sessions (expires_at);
		`,
	},
}

// Migrate applies pending schema migrations in version order, each in its
// own transaction.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER     PRIMARY KEY,
			name       TEXT        NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate schema_migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		err := db.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				m.version, m.name,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
		logger.Info("migration applied", slog.Int("version", m.version), slog.String("name", m.name))
	}
	return nil
}
