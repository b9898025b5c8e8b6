package postgres

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"horizon/internal/domain/identity"
	"horizon/internal/shared/auth"
)

const sessionSecretBytes = 32

// IdentityProvider implements identity.Provider with bcrypt-hashed accounts
// and opaque session secrets stored as SHA-256 digests.
type IdentityProvider struct {
	db         *DB
	sessionTTL time.Duration
	now        func() time.Time
}

func NewIdentityProvider(db *DB, sessionTTL time.Duration) *IdentityProvider {
	return &IdentityProvider{db: db, sessionTTL: sessionTTL, now: time.Now}
}

func (p *IdentityProvider) CreateAccount(ctx context.Context, params identity.CreateAccountParams) (*identity.Account, error) {
	email := normalizeEmail(params.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", identity.ErrInvalidCredentials)
	}

	hash, err := auth.HashPassword(params.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: %v", identity.ErrWeakPassword, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO accounts (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, created_at
	`

	var account identity.Account
	err = p.db.QueryRowContext(ctx, query, uuid.NewString(), email, params.Name, hash).Scan(
		&account.ID, &account.Email, &account.Name, &account.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, identity.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &account, nil
}

func (p *IdentityProvider) DeleteAccount(ctx context.Context, accountID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

func (p *IdentityProvider) CreateEmailPasswordSession(ctx context.Context, email, password string) (*identity.Session, error) {
	var accountID, hash string
	err := p.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM accounts WHERE lower(email) = $1`,
		normalizeEmail(email),
	).Scan(&accountID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := auth.VerifyPassword(hash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	secret, err := newSessionSecret()
	if err != nil {
		return nil, err
	}

	session := &identity.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Secret:    secret,
		ExpiresAt: p.now().Add(p.sessionTTL).UTC(),
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, secret_hash, expires_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.AccountID, hashSecret(secret), session.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (p *IdentityProvider) GetAccount(ctx context.Context, secret string) (*identity.Account, error) {
	if secret == "" {
		return nil, identity.ErrSessionNotFound
	}

	query := `
		SELECT a.id, a.email, a.name, a.created_at
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.secret_hash = $1 AND s.expires_at > $2
	`

	var account identity.Account
	err := p.db.QueryRowContext(ctx, query, hashSecret(secret), p.now().UTC()).Scan(
		&account.ID, &account.Email, &account.Name, &account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return &account, nil
}

func (p *IdentityProvider) DeleteSession(ctx context.Context, secret string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE secret_hash = $1`, hashSecret(secret))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return identity.ErrSessionNotFound
	}
	return nil
}

// SweepExpiredSessions deletes sessions past their expiry and reports how
// many were removed.
func (p *IdentityProvider) SweepExpiredSessions(ctx context.Context) (int64, error) {
	result, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, p.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}
	return result.RowsAffected()
}

func newSessionSecret() (string, error) {
	buf := make([]byte, sessionSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
