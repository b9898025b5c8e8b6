package postgres

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"horizon/internal/infrastructure/documents"
)

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"params untouched", "SELECT id FROM accounts WHERE id = $1", "SELECT id FROM accounts WHERE id = $1"},
		{"string literal", "SELECT * FROM documents WHERE data->>'ssn' = '123-45-6789'", "SELECT * FROM documents WHERE data->>'?' = '?'"},
		{"escaped quote", "SELECT 'it''s'", "SELECT '?'"},
		{"numeric literal", "SELECT * FROM sessions LIMIT 10", "SELECT * FROM sessions LIMIT ?"},
		{"identifier digits", "SELECT col1 FROM t2", "SELECT col1 FROM t2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeQuery(tt.in); got != tt.want {
				t.Errorf("sanitizeQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeQuery_Truncates(t *testing.T) {
	got := sanitizeQuery("SELECT " + strings.Repeat("x", 400))
	if len(got) != 256+len("...") || !strings.HasSuffix(got, "...") {
		t.Errorf("sanitizeQuery() length = %d", len(got))
	}
}

func TestExtractSQLVerb(t *testing.T) {
	tests := map[string]string{
		"  select 1":            "SELECT",
		"INSERT INTO documents": "INSERT",
		"delete from sessions":  "DELETE",
		"BEGIN":                 "BEGIN",
	}
	for in, want := range tests {
		if got := extractSQLVerb(in); got != want {
			t.Errorf("extractSQLVerb(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildListQuery(t *testing.T) {
	query, args := buildListQuery("horizon", "banks", []documents.Query{
		documents.Equal("userId", "user-1"),
		documents.Equal("bankId", "item-1"),
	})

	want := `SELECT id, data, created_at FROM documents WHERE database_id = $1 AND collection_id = $2` +
		` AND data->>$3 = $4 AND data->>$5 = $6 ORDER BY created_at, id`
	if query != want {
		t.Errorf("query = %q\nwant    %q", query, want)
	}
	wantArgs := []any{"horizon", "banks", "userId", "user-1", "bankId", "item-1"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestSessionSecret(t *testing.T) {
	a, err := newSessionSecret()
	if err != nil {
		t.Fatalf("newSessionSecret() error = %v", err)
	}
	b, _ := newSessionSecret()
	if a == b {
		t.Error("session secrets repeat")
	}
	if len(a) != 43 {
		t.Errorf("secret length = %d, want 43", len(a))
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("secret %q is not cookie-safe", a)
	}

	if hashSecret(a) != hashSecret(a) || hashSecret(a) == hashSecret(b) {
		t.Error("hashSecret is not a stable digest")
	}
	if hashSecret(a) == a {
		t.Error("hashSecret returned the secret")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Ada@Example.COM "); got != "ada@example.com" {
		t.Errorf("normalizeEmail() = %q", got)
	}
}

func TestPoolOptionsDefaults(t *testing.T) {
	got := PoolOptions{MaxOpenConns: 10}.withDefaults()
	want := PoolOptions{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 5 * time.Minute}
	if got != want {
		t.Errorf("withDefaults() = %+v, want %+v", got, want)
	}
}

func TestMigrationsOrdered(t *testing.T) {
	for i, m := range migrations {
		if m.version != i+1 {
			t.Errorf("migration %d has version %d", i, m.version)
		}
		if strings.TrimSpace(m.sql) == "" {
			t.Errorf("migration %d has no sql", m.version)
		}
	}
}
