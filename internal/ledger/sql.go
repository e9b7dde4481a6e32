package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/systmms/secretmgr/internal/database"
	"github.com/systmms/secretmgr/pkg/secrets"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS secret_digest (
	id INTEGER PRIMARY KEY,
	digest TEXT NOT NULL
)`

// SQLLedger keeps digests in the secret_digest table of the account database.
type SQLLedger struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLLedger creates a ledger on db
func NewSQLLedger(db *sql.DB, dialect database.Dialect) *SQLLedger {
	return &SQLLedger{db: db, dialect: dialect}
}

// EnsureSchema creates the secret_digest table if needed
func (l *SQLLedger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create secret_digest table: %w", err)
	}
	return nil
}

// Lookup implements Ledger
func (l *SQLLedger) Lookup(ctx context.Context, id secrets.ID) (string, bool, error) {
	query := l.dialect.Rebind("SELECT digest FROM secret_digest WHERE id = ?")

	var digest string
	err := l.db.QueryRowContext(ctx, query, int64(id)).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up digest of %s: %w", id, err)
	}
	return digest, true, nil
}

// Store implements Ledger
func (l *SQLLedger) Store(ctx context.Context, id secrets.ID, digest string) error {
	query := l.dialect.Upsert("secret_digest", "id", "digest")
	if _, err := l.db.ExecContext(ctx, query, int64(id), digest); err != nil {
		return fmt.Errorf("failed to record digest of %s: %w", id, err)
	}
	return nil
}

// Delete implements Ledger
func (l *SQLLedger) Delete(ctx context.Context, id secrets.ID) error {
	query := l.dialect.Rebind("DELETE FROM secret_digest WHERE id = ?")
	if _, err := l.db.ExecContext(ctx, query, int64(id)); err != nil {
		return fmt.Errorf("failed to delete digest of %s: %w", id, err)
	}
	return nil
}

// List implements Ledger
func (l *SQLLedger) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT id, digest FROM secret_digest ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list digests: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			raw    int64
			digest string
		)
		if err := rows.Scan(&raw, &digest); err != nil {
			return nil, fmt.Errorf("failed to scan digest row: %w", err)
		}
		id := secrets.ID(raw)
		entries = append(entries, Entry{ID: id, Name: id.String(), Digest: digest})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list digests: %w", err)
	}
	return entries, nil
}
