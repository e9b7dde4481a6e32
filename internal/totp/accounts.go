package totp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/systmms/secretmgr/internal/database"
)

// ErrNoAccount is returned for account ids that do not exist.
var ErrNoAccount = errors.New("account not found")

// Accounts reads and writes the stored TOTP seed of an account.
type Accounts interface {
	// TOTPSecret returns the stored seed, nil when TOTP is not enabled.
	TOTPSecret(ctx context.Context, accountID int64) ([]byte, error)
	SetTOTPSecret(ctx context.Context, accountID int64, stored []byte) error
}

// SQLAccounts is Accounts on the account table.
type SQLAccounts struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLAccounts creates an Accounts on db
func NewSQLAccounts(db *sql.DB, dialect database.Dialect) *SQLAccounts {
	return &SQLAccounts{db: db, dialect: dialect}
}

// SchemaSQL returns the account table definition for dialect.
func SchemaSQL(dialect database.Dialect) string {
	blob := "BLOB"
	switch dialect {
	case database.Postgres:
		blob = "BYTEA"
	case database.MySQL:
		blob = "VARBINARY(128)"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS account (\n\tid BIGINT PRIMARY KEY,\n\ttotp_secret %s NULL\n)", blob)
}

// EnsureSchema creates the account table if needed
func (a *SQLAccounts) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, SchemaSQL(a.dialect)); err != nil {
		return fmt.Errorf("failed to create account table: %w", err)
	}
	return nil
}

// TOTPSecret implements Accounts
func (a *SQLAccounts) TOTPSecret(ctx context.Context, accountID int64) ([]byte, error) {
	var stored []byte
	err := a.db.QueryRowContext(ctx, a.dialect.Rebind("SELECT totp_secret FROM account WHERE id = ?"), accountID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", accountID, ErrNoAccount)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read TOTP secret of account %d: %w", accountID, err)
	}
	return stored, nil
}

// SetTOTPSecret implements Accounts; a nil seed disables TOTP. The account
// row is created when missing.
func (a *SQLAccounts) SetTOTPSecret(ctx context.Context, accountID int64, stored []byte) error {
	var value interface{}
	if stored != nil {
		value = stored
	}
	query := a.dialect.Upsert("account", "id", "totp_secret")
	if _, err := a.db.ExecContext(ctx, query, accountID, value); err != nil {
		return fmt.Errorf("failed to store TOTP secret of account %d: %w", accountID, err)
	}
	return nil
}
