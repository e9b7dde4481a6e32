// Package ledger records a digest of every secret value a deployment has
// used, so that a restart can tell an unchanged secret from a rotated,
// reset or removed one without keeping the value itself.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/systmms/secretmgr/internal/config"
	"github.com/systmms/secretmgr/internal/database"
	"github.com/systmms/secretmgr/pkg/secrets"
)

// Ledger stores one digest per secret.
type Ledger interface {
	// Lookup returns the recorded digest and whether there is one.
	Lookup(ctx context.Context, id secrets.ID) (string, bool, error)
	Store(ctx context.Context, id secrets.ID, digest string) error
	// Delete removes the record; deleting a missing record is not an error.
	Delete(ctx context.Context, id secrets.ID) error
	List(ctx context.Context) ([]Entry, error)
}

// Entry is one recorded digest.
type Entry struct {
	ID     secrets.ID
	Name   string
	Digest string
}

// DefaultPath returns the default location of the file ledger
func DefaultPath() string {
	if dir := os.Getenv("SECRETMGR_LEDGER_DIR"); dir != "" {
		return filepath.Join(dir, "ledger.json")
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "secretmgr", "ledger.json")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "secretmgr", "ledger.json")
	}
	return filepath.Join(os.TempDir(), "secretmgr", "ledger.json")
}

// Open builds the configured ledger. db may be nil unless the backend is sql.
func Open(ctx context.Context, cfg config.LedgerConfig, db *database.DB) (Ledger, error) {
	switch cfg.Backend {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = DefaultPath()
		}
		return NewFileLedger(path), nil
	case "sql":
		if db == nil {
			return nil, fmt.Errorf("sql ledger requires a database")
		}
		l := NewSQLLedger(db.DB, db.Dialect)
		if err := l.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", cfg.Backend)
	}
}
