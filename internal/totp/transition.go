package totp

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/systmms/secretmgr/internal/database"
	"github.com/systmms/secretmgr/internal/logging"
	"github.com/systmms/secretmgr/pkg/secrets"
)

// SQLTransitioner re-encrypts every stored seed when the master key changes.
// All rows are rewritten in one transaction, so a failure leaves the
// previous encryption in place.
type SQLTransitioner struct {
	db      *sql.DB
	dialect database.Dialect
	logger  *logging.Logger
}

// NewSQLTransitioner creates a transitioner on db
func NewSQLTransitioner(db *sql.DB, dialect database.Dialect, logger *logging.Logger) *SQLTransitioner {
	return &SQLTransitioner{db: db, dialect: dialect, logger: logger}
}

type storedSeed struct {
	id   int64
	seed []byte
}

// Transition implements secrets.Transitioner. With hadOld and no old key
// (an intentional reset) the seeds cannot be recovered and are cleared.
func (t *SQLTransitioner) Transition(ctx context.Context, id secrets.ID, newSecret, oldSecret *big.Int, hadOld bool) error {
	var newKey, oldKey []byte
	var err error
	if newSecret != nil {
		if newKey, err = KeyBytes(newSecret); err != nil {
			return err
		}
	}
	if oldSecret != nil {
		if oldKey, err = KeyBytes(oldSecret); err != nil {
			return err
		}
	}
	discard := hadOld && oldKey == nil

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if discard {
		res, err := tx.ExecContext(ctx, "UPDATE account SET totp_secret = NULL WHERE totp_secret IS NOT NULL")
		if err != nil {
			return fmt.Errorf("failed to clear TOTP secrets: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		n, _ := res.RowsAffected()
		t.logger.Warn("Cleared TOTP secrets of %d accounts; they must enroll again", n)
		return nil
	}

	rows, err := tx.QueryContext(ctx, "SELECT id, totp_secret FROM account WHERE totp_secret IS NOT NULL")
	if err != nil {
		return fmt.Errorf("failed to read TOTP secrets: %w", err)
	}
	var seeds []storedSeed
	for rows.Next() {
		var s storedSeed
		if err := rows.Scan(&s.id, &s.seed); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan account row: %w", err)
		}
		seeds = append(seeds, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read TOTP secrets: %w", err)
	}

	update := t.dialect.Rebind("UPDATE account SET totp_secret = ? WHERE id = ?")
	migrated := 0
	for _, s := range seeds {
		// A committed transition whose digest was never recorded is retried
		// on the next load; rows it already rewrote are left alone.
		if newKey != nil {
			if _, err := Open(newKey, s.seed); err == nil {
				continue
			}
		} else if oldKey != nil && len(s.seed) < sealedOverhead {
			continue
		}

		seed := s.seed
		if oldKey != nil {
			if seed, err = Open(oldKey, s.seed); err != nil {
				return fmt.Errorf("account %d: cannot decrypt TOTP secret with the previous key: %w", s.id, err)
			}
		}
		stored := seed
		if newKey != nil {
			if stored, err = Seal(newKey, seed); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, update, stored, s.id); err != nil {
			return fmt.Errorf("failed to update account %d: %w", s.id, err)
		}
		migrated++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Info("Re-encrypted TOTP secrets of %d accounts (%d already current)", migrated, len(seeds)-migrated)
	return nil
}

var _ secrets.Transitioner = (*SQLTransitioner)(nil)
