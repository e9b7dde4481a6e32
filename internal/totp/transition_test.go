package totp

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"math/big"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretmgr/internal/config"
	"github.com/systmms/secretmgr/internal/database"
	"github.com/systmms/secretmgr/internal/logging"
	"github.com/systmms/secretmgr/pkg/secrets"
	"github.com/systmms/secretmgr/tests/fakes"
)

var (
	oldKey, _ = new(big.Int).SetString("11111111111111111111111111111111", 16)
	newKey, _ = new(big.Int).SetString("22222222222222222222222222222222", 16)
	badKey, _ = new(big.Int).SetString("33333333333333333333333333333333", 16)
	seedA     = []byte("seed-of-account-one!")
)

// sealedWith matches a sealed seed that opens to seed under key.
type sealedWith struct {
	key  *big.Int
	seed []byte
}

func (m sealedWith) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	if m.key == nil {
		return bytes.Equal(b, m.seed)
	}
	k, _ := KeyBytes(m.key)
	opened, err := Open(k, b)
	return err == nil && bytes.Equal(opened, m.seed)
}

func mustSeal(t *testing.T, key *big.Int, seed []byte) []byte {
	t.Helper()
	k, err := KeyBytes(key)
	require.NoError(t, err)
	s, err := Seal(k, seed)
	require.NoError(t, err)
	return s
}

const selectSeeds = "SELECT id, totp_secret FROM account WHERE totp_secret IS NOT NULL"

func TestSQLTransitioner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		newSecret     *big.Int
		oldSecret     *big.Int
		hadOld        bool
		setupMock     func(t *testing.T, mock sqlmock.Sqlmock)
		errorContains string
	}{
		{
			name:      "first configuration encrypts plain seeds",
			newSecret: newKey,
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(selectSeeds)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "totp_secret"}).AddRow(int64(1), seedA))
				mock.ExpectExec(regexp.QuoteMeta("UPDATE account SET totp_secret = $1 WHERE id = $2")).
					WithArgs(sealedWith{key: newKey, seed: seedA}, int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name:      "rotation re-encrypts",
			newSecret: newKey,
			oldSecret: oldKey,
			hadOld:    true,
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(selectSeeds)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "totp_secret"}).AddRow(int64(1), mustSeal(t, oldKey, seedA)))
				mock.ExpectExec(regexp.QuoteMeta("UPDATE account SET totp_secret = $1 WHERE id = $2")).
					WithArgs(sealedWith{key: newKey, seed: seedA}, int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name:      "removal decrypts to plain seeds",
			oldSecret: oldKey,
			hadOld:    true,
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(selectSeeds)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "totp_secret"}).AddRow(int64(1), mustSeal(t, oldKey, seedA)))
				mock.ExpectExec(regexp.QuoteMeta("UPDATE account SET totp_secret = $1 WHERE id = $2")).
					WithArgs(sealedWith{seed: seedA}, int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name:      "rows already sealed with the new key are skipped",
			newSecret: newKey,
			oldSecret: oldKey,
			hadOld:    true,
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(selectSeeds)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "totp_secret"}).
						AddRow(int64(1), mustSeal(t, newKey, seedA)).
						AddRow(int64(2), mustSeal(t, oldKey, seedA)))
				mock.ExpectExec(regexp.QuoteMeta("UPDATE account SET totp_secret = $1 WHERE id = $2")).
					WithArgs(sealedWith{key: newKey, seed: seedA}, int64(2)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name:      "removal leaves plain seeds alone",
			oldSecret: oldKey,
			hadOld:    true,
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(selectSeeds)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "totp_secret"}).AddRow(int64(1), seedA))
				mock.ExpectCommit()
			},
		},
		{
			name:      "reset clears seeds",
			newSecret: newKey,
			hadOld:    true,
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("UPDATE account SET totp_secret = NULL WHERE totp_secret IS NOT NULL")).
					WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectCommit()
			},
		},
		{
			name:      "wrong old key rolls back",
			newSecret: newKey,
			oldSecret: oldKey,
			hadOld:    true,
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(selectSeeds)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "totp_secret"}).AddRow(int64(9), mustSeal(t, badKey, seedA)))
				mock.ExpectRollback()
			},
			errorContains: "account 9: cannot decrypt TOTP secret with the previous key",
		},
		{
			name:      "begin failure",
			newSecret: newKey,
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("connection lost"))
			},
			errorContains: "begin transaction",
		},
		{
			name:      "update failure rolls back",
			newSecret: newKey,
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(selectSeeds)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "totp_secret"}).AddRow(int64(1), seedA))
				mock.ExpectExec("UPDATE account").WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			errorContains: "failed to update account 1",
		},
		{
			name:      "commit failure",
			newSecret: newKey,
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(selectSeeds)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "totp_secret"}))
				mock.ExpectCommit().WillReturnError(errors.New("commit failed"))
			},
			errorContains: "commit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMock(t, mock)

			tr := NewSQLTransitioner(db, database.Postgres, logging.Discard())
			err = tr.Transition(context.Background(), secrets.TOTPMasterKey, tt.newSecret, tt.oldSecret, tt.hadOld)
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Runs enrollment, key rotation through the store and verification against
// a real SQLite database.
func TestRotationEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := database.Open(ctx, &config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "accounts.db"),
	})
	require.NoError(t, err)
	defer db.Close()

	accounts := NewSQLAccounts(db.DB, db.Dialect)
	require.NoError(t, accounts.EnsureSchema(ctx))

	src := fakes.NewFakeSource().WithNew(secrets.TOTPMasterKey, oldKey)
	newStore := func() *secrets.Store {
		return secrets.New(src, secrets.WithTransitioner(secrets.TOTPMasterKey,
			NewSQLTransitioner(db.DB, db.Dialect, logging.Discard())))
	}

	store := newStore()
	store.Initialize()
	v := NewVerifier(store, accounts)
	_, err = v.Enroll(ctx, 42, "secretmgr", "bob")
	require.NoError(t, err)

	now := time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC)
	code, err := v.Code(ctx, 42, now)
	require.NoError(t, err)

	// rotate: the recorded old key is offered alongside the new one
	src.WithNew(secrets.TOTPMasterKey, newKey).WithOld(secrets.TOTPMasterKey, oldKey)
	store.Initialize()
	require.True(t, store.Get(secrets.TOTPMasterKey).OK())

	ok, err := v.Verify(ctx, 42, code, now)
	require.NoError(t, err)
	assert.True(t, ok, "seed survives the rotation")

	stored, err := accounts.TOTPSecret(ctx, 42)
	require.NoError(t, err)
	k, _ := KeyBytes(newKey)
	_, err = Open(k, stored)
	assert.NoError(t, err, "seed is now sealed with the new key")
}

// A transition that committed but whose record failed is retried by the
// next Initialize and must not lock the key out.
func TestRotation_RecordFailureIsRetried(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := database.Open(ctx, &config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "accounts.db"),
	})
	require.NoError(t, err)
	defer db.Close()

	accounts := NewSQLAccounts(db.DB, db.Dialect)
	require.NoError(t, accounts.EnsureSchema(ctx))

	src := fakes.NewFakeSource().WithNew(secrets.TOTPMasterKey, oldKey)
	store := secrets.New(src, secrets.WithTransitioner(secrets.TOTPMasterKey,
		NewSQLTransitioner(db.DB, db.Dialect, logging.Discard())))
	store.Initialize()

	v := NewVerifier(store, accounts)
	_, err = v.Enroll(ctx, 7, "secretmgr", "carol")
	require.NoError(t, err)
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	code, err := v.Code(ctx, 7, now)
	require.NoError(t, err)

	src.WithNew(secrets.TOTPMasterKey, newKey).
		WithOld(secrets.TOTPMasterKey, oldKey).
		WithRecordError(errors.New("ledger unavailable"))
	store.Initialize()
	assert.Equal(t, secrets.LoadFailed, store.Get(secrets.TOTPMasterKey).State())

	src.WithRecordError(nil)
	store.Initialize()
	require.True(t, store.Get(secrets.TOTPMasterKey).OK())

	recorded, ok := src.Recorded(secrets.TOTPMasterKey)
	require.True(t, ok)
	assert.Equal(t, 0, recorded.Cmp(newKey))

	ok, err = v.Verify(ctx, 7, code, now)
	require.NoError(t, err)
	assert.True(t, ok)
}
