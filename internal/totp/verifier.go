// Package totp implements time-based one-time codes whose per-account seeds
// are encrypted under the TOTP master key.
package totp

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"

	"github.com/systmms/secretmgr/pkg/secrets"
)

var (
	// ErrDisabled is returned while the master key failed to load.
	ErrDisabled = errors.New("TOTP is disabled: master key unavailable")
	// ErrNoTOTP is returned for accounts without a seed.
	ErrNoTOTP = errors.New("TOTP is not enabled for this account")
)

// SecretGetter is the part of *secrets.Store the verifier needs.
type SecretGetter interface {
	Get(id secrets.ID) secrets.Secret
}

// ValidateOpts are the RFC 6238 parameters used for every account.
var ValidateOpts = pqtotp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Verifier checks codes against stored seeds.
type Verifier struct {
	secrets  SecretGetter
	accounts Accounts
}

// NewVerifier creates a verifier
func NewVerifier(store SecretGetter, accounts Accounts) *Verifier {
	return &Verifier{secrets: store, accounts: accounts}
}

// masterKey returns the AES key, or nil when no master key is configured
// and seeds are stored in plain.
func (v *Verifier) masterKey() ([]byte, error) {
	s := v.secrets.Get(secrets.TOTPMasterKey)
	if !s.IsAvailable() {
		return nil, ErrDisabled
	}
	if !s.OK() {
		return nil, nil
	}
	return s.Bytes(KeySize)
}

// Seed returns the decrypted seed of an account.
func (v *Verifier) Seed(ctx context.Context, accountID int64) ([]byte, error) {
	key, err := v.masterKey()
	if err != nil {
		return nil, err
	}
	stored, err := v.accounts.TOTPSecret(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrNoTOTP
	}
	if key == nil {
		return stored, nil
	}
	seed, err := Open(key, stored)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", accountID, err)
	}
	return seed, nil
}

// Verify reports whether code is valid for the account at now.
func (v *Verifier) Verify(ctx context.Context, accountID int64, code string, now time.Time) (bool, error) {
	seed, err := v.Seed(ctx, accountID)
	if err != nil {
		return false, err
	}
	ok, err := pqtotp.ValidateCustom(code, encodeSeed(seed), now, ValidateOpts)
	if err != nil {
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// Enroll generates a new seed for the account, stores it under the master
// key and returns the provisioning key.
func (v *Verifier) Enroll(ctx context.Context, accountID int64, issuer, accountName string) (*otp.Key, error) {
	key, err := v.masterKey()
	if err != nil {
		return nil, err
	}
	otpKey, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      ValidateOpts.Period,
		Digits:      ValidateOpts.Digits,
		Algorithm:   ValidateOpts.Algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	seed, err := decodeSeed(otpKey.Secret())
	if err != nil {
		return nil, err
	}
	stored := seed
	if key != nil {
		if stored, err = Seal(key, seed); err != nil {
			return nil, err
		}
	}
	if err := v.accounts.SetTOTPSecret(ctx, accountID, stored); err != nil {
		return nil, err
	}
	return otpKey, nil
}

// Code returns the current code of an account; used by tests and the CLI.
func (v *Verifier) Code(ctx context.Context, accountID int64, now time.Time) (string, error) {
	seed, err := v.Seed(ctx, accountID)
	if err != nil {
		return "", err
	}
	return pqtotp.GenerateCodeCustom(encodeSeed(seed), now, ValidateOpts)
}

func encodeSeed(seed []byte) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(seed)
}

func decodeSeed(s string) ([]byte, error) {
	seed, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid TOTP secret: %w", err)
	}
	return seed, nil
}
