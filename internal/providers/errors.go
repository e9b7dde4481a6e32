package providers

import (
	"errors"
	"fmt"
)

// KeychainError wraps OS keychain errors with context
type KeychainError struct {
	Op      string
	Service string
	Account string
	Err     error
}

func (e *KeychainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keychain %s error for %s/%s: %v", e.Op, e.Service, e.Account, e.Err)
	}
	return fmt.Sprintf("keychain %s error for %s/%s", e.Op, e.Service, e.Account)
}

func (e *KeychainError) Unwrap() error {
	return e.Err
}

// AkeylessError wraps Akeyless SDK errors with context
type AkeylessError struct {
	Op   string
	Path string
	Err  error
}

func (e *AkeylessError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("akeyless %s error for %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("akeyless %s error: %v", e.Op, e.Err)
}

func (e *AkeylessError) Unwrap() error {
	return e.Err
}

var (
	// ErrAkeylessSecretNotFound is returned by clients when the path holds no secret.
	ErrAkeylessSecretNotFound = errors.New("akeyless secret not found")
	// ErrEmptySecret is returned when a provider holds the key but no data.
	ErrEmptySecret = errors.New("secret has no value")
	// ErrChecksum is returned when a payload does not match its checksum.
	ErrChecksum = errors.New("secret payload checksum mismatch")
)
