package contracts

import (
	"context"
	"time"
)

// AkeylessClient abstracts Akeyless SDK operations for testing
type AkeylessClient interface {
	// Authenticate obtains an access token
	Authenticate(ctx context.Context) (token string, expiresIn time.Duration, err error)

	// GetSecret retrieves a secret by path. version is nil for latest.
	GetSecret(ctx context.Context, token, path string, version *int) (*AkeylessSecret, error)
}

// AkeylessSecret represents a secret from Akeyless
type AkeylessSecret struct {
	Path      string
	Value     string
	Version   int
	UpdatedAt time.Time
}
