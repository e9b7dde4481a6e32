package fakes

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/systmms/secretmgr/internal/providers/contracts"
)

// FakeAkeylessClient is a test double for contracts.AkeylessClient
type FakeAkeylessClient struct {
	// Token is the token returned by Authenticate
	Token string
	// TokenTTL is the TTL returned by Authenticate
	TokenTTL time.Duration
	// Secrets is a map of path to secret data
	Secrets map[string]*contracts.AkeylessSecret
	// NotFoundErr is returned for unknown paths
	NotFoundErr error
	// AuthErr is returned by Authenticate if set
	AuthErr error

	mu            sync.Mutex
	authCallCount int
	getCallCount  int
}

// NewFakeAkeylessClient creates a new fake Akeyless client with defaults
func NewFakeAkeylessClient(notFound error) *FakeAkeylessClient {
	if notFound == nil {
		notFound = errors.New("item not found")
	}
	return &FakeAkeylessClient{
		Token:       "fake-akeyless-token",
		TokenTTL:    30 * time.Minute,
		Secrets:     make(map[string]*contracts.AkeylessSecret),
		NotFoundErr: notFound,
	}
}

// SetSecret adds a secret to the fake Akeyless
func (f *FakeAkeylessClient) SetSecret(path, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[path] = &contracts.AkeylessSecret{
		Path:      path,
		Value:     value,
		Version:   1,
		UpdatedAt: time.Now(),
	}
}

// Authenticate implements contracts.AkeylessClient
func (f *FakeAkeylessClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCallCount++
	if f.AuthErr != nil {
		return "", 0, f.AuthErr
	}
	return f.Token, f.TokenTTL, nil
}

// GetSecret implements contracts.AkeylessClient
func (f *FakeAkeylessClient) GetSecret(ctx context.Context, token, path string, version *int) (*contracts.AkeylessSecret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCallCount++
	if token != f.Token {
		return nil, errors.New("invalid token")
	}
	s, ok := f.Secrets[path]
	if !ok {
		return nil, f.NotFoundErr
	}
	cp := *s
	if version != nil {
		cp.Version = *version
	}
	return &cp, nil
}

// AuthCallCount returns how many times Authenticate was called
func (f *FakeAkeylessClient) AuthCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCallCount
}

var _ contracts.AkeylessClient = (*FakeAkeylessClient)(nil)
