package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/secretmgr/pkg/provider"
)

// FakeProvider is an in-memory provider.Provider.
//
//	fake := fakes.NewFakeProvider("test").
//	    WithSecret("db/password", "secret123").
//	    WithError("api/key", errors.New("connection failed"))
type FakeProvider struct {
	name string

	mu           sync.RWMutex
	secrets      map[string]provider.SecretValue
	failOn       map[string]error
	validateErr  error
	resolveDelay time.Duration
	callCount    map[string]int
}

// NewFakeProvider creates an empty FakeProvider.
func NewFakeProvider(name string) *FakeProvider {
	return &FakeProvider{
		name:      name,
		secrets:   make(map[string]provider.SecretValue),
		failOn:    make(map[string]error),
		callCount: make(map[string]int),
	}
}

// WithSecret stores value under key. Versioned lookups use "key@version".
func (f *FakeProvider) WithSecret(key, value string) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secrets[key] = provider.SecretValue{Value: value, Version: "v1", UpdatedAt: time.Now()}
	return f
}

// WithoutSecret removes key.
func (f *FakeProvider) WithoutSecret(key string) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.secrets, key)
	return f
}

// WithError makes Resolve of key fail with err.
func (f *FakeProvider) WithError(key string, err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[key] = err
	return f
}

// WithValidateError makes Validate fail.
func (f *FakeProvider) WithValidateError(err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateErr = err
	return f
}

// WithDelay simulates latency; Resolve honors context cancellation.
func (f *FakeProvider) WithDelay(d time.Duration) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveDelay = d
	return f
}

// Name implements provider.Provider.
func (f *FakeProvider) Name() string {
	return f.name
}

// Resolve implements provider.Provider.
func (f *FakeProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	key := ref.Key
	if ref.Version != "" {
		key += "@" + ref.Version
	}

	f.mu.Lock()
	f.callCount[key]++
	delay := f.resolveDelay
	err := f.failOn[key]
	v, ok := f.secrets[key]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return provider.SecretValue{}, ctx.Err()
		}
	}
	if err != nil {
		return provider.SecretValue{}, err
	}
	if !ok {
		return provider.SecretValue{}, &provider.NotFoundError{Provider: f.name, Key: key}
	}
	return v, nil
}

// Validate implements provider.Provider.
func (f *FakeProvider) Validate(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.validateErr
}

// CallCount returns how often key (with "@version" when versioned) was resolved.
func (f *FakeProvider) CallCount(key string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.callCount[key]
}
