package providers

import (
	"context"
	"time"

	"github.com/systmms/secretmgr/pkg/provider"
)

// LiteralProvider serves values written directly in the configuration.
// It is meant for development and tests.
type LiteralProvider struct {
	name   string
	values map[string]string
}

// NewLiteralProvider creates a new literal provider with predefined values
func NewLiteralProvider(name string, values map[string]string) *LiteralProvider {
	if values == nil {
		values = make(map[string]string)
	}
	return &LiteralProvider{
		name:   name,
		values: values,
	}
}

// Name returns the provider's name
func (l *LiteralProvider) Name() string {
	return l.name
}

// Resolve retrieves a literal value
func (l *LiteralProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	if err := ctx.Err(); err != nil {
		return provider.SecretValue{}, err
	}
	value, exists := l.values[ref.Key]
	if !exists {
		return provider.SecretValue{}, &provider.NotFoundError{
			Provider: l.name,
			Key:      ref.Key,
		}
	}

	return provider.SecretValue{
		Value:     value,
		Version:   "1",
		UpdatedAt: time.Now(),
		Metadata: map[string]string{
			"provider": l.name,
			"type":     "literal",
		},
	}, nil
}

// Validate always succeeds
func (l *LiteralProvider) Validate(ctx context.Context) error {
	return nil
}
