package providers

import (
	"context"
	"os"
	"strings"

	"github.com/systmms/secretmgr/pkg/provider"
)

// EnvProvider reads secrets from the process environment.
type EnvProvider struct {
	name   string
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvProvider creates a provider reading prefix+key from the environment.
func NewEnvProvider(name, prefix string) *EnvProvider {
	return &EnvProvider{name: name, prefix: prefix, lookup: os.LookupEnv}
}

// Name returns the provider's name
func (e *EnvProvider) Name() string {
	return e.name
}

// Resolve returns the variable's value. Unset and empty variables are both
// reported as not found.
func (e *EnvProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	if err := ctx.Err(); err != nil {
		return provider.SecretValue{}, err
	}
	variable := e.prefix + ref.Key
	value, ok := e.lookup(variable)
	if !ok || strings.TrimSpace(value) == "" {
		return provider.SecretValue{}, &provider.NotFoundError{Provider: e.name, Key: variable}
	}
	return provider.SecretValue{
		Value:    value,
		Metadata: map[string]string{"provider": e.name, "variable": variable},
	}, nil
}

// Validate always succeeds
func (e *EnvProvider) Validate(ctx context.Context) error {
	return nil
}
