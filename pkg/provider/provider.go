package provider

import (
	"context"
	"errors"
	"time"
)

// Provider resolves secret material from one storage system.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name returns the configured instance name, e.g. "prod-aws".
	Name() string

	// Resolve fetches the value referenced by ref. It returns *NotFoundError
	// when the secret does not exist.
	Resolve(ctx context.Context, ref Reference) (SecretValue, error)

	// Validate checks that the provider is configured and reachable without
	// reading any secret.
	Validate(ctx context.Context) error
}

// Reference addresses a secret inside a provider.
type Reference struct {
	// Provider is the instance name the reference belongs to.
	Provider string

	// Key identifies the secret within the provider's namespace.
	Key string

	// Version selects a specific version. Empty means latest.
	Version string
}

// String renders the reference the way it is written in configuration.
func (r Reference) String() string {
	s := r.Provider + ":" + r.Key
	if r.Version != "" {
		s += "@" + r.Version
	}
	return s
}

// SecretValue is a resolved secret.
type SecretValue struct {
	// Value is the raw material. Never log it.
	Value string

	// Version identifies the version that was read, if the provider has one.
	Version string

	// UpdatedAt is the last modification time, zero when unknown.
	UpdatedAt time.Time

	// Metadata carries provider-specific non-sensitive details.
	Metadata map[string]string
}

// NotFoundError is returned when the referenced secret does not exist.
type NotFoundError struct {
	Provider string
	Key      string
}

func (e *NotFoundError) Error() string {
	return "secret not found: " + e.Key + " in " + e.Provider
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AuthError indicates that authentication to the provider failed.
type AuthError struct {
	Provider string
	Message  string
}

func (e AuthError) Error() string {
	return "authentication failed for " + e.Provider + ": " + e.Message
}
