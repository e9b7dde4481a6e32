package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	dserrors "github.com/systmms/secretmgr/internal/errors"
	"github.com/systmms/secretmgr/pkg/provider"
)

// timeoutProvider bounds every call of the wrapped provider.
type timeoutProvider struct {
	provider.Provider
	providerType string
	timeoutMs    int
}

// WithTimeout wraps p so that Resolve and Validate give up after timeoutMs.
func WithTimeout(p provider.Provider, providerType string, timeoutMs int) provider.Provider {
	if timeoutMs <= 0 {
		return p
	}
	return &timeoutProvider{Provider: p, providerType: providerType, timeoutMs: timeoutMs}
}

func (t *timeoutProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(t.timeoutMs)*time.Millisecond)
	defer cancel()

	v, err := t.Provider.Resolve(ctx, ref)
	return v, t.wrap(ctx, err)
}

func (t *timeoutProvider) Validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(t.timeoutMs)*time.Millisecond)
	defer cancel()

	return t.wrap(ctx, t.Provider.Validate(ctx))
}

// wrap adds a suggestion when our own deadline fired.
func (t *timeoutProvider) wrap(ctx context.Context, err error) error {
	if err == nil || !errors.Is(ctx.Err(), context.DeadlineExceeded) || !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return dserrors.UserError{
		Message:    fmt.Sprintf("%s provider operation timed out", t.Name()),
		Details:    fmt.Sprintf("Operation exceeded %dms timeout", t.timeoutMs),
		Suggestion: timeoutSuggestion(t.providerType, t.timeoutMs),
		Err:        err,
	}
}

func timeoutSuggestion(providerType string, timeoutMs int) string {
	timeoutSec := timeoutMs / 1000

	switch providerType {
	case "aws.secretsmanager", "aws.ssm":
		if timeoutSec < 5 {
			return "AWS API can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check AWS connectivity and credentials. Verify region is correct"
	case "gcp.secretmanager":
		if timeoutSec < 5 {
			return "Google Cloud API can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check Google Cloud connectivity and authentication"
	case "azure.keyvault":
		if timeoutSec < 5 {
			return "Azure API can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check Azure connectivity and authentication"
	case "keychain":
		return "The keychain may be waiting for an unlock prompt. Unlock it or use a different provider"
	}

	if timeoutSec < 10 {
		return "Provider operation timed out. Try increasing timeout_ms in your provider configuration"
	}
	return "Check network connectivity and provider authentication. Consider increasing timeout_ms if provider is consistently slow"
}
