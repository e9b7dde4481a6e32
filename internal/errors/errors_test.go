package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/secretmgr/internal/errors"
)

func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Failed to load configuration",
		Details:    "open secretmgr.yaml: no such file",
		Suggestion: "Pass --config",
	}

	msg := err.Error()
	assert.Contains(t, msg, "Failed to load configuration")
	assert.Contains(t, msg, "Details: open secretmgr.yaml")
	assert.Contains(t, msg, "💡 Try: Pass --config")
}

func TestUserErrorFallsBackToWrapped(t *testing.T) {
	t.Parallel()

	inner := fmt.Errorf("boom")
	err := errors.UserError{Err: inner}

	assert.Equal(t, "boom", err.Error())
	assert.True(t, stderrors.Is(err, inner))
}

func TestUserErrorIncludesCause(t *testing.T) {
	t.Parallel()

	err := errors.ProviderError("aws.secretsmanager", "get secret value", fmt.Errorf("read tcp: connection reset by peer"))
	assert.Contains(t, err.Error(), "aws.secretsmanager provider error during get secret value: read tcp: connection reset by peer")
}

func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "secrets.totp_master_key.from.provider",
		Value:      "vault-prod",
		Message:    "unknown provider",
		Suggestion: "Declare it under providers:",
	}

	msg := err.Error()
	assert.Contains(t, msg, "in field 'secrets.totp_master_key.from.provider'")
	assert.Contains(t, msg, "(value: vault-prod)")
	assert.Contains(t, msg, "unknown provider")
	assert.Contains(t, msg, "Declare it under providers:")
}

func TestProviderErrorSuggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider string
		err      error
		want     string
	}{
		{"aws.secretsmanager", fmt.Errorf("AccessDeniedException: nope"), "IAM permissions"},
		{"gcp.secretmanager", fmt.Errorf("rpc error: code = PermissionDenied"), "secretAccessor"},
		{"azure.keyvault", fmt.Errorf("403 Forbidden"), "access policy"},
		{"file", fmt.Errorf("open /etc/key: permission denied"), "0600"},
		{"env", fmt.Errorf("context deadline exceeded"), "raise timeout_ms"},
		{"env", fmt.Errorf("dial tcp: connection refused"), "Check your network"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Parallel()
			err := errors.ProviderError(tt.provider, "resolve", tt.err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, stderrors.Is(err, tt.err))
		})
	}
}

func TestSimplifyError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.SimplifyError(nil))

	yamlErr := errors.SimplifyError(fmt.Errorf("parse: %w", fmt.Errorf("yaml: line 3: did not find expected key")))
	var cfgErr errors.ConfigError
	assert.True(t, stderrors.As(yamlErr, &cfgErr))

	already := errors.UserError{Message: "keep me"}
	assert.Equal(t, already, errors.SimplifyError(already))

	other := fmt.Errorf("unrelated")
	assert.Equal(t, other, errors.SimplifyError(other))
}
