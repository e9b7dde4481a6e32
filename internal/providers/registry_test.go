package providers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretmgr/internal/config"
	dserrors "github.com/systmms/secretmgr/internal/errors"
	"github.com/systmms/secretmgr/internal/providers"
	"github.com/systmms/secretmgr/pkg/provider"
	"github.com/systmms/secretmgr/tests/fakes"
)

func TestRegistry_SupportedTypes(t *testing.T) {
	t.Parallel()

	r := providers.NewRegistry()
	assert.Equal(t, []string{
		"akeyless",
		"aws.secretsmanager",
		"aws.ssm",
		"azure.keyvault",
		"env",
		"file",
		"gcp.secretmanager",
		"keychain",
		"literal",
	}, r.GetSupportedTypes())
	assert.True(t, r.IsSupported("env"))
	assert.False(t, r.IsSupported("bitwarden"))
}

func TestRegistry_CreateProvider(t *testing.T) {
	t.Parallel()

	r := providers.NewRegistry()

	p, err := r.CreateProvider("inline", config.ProviderConfig{
		Type: "literal",
		Config: map[string]interface{}{
			"values": map[string]interface{}{"master": "abcd", "ignored": 42},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "inline", p.Name())

	v, err := p.Resolve(context.Background(), provider.Reference{Key: "master"})
	require.NoError(t, err)
	assert.Equal(t, "abcd", v.Value)

	_, err = p.Resolve(context.Background(), provider.Reference{Key: "ignored"})
	assert.True(t, provider.IsNotFound(err))

	_, err = r.CreateProvider("x", config.ProviderConfig{Type: "vault"})
	assert.EqualError(t, err, "unknown provider type: vault")

	_, err = r.CreateProvider("f", config.ProviderConfig{Type: "file"})
	assert.Error(t, err)
}

func TestRegistry_CreateAll(t *testing.T) {
	t.Parallel()

	r := providers.NewRegistry()
	all, err := r.CreateAll(map[string]config.ProviderConfig{
		"a": {Type: "literal"},
		"b": {Type: "env", Config: map[string]interface{}{"prefix": "SECRETMGR_"}},
	})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "b", all["b"].Name())

	_, err = r.CreateAll(map[string]config.ProviderConfig{"bad": {Type: "nope"}})
	assert.ErrorContains(t, err, `provider "bad"`)
}

func TestRegistry_CustomFactory(t *testing.T) {
	t.Parallel()

	r := providers.NewRegistry()
	fake := fakes.NewFakeProvider("custom").WithSecret("k", "v")
	r.RegisterFactory("custom", func(name string, _ map[string]interface{}) (provider.Provider, error) {
		return fake, nil
	})
	p, err := r.CreateProvider("custom", config.ProviderConfig{Type: "custom"})
	require.NoError(t, err)

	v, err := p.Resolve(context.Background(), provider.Reference{Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "v", v.Value)
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	slow := fakes.NewFakeProvider("slow").WithSecret("k", "v").WithDelay(time.Second)
	p := providers.WithTimeout(slow, "aws.secretsmanager", 20)

	_, err := p.Resolve(context.Background(), provider.Reference{Key: "k"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var userErr dserrors.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Contains(t, userErr.Details, "20ms")
	assert.Contains(t, userErr.Suggestion, "timeout_ms")

	fast := fakes.NewFakeProvider("fast").WithSecret("k", "v")
	v, err := providers.WithTimeout(fast, "literal", 1000).Resolve(context.Background(), provider.Reference{Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "v", v.Value)

	assert.Same(t, fast, providers.WithTimeout(fast, "literal", 0))
}

func TestWithTimeout_PassesThroughOtherErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	p := providers.WithTimeout(fakes.NewFakeProvider("f").WithError("k", boom), "env", 1000)
	_, err := p.Resolve(context.Background(), provider.Reference{Key: "k"})
	assert.Same(t, boom, err)

	_, err = p.Resolve(context.Background(), provider.Reference{Key: "missing"})
	assert.True(t, provider.IsNotFound(err))
}
