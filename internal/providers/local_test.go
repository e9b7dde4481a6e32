package providers_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretmgr/internal/providers"
	"github.com/systmms/secretmgr/pkg/provider"
)

func TestLiteralProvider(t *testing.T) {
	t.Parallel()

	p := providers.NewLiteralProvider("lit", map[string]string{"totp": "00ff"})
	provider.RunContractTests(t, provider.ContractTest{
		CreateProvider: func(t *testing.T) provider.Provider {
			return providers.NewLiteralProvider("lit", map[string]string{})
		},
	})

	v, err := p.Resolve(context.Background(), provider.Reference{Key: "totp"})
	require.NoError(t, err)
	assert.Equal(t, "00ff", v.Value)
	assert.Equal(t, "literal", v.Metadata["type"])
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("SECRETMGR_TEST_TOTP", "0xabcdef")
	t.Setenv("SECRETMGR_TEST_BLANK", "   ")

	p := providers.NewEnvProvider("env", "SECRETMGR_TEST_")
	ctx := context.Background()

	v, err := p.Resolve(ctx, provider.Reference{Key: "TOTP"})
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef", v.Value)
	assert.Equal(t, "SECRETMGR_TEST_TOTP", v.Metadata["variable"])

	_, err = p.Resolve(ctx, provider.Reference{Key: "BLANK"})
	assert.True(t, provider.IsNotFound(err))

	_, err = p.Resolve(ctx, provider.Reference{Key: "UNSET"})
	assert.True(t, provider.IsNotFound(err))
	assert.NoError(t, p.Validate(ctx))
}

func TestFileProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "totp"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "totp", "master"), []byte("0123abcd\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), []byte("\n"), 0600))

	p, err := providers.NewFileProvider("files", dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, p.Validate(ctx))

	v, err := p.Resolve(ctx, provider.Reference{Key: "totp/master"})
	require.NoError(t, err)
	assert.Equal(t, "0123abcd", v.Value)
	assert.False(t, v.UpdatedAt.IsZero())

	tests := []struct {
		name     string
		key      string
		notFound bool
	}{
		{"missing file", "totp/old", true},
		{"empty file", "empty", true},
		{"escape", "../etc/passwd", false},
		{"base dir itself", ".", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Resolve(ctx, provider.Reference{Key: tt.key})
			require.Error(t, err)
			assert.Equal(t, tt.notFound, provider.IsNotFound(err))
		})
	}

	missing, err := providers.NewFileProvider("files", filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Error(t, missing.Validate(ctx))

	_, err = providers.NewFileProvider("files", "")
	assert.ErrorContains(t, err, "dir is required")
}
