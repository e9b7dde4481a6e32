package providers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/systmms/secretmgr/internal/providers"
	"github.com/systmms/secretmgr/pkg/provider"
)

type stubKeychain map[string]string

func (s stubKeychain) Get(service, account string) (string, error) {
	if v, ok := s[service+"/"+account]; ok {
		return v, nil
	}
	if service == "locked" {
		return "", errors.New("keychain is locked")
	}
	return "", keyring.ErrNotFound
}

func TestParseKeychainReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key         string
		service     string
		account     string
		errContains string
	}{
		{key: "secretmgr/totp", service: "secretmgr", account: "totp"},
		{key: " svc / acct/with/slash ", service: "svc", account: "acct/with/slash"},
		{key: "noslash", errContains: "service/account"},
		{key: "/acct", errContains: "service cannot be empty"},
		{key: "svc/", errContains: "account cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			ref, err := providers.ParseKeychainReference(tt.key)
			if tt.errContains != "" {
				assert.ErrorContains(t, err, tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.service, ref.Service)
			assert.Equal(t, tt.account, ref.Account)
		})
	}
}

func TestKeychainProvider_WithClient(t *testing.T) {
	t.Parallel()

	client := stubKeychain{"com.example.secretmgr/totp": "beef"}
	p := providers.NewKeychainProviderWithClient("kc", map[string]interface{}{"service_prefix": "com.example"}, client)
	ctx := context.Background()

	v, err := p.Resolve(ctx, provider.Reference{Key: "secretmgr/totp"})
	require.NoError(t, err)
	assert.Equal(t, "beef", v.Value)
	assert.Equal(t, "com.example.secretmgr", v.Metadata["service"])

	// prefix is not applied twice
	v, err = p.Resolve(ctx, provider.Reference{Key: "com.example.secretmgr/totp"})
	require.NoError(t, err)
	assert.Equal(t, "beef", v.Value)

	_, err = p.Resolve(ctx, provider.Reference{Key: "secretmgr/missing"})
	assert.True(t, provider.IsNotFound(err))

	plain := providers.NewKeychainProviderWithClient("kc", nil, client)
	_, err = plain.Resolve(ctx, provider.Reference{Key: "locked/x"})
	var kcErr *providers.KeychainError
	require.ErrorAs(t, err, &kcErr)
	assert.Equal(t, "query", kcErr.Op)
}

// Uses the process-wide go-keyring mock, so it does not run in parallel.
func TestKeychainProvider_GoKeyring(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("secretmgr", "totp_master_key", "0123456789abcdef"))

	p := providers.NewKeychainProvider("kc", nil)
	v, err := p.Resolve(context.Background(), provider.Reference{Key: "secretmgr/totp_master_key"})
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", v.Value)

	_, err = p.Resolve(context.Background(), provider.Reference{Key: "secretmgr/other"})
	assert.True(t, provider.IsNotFound(err))
}
