package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	dserrors "github.com/systmms/secretmgr/internal/errors"
	"github.com/systmms/secretmgr/internal/logging"
	"github.com/systmms/secretmgr/pkg/provider"
)

// AzureKeyVaultClientAPI defines the Azure Key Vault operations used.
// This allows for mocking in tests
type AzureKeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureKeyVaultProvider implements the Provider interface for Azure Key Vault
type AzureKeyVaultProvider struct {
	name     string
	client   AzureKeyVaultClientAPI
	logger   *logging.Logger
	config   AzureKeyVaultConfig
	vaultURL string
}

// AzureKeyVaultConfig holds Azure Key Vault-specific configuration
type AzureKeyVaultConfig struct {
	VaultURL           string
	TenantID           string
	ClientID           string
	ClientSecret       string
	UseManagedIdentity bool
	UserAssignedID     string
}

// AzureProviderOption is a functional option for configuring Azure providers
type AzureProviderOption func(*AzureKeyVaultProvider)

// WithAzureKeyVaultClient sets a custom Azure Key Vault client (for testing)
func WithAzureKeyVaultClient(client AzureKeyVaultClientAPI) AzureProviderOption {
	return func(p *AzureKeyVaultProvider) {
		p.client = client
	}
}

// NewAzureKeyVaultProvider creates a new Azure Key Vault provider
func NewAzureKeyVaultProvider(name string, configMap map[string]interface{}, opts ...AzureProviderOption) (*AzureKeyVaultProvider, error) {
	config := AzureKeyVaultConfig{
		VaultURL:           stringOption(configMap, "vault_url"),
		TenantID:           stringOption(configMap, "tenant_id"),
		ClientID:           stringOption(configMap, "client_id"),
		ClientSecret:       stringOption(configMap, "client_secret"),
		UseManagedIdentity: boolOption(configMap, "use_managed_identity", false),
		UserAssignedID:     stringOption(configMap, "user_assigned_identity_id"),
	}

	if config.VaultURL == "" {
		return nil, dserrors.ConfigError{
			Field:      "vault_url",
			Message:    "vault_url is required for Azure Key Vault",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	if u, err := url.Parse(config.VaultURL); err != nil || u.Scheme != "https" || u.Host == "" {
		return nil, dserrors.ConfigError{
			Field:      "vault_url",
			Value:      config.VaultURL,
			Message:    "Invalid vault_url format",
			Suggestion: "Use format: https://vault-name.vault.azure.net/",
		}
	}

	p := &AzureKeyVaultProvider{
		name:     name,
		logger:   logging.Discard(),
		config:   config,
		vaultURL: config.VaultURL,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := createAzureKeyVaultClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Key Vault client: %w", err)
		}
		p.client = client
	}
	return p, nil
}

// createAzureKeyVaultClient creates an Azure Key Vault client with appropriate authentication
func createAzureKeyVaultClient(config AzureKeyVaultConfig) (*azsecrets.Client, error) {
	var cred azcore.TokenCredential
	var err error

	switch {
	case config.UseManagedIdentity && config.UserAssignedID != "":
		cred, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(config.UserAssignedID),
		})
	case config.UseManagedIdentity:
		cred, err = azidentity.NewManagedIdentityCredential(nil)
	case config.ClientSecret != "":
		cred, err = azidentity.NewClientSecretCredential(config.TenantID, config.ClientID, config.ClientSecret, nil)
	default:
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return azsecrets.NewClient(config.VaultURL, cred, nil)
}

// Name returns the provider name
func (p *AzureKeyVaultProvider) Name() string {
	return p.name
}

// Resolve fetches a secret; keys may be "name", "name/version" or carry a
// JSON path ("name#.field").
func (p *AzureKeyVaultProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	key, jsonPath := splitJSONPath(ref.Key)
	secretName, version := key, ref.Version
	if idx := strings.Index(key, "/"); idx != -1 {
		secretName, version = key[:idx], key[idx+1:]
	}

	p.logger.Debug("Accessing Azure Key Vault secret: %s", logging.Secret(secretName))

	resp, err := p.client.GetSecret(ctx, secretName, version, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			switch respErr.StatusCode {
			case http.StatusNotFound:
				return provider.SecretValue{}, &provider.NotFoundError{Provider: p.name, Key: ref.Key}
			case http.StatusUnauthorized, http.StatusForbidden:
				return provider.SecretValue{}, provider.AuthError{Provider: p.name, Message: respErr.Error()}
			}
		}
		return provider.SecretValue{}, dserrors.ProviderError("azure.keyvault", "get secret", err)
	}

	if resp.Value == nil || *resp.Value == "" {
		return provider.SecretValue{}, fmt.Errorf("secret '%s': %w", secretName, ErrEmptySecret)
	}
	value, err := applyJSONPath(*resp.Value, jsonPath)
	if err != nil {
		return provider.SecretValue{}, err
	}

	sv := provider.SecretValue{
		Value: value,
		Metadata: map[string]string{
			"provider":  p.name,
			"vault_url": p.vaultURL,
		},
	}
	if resp.ID != nil {
		sv.Version = resp.ID.Version()
	}
	if resp.Attributes != nil && resp.Attributes.Updated != nil {
		sv.UpdatedAt = *resp.Attributes.Updated
	}
	return sv, nil
}

// Validate checks the vault with a lookup that is expected to miss
func (p *AzureKeyVaultProvider) Validate(ctx context.Context) error {
	_, err := p.client.GetSecret(ctx, "secretmgr-validate", "", nil)
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return nil
		case http.StatusUnauthorized, http.StatusForbidden:
			return provider.AuthError{Provider: p.name, Message: respErr.Error()}
		}
	}
	return fmt.Errorf("azure key vault validation failed: %w", err)
}
