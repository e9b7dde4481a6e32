package providers

import (
	"fmt"
	"sort"

	"github.com/systmms/secretmgr/internal/config"
	"github.com/systmms/secretmgr/pkg/provider"
)

// Registry manages provider creation and registration
type Registry struct {
	factories map[string]ProviderFactory
}

// ProviderFactory creates a provider instance from configuration
type ProviderFactory func(name string, config map[string]interface{}) (provider.Provider, error)

// NewRegistry creates a new provider registry with built-in providers
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]ProviderFactory),
	}

	registry.RegisterFactory("literal", NewLiteralProviderFactory)
	registry.RegisterFactory("env", NewEnvProviderFactory)
	registry.RegisterFactory("file", NewFileProviderFactory)
	registry.RegisterFactory("keychain", NewKeychainProviderFactory)
	registry.RegisterFactory("aws.secretsmanager", NewAWSSecretsManagerProviderFactory)
	registry.RegisterFactory("aws.ssm", NewAWSSSMProviderFactory)
	registry.RegisterFactory("gcp.secretmanager", NewGCPSecretManagerProviderFactory)
	registry.RegisterFactory("azure.keyvault", NewAzureKeyVaultProviderFactory)
	registry.RegisterFactory("akeyless", NewAkeylessProviderFactory)

	return registry
}

// RegisterFactory registers a provider factory for a given type
func (r *Registry) RegisterFactory(providerType string, factory ProviderFactory) {
	r.factories[providerType] = factory
}

// CreateProvider creates a provider instance from configuration. Every
// Resolve call of the result is bounded by the configured timeout.
func (r *Registry) CreateProvider(name string, cfg config.ProviderConfig) (provider.Provider, error) {
	factory, exists := r.factories[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}

	p, err := factory(name, cfg.Config)
	if err != nil {
		return nil, err
	}
	return WithTimeout(p, cfg.Type, cfg.GetProviderTimeout()), nil
}

// CreateAll builds every provider in the configuration.
func (r *Registry) CreateAll(providers map[string]config.ProviderConfig) (map[string]provider.Provider, error) {
	out := make(map[string]provider.Provider, len(providers))
	for name, cfg := range providers {
		p, err := r.CreateProvider(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}

// GetSupportedTypes returns the supported provider types, sorted
func (r *Registry) GetSupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for providerType := range r.factories {
		types = append(types, providerType)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a provider type is supported
func (r *Registry) IsSupported(providerType string) bool {
	_, exists := r.factories[providerType]
	return exists
}

// Factory functions for built-in providers

// NewLiteralProviderFactory creates a literal provider factory
func NewLiteralProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	values := make(map[string]string)
	if configMap, ok := config["values"].(map[string]interface{}); ok {
		for k, v := range configMap {
			if str, ok := v.(string); ok {
				values[k] = str
			}
		}
	}
	return NewLiteralProvider(name, values), nil
}

// NewEnvProviderFactory creates an environment variable provider factory
func NewEnvProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewEnvProvider(name, stringOption(config, "prefix")), nil
}

// NewFileProviderFactory creates a file provider factory
func NewFileProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewFileProvider(name, stringOption(config, "dir"))
}

// NewKeychainProviderFactory creates a keychain provider factory
func NewKeychainProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewKeychainProvider(name, config), nil
}

// NewAWSSecretsManagerProviderFactory creates an AWS Secrets Manager provider factory
func NewAWSSecretsManagerProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewAWSSecretsManagerProvider(name, config)
}

// NewAWSSSMProviderFactory creates an AWS SSM Parameter Store provider factory
func NewAWSSSMProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewAWSSSMProvider(name, config)
}

// NewGCPSecretManagerProviderFactory creates a GCP Secret Manager provider factory
func NewGCPSecretManagerProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewGCPSecretManagerProvider(name, config)
}

// NewAzureKeyVaultProviderFactory creates an Azure Key Vault provider factory
func NewAzureKeyVaultProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewAzureKeyVaultProvider(name, config)
}

// NewAkeylessProviderFactory creates an Akeyless provider factory
func NewAkeylessProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewAkeylessProvider(name, config)
}
