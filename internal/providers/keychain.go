package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/systmms/secretmgr/internal/providers/contracts"
	"github.com/systmms/secretmgr/pkg/provider"
)

// KeychainProvider implements the provider interface for OS keychains
// (macOS Keychain, Linux Secret Service, Windows Credential Manager).
type KeychainProvider struct {
	name          string
	servicePrefix string
	client        contracts.KeychainClient
}

// keyringClient is the go-keyring backed KeychainClient.
type keyringClient struct{}

func (keyringClient) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

// NewKeychainProvider creates a new keychain provider
func NewKeychainProvider(name string, config map[string]interface{}) *KeychainProvider {
	return NewKeychainProviderWithClient(name, config, keyringClient{})
}

// NewKeychainProviderWithClient creates a keychain provider with a custom client.
func NewKeychainProviderWithClient(name string, config map[string]interface{}, client contracts.KeychainClient) *KeychainProvider {
	return &KeychainProvider{
		name:          name,
		servicePrefix: stringOption(config, "service_prefix"),
		client:        client,
	}
}

// Name returns the provider name
func (kc *KeychainProvider) Name() string {
	return kc.name
}

// Resolve retrieves a secret from the OS keychain. Keys have the form
// service/account.
func (kc *KeychainProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	if err := ctx.Err(); err != nil {
		return provider.SecretValue{}, err
	}
	kcRef, err := ParseKeychainReference(ref.Key)
	if err != nil {
		return provider.SecretValue{}, fmt.Errorf("invalid keychain reference '%s': %w", ref.Key, err)
	}
	service := kc.applyServicePrefix(kcRef.Service)

	value, err := kc.client.Get(service, kcRef.Account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return provider.SecretValue{}, &provider.NotFoundError{
				Provider: kc.name,
				Key:      ref.Key,
			}
		}
		return provider.SecretValue{}, &KeychainError{
			Op:      "query",
			Service: service,
			Account: kcRef.Account,
			Err:     err,
		}
	}

	return provider.SecretValue{
		Value: value,
		Metadata: map[string]string{
			"provider": kc.name,
			"service":  service,
			"account":  kcRef.Account,
		},
	}, nil
}

// Validate always succeeds; go-keyring reports an unavailable keychain on first use.
func (kc *KeychainProvider) Validate(ctx context.Context) error {
	return nil
}

// applyServicePrefix combines the configured prefix with the service name
func (kc *KeychainProvider) applyServicePrefix(service string) string {
	if kc.servicePrefix == "" || strings.HasPrefix(service, kc.servicePrefix) {
		return service
	}
	return kc.servicePrefix + "." + service
}

// KeychainReference represents a parsed keychain secret reference
type KeychainReference struct {
	Service string
	Account string
}

// ParseKeychainReference parses a keychain reference string
// Format: service/account
func ParseKeychainReference(key string) (*KeychainReference, error) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("keychain reference must be service/account format, got: %s", key)
	}

	service := strings.TrimSpace(parts[0])
	account := strings.TrimSpace(parts[1])
	if service == "" {
		return nil, fmt.Errorf("keychain reference service cannot be empty")
	}
	if account == "" {
		return nil, fmt.Errorf("keychain reference account cannot be empty")
	}

	return &KeychainReference{Service: service, Account: account}, nil
}
