package fakes

import (
	"context"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeAzureKeyVaultClient is an in-memory Azure Key Vault client.
type FakeAzureKeyVaultClient struct {
	// Secrets maps "name" or "name/version" to values
	Secrets map[string]string
	// Errors maps secret names to errors to return
	Errors map[string]error
}

// NewFakeAzureKeyVaultClient creates an empty client
func NewFakeAzureKeyVaultClient() *FakeAzureKeyVaultClient {
	return &FakeAzureKeyVaultClient{
		Secrets: make(map[string]string),
		Errors:  make(map[string]error),
	}
}

// AzureStatusError builds the error the SDK returns for an HTTP status.
func AzureStatusError(code int) error {
	return &azcore.ResponseError{StatusCode: code, ErrorCode: http.StatusText(code)}
}

// GetSecret implements the client interface
func (f *FakeAzureKeyVaultClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	if err, ok := f.Errors[name]; ok {
		return azsecrets.GetSecretResponse{}, err
	}
	key := name
	if version != "" {
		key = name + "/" + version
	}
	value, ok := f.Secrets[key]
	if !ok {
		return azsecrets.GetSecretResponse{}, AzureStatusError(http.StatusNotFound)
	}
	if version == "" {
		version = "0f0e0d0c0b0a"
	}
	id := azsecrets.ID("https://test.vault.azure.net/secrets/" + name + "/" + version)
	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:    &id,
			Value: to.Ptr(value),
		},
	}, nil
}
