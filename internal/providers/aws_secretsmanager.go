package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	dserrors "github.com/systmms/secretmgr/internal/errors"
	"github.com/systmms/secretmgr/pkg/provider"
)

// SecretsManagerClientAPI defines the AWS Secrets Manager operations used.
// This allows for mocking in tests
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// AWSSecretsManagerProvider implements the provider interface for AWS Secrets Manager
type AWSSecretsManagerProvider struct {
	name     string
	client   SecretsManagerClientAPI
	settings awsSettings
}

// ProviderOption is a functional option for configuring providers
type ProviderOption func(*AWSSecretsManagerProvider)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) ProviderOption {
	return func(p *AWSSecretsManagerProvider) {
		p.client = client
	}
}

// NewAWSSecretsManagerProvider creates a new AWS Secrets Manager provider
func NewAWSSecretsManagerProvider(name string, providerConfig map[string]interface{}, opts ...ProviderOption) (*AWSSecretsManagerProvider, error) {
	p := &AWSSecretsManagerProvider{
		name:     name,
		settings: parseAWSSettings(providerConfig),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		cfg, err := loadAWSConfig(context.Background(), p.settings)
		if err != nil {
			return nil, err
		}
		var clientOpts []func(*secretsmanager.Options)
		if endpoint := p.settings.Endpoint; endpoint != "" {
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = aws.String(endpoint)
			})
		}
		p.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}
	return p, nil
}

// Name returns the provider name
func (p *AWSSecretsManagerProvider) Name() string {
	return p.name
}

// Resolve retrieves a secret. Keys may carry a JSON path ("name#.field");
// ref.Version selects a version id or a staging label such as AWSPREVIOUS.
func (p *AWSSecretsManagerProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	secretName, jsonPath := splitJSONPath(ref.Key)

	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	}
	if ref.Version != "" && ref.Version != "latest" {
		if isVersionID(ref.Version) {
			input.VersionId = aws.String(ref.Version)
		} else {
			input.VersionStage = aws.String(ref.Version)
		}
	}

	result, err := p.client.GetSecretValue(ctx, input)
	if err != nil {
		return provider.SecretValue{}, p.handleError(err, secretName)
	}

	var secretString string
	switch {
	case result.SecretString != nil:
		secretString = *result.SecretString
	case result.SecretBinary != nil:
		secretString = string(result.SecretBinary)
	default:
		return provider.SecretValue{}, fmt.Errorf("secret '%s': %w", secretName, ErrEmptySecret)
	}

	if secretString, err = applyJSONPath(secretString, jsonPath); err != nil {
		return provider.SecretValue{}, err
	}

	metadata := map[string]string{
		"provider":    p.name,
		"secret_name": secretName,
		"region":      p.settings.Region,
	}
	if len(result.VersionStages) > 0 {
		metadata["version_stage"] = result.VersionStages[0]
	}

	sv := provider.SecretValue{Value: secretString, Metadata: metadata}
	if result.VersionId != nil {
		sv.Version = *result.VersionId
	}
	if result.CreatedDate != nil {
		sv.UpdatedAt = *result.CreatedDate
	}
	return sv, nil
}

// Validate checks if AWS credentials are configured and accessible
func (p *AWSSecretsManagerProvider) Validate(ctx context.Context) error {
	_, err := p.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return provider.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("AWS authentication failed: %v", err),
		}
	}
	return nil
}

func (p *AWSSecretsManagerProvider) handleError(err error, secretName string) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return &provider.NotFoundError{Provider: p.name, Key: secretName}
	}
	if isAWSAuthError(err) {
		return provider.AuthError{Provider: p.name, Message: err.Error()}
	}
	return dserrors.ProviderError("aws.secretsmanager", "get secret value", err)
}

// isAWSAuthError checks the API error code of an AWS failure
func isAWSAuthError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "AccessDeniedException", "AccessDenied", "UnrecognizedClientException",
		"InvalidSignatureException", "ExpiredTokenException", "UnauthorizedOperation":
		return true
	}
	return false
}

// isVersionID reports whether version looks like a version UUID
func isVersionID(version string) bool {
	return len(version) == 36 && strings.Count(version, "-") == 4
}
