package providers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	dserrors "github.com/systmms/secretmgr/internal/errors"
	"github.com/systmms/secretmgr/internal/logging"
	"github.com/systmms/secretmgr/pkg/provider"
)

// SSMClientAPI defines the AWS SSM Parameter Store operations used.
// This allows for mocking in tests
type SSMClientAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error)
}

// AWSSSMProvider implements the Provider interface for AWS Systems Manager Parameter Store
type AWSSSMProvider struct {
	name            string
	client          SSMClientAPI
	logger          *logging.Logger
	settings        awsSettings
	withDecryption  bool
	parameterPrefix string
}

// SSMProviderOption is a functional option for configuring SSM providers
type SSMProviderOption func(*AWSSSMProvider)

// WithSSMClient sets a custom SSM client (for testing)
func WithSSMClient(client SSMClientAPI) SSMProviderOption {
	return func(p *AWSSSMProvider) {
		p.client = client
	}
}

// WithSSMLogger sets the debug logger
func WithSSMLogger(logger *logging.Logger) SSMProviderOption {
	return func(p *AWSSSMProvider) {
		p.logger = logger
	}
}

// NewAWSSSMProvider creates a new AWS SSM Parameter Store provider
func NewAWSSSMProvider(name string, configMap map[string]interface{}, opts ...SSMProviderOption) (*AWSSSMProvider, error) {
	p := &AWSSSMProvider{
		name:            name,
		logger:          logging.Discard(),
		settings:        parseAWSSettings(configMap),
		withDecryption:  boolOption(configMap, "with_decryption", true),
		parameterPrefix: stringOption(configMap, "parameter_prefix"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		cfg, err := loadAWSConfig(context.Background(), p.settings)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSM client: %w", err)
		}
		var clientOpts []func(*ssm.Options)
		if endpoint := p.settings.Endpoint; endpoint != "" {
			clientOpts = append(clientOpts, func(o *ssm.Options) {
				o.BaseEndpoint = aws.String(endpoint)
			})
		}
		p.client = ssm.NewFromConfig(cfg, clientOpts...)
	}
	return p, nil
}

// Name returns the provider name
func (p *AWSSSMProvider) Name() string {
	return p.name
}

// Resolve fetches a parameter. A numeric ref.Version selects that version.
func (p *AWSSSMProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	parameterName := p.parameterPrefix + ref.Key
	if ref.Version != "" {
		if _, err := strconv.Atoi(ref.Version); err != nil {
			return provider.SecretValue{}, fmt.Errorf("ssm parameter version must be numeric, got %q", ref.Version)
		}
		parameterName += ":" + ref.Version
	}

	p.logger.Debug("Fetching parameter from SSM: %s", logging.Secret(parameterName))

	result, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(parameterName),
		WithDecryption: aws.Bool(p.withDecryption),
	})
	if err != nil {
		if isParameterNotFoundError(err) {
			return provider.SecretValue{}, &provider.NotFoundError{Provider: p.name, Key: parameterName}
		}
		if isAWSAuthError(err) {
			return provider.SecretValue{}, provider.AuthError{Provider: p.name, Message: err.Error()}
		}
		return provider.SecretValue{}, dserrors.ProviderError("aws.ssm", "get parameter", err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return provider.SecretValue{}, fmt.Errorf("parameter '%s': %w", parameterName, ErrEmptySecret)
	}

	sv := provider.SecretValue{
		Value: *result.Parameter.Value,
		Metadata: map[string]string{
			"source": "ssm:" + parameterName,
			"type":   string(result.Parameter.Type),
		},
	}
	if result.Parameter.Version != 0 {
		sv.Version = strconv.FormatInt(result.Parameter.Version, 10)
	}
	if result.Parameter.LastModifiedDate != nil {
		sv.UpdatedAt = *result.Parameter.LastModifiedDate
	}
	return sv, nil
}

// Validate checks that the caller may list parameters
func (p *AWSSSMProvider) Validate(ctx context.Context) error {
	_, err := p.client.DescribeParameters(ctx, &ssm.DescribeParametersInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return provider.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("AWS SSM access check failed: %v", err),
		}
	}
	return nil
}

// isParameterNotFoundError checks if the error is a parameter not found error
func isParameterNotFoundError(err error) bool {
	var notFound *types.ParameterNotFound
	var versionNotFound *types.ParameterVersionNotFound
	return errors.As(err, &notFound) || errors.As(err, &versionNotFound)
}
