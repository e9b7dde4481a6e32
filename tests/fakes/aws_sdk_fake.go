package fakes

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// FakeSecretsManagerClient is an in-memory AWS Secrets Manager client.
// Secrets are keyed by name, or by "name@stage" for staged versions.
type FakeSecretsManagerClient struct {
	Secrets map[string]*secretsmanager.GetSecretValueOutput
	// Errors maps secret names to errors to return
	Errors map[string]error
	// ListErr is returned by ListSecrets
	ListErr error
	// Calls records every GetSecretValue input
	Calls []*secretsmanager.GetSecretValueInput
}

// NewFakeSecretsManagerClient creates an empty client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets: make(map[string]*secretsmanager.GetSecretValueOutput),
		Errors:  make(map[string]error),
	}
}

// AddSecretString adds a string secret; stage may be empty.
func (f *FakeSecretsManagerClient) AddSecretString(name, stage, value string) {
	key := name
	stages := []string{"AWSCURRENT"}
	if stage != "" {
		key = name + "@" + stage
		stages = []string{stage}
	}
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.Secrets[key] = &secretsmanager.GetSecretValueOutput{
		Name:          aws.String(name),
		SecretString:  aws.String(value),
		VersionId:     aws.String("11111111-2222-3333-4444-555555555555"),
		VersionStages: stages,
		CreatedDate:   &created,
	}
}

// GetSecretValue implements the client interface
func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.Calls = append(f.Calls, params)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := aws.ToString(params.SecretId)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	key := name
	if stage := aws.ToString(params.VersionStage); stage != "" && stage != "AWSCURRENT" {
		key = name + "@" + stage
	}
	out, ok := f.Secrets[key]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Secrets Manager can't find the specified secret.")}
	}
	return out, nil
}

// ListSecrets implements the client interface
func (f *FakeSecretsManagerClient) ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return &secretsmanager.ListSecretsOutput{}, nil
}

// FakeSSMClient is an in-memory SSM Parameter Store client.
type FakeSSMClient struct {
	// Parameters maps names (optionally "name:version") to values
	Parameters map[string]string
	Errors     map[string]error
	// DescribeErr is returned by DescribeParameters
	DescribeErr error
	// Calls records every GetParameter input
	Calls []*ssm.GetParameterInput
}

// NewFakeSSMClient creates an empty client
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]string),
		Errors:     make(map[string]error),
	}
}

// GetParameter implements the client interface
func (f *FakeSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.Calls = append(f.Calls, params)
	name := aws.ToString(params.Name)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	value, ok := f.Parameters[name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("parameter not found")}
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:    aws.String(name),
			Value:   aws.String(value),
			Type:    ssmtypes.ParameterTypeSecureString,
			Version: 3,
		},
	}, nil
}

// DescribeParameters implements the client interface
func (f *FakeSSMClient) DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error) {
	if f.DescribeErr != nil {
		return nil, f.DescribeErr
	}
	return &ssm.DescribeParametersOutput{}, nil
}
