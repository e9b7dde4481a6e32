package providers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/ssocreds"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// awsSettings are the connection options shared by the AWS providers.
type awsSettings struct {
	Region          string
	Profile         string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	AssumeRole      string
	ExternalID      string

	// IAM Identity Center; a token cached by `aws sso login` is required.
	SSOStartURL  string
	SSORegion    string
	SSOSession   string
	SSOAccountID string
	SSORoleName  string
}

func (s awsSettings) usesSSO() bool {
	return s.SSOStartURL != "" && s.SSOAccountID != "" && s.SSORoleName != ""
}

func parseAWSSettings(config map[string]interface{}) awsSettings {
	s := awsSettings{
		Region:          stringOption(config, "region"),
		Profile:         stringOption(config, "profile"),
		Endpoint:        stringOption(config, "endpoint"),
		AccessKeyID:     stringOption(config, "access_key_id"),
		SecretAccessKey: stringOption(config, "secret_access_key"),
		AssumeRole:      stringOption(config, "assume_role"),
		ExternalID:      stringOption(config, "external_id"),
		SSOStartURL:     stringOption(config, "sso_start_url"),
		SSORegion:       stringOption(config, "sso_region"),
		SSOSession:      stringOption(config, "sso_session"),
		SSOAccountID:    stringOption(config, "sso_account_id"),
		SSORoleName:     stringOption(config, "sso_role_name"),
	}
	if s.Region == "" {
		s.Region = "us-east-1"
	}
	return s
}

// loadAWSConfig resolves credentials from the default chain, optional static
// keys or SSO, and an optional role to assume through STS.
func loadAWSConfig(ctx context.Context, s awsSettings) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s.Region)}
	if s.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(s.Profile))
	}
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if s.usesSSO() {
		creds, err := newSSOCredentials(cfg, s)
		if err != nil {
			return aws.Config{}, err
		}
		cfg.Credentials = aws.NewCredentialsCache(creds)
	}

	if s.AssumeRole != "" {
		stsClient := sts.NewFromConfig(cfg)
		roleCreds := stscreds.NewAssumeRoleProvider(stsClient, s.AssumeRole, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = "secretmgr"
			if s.ExternalID != "" {
				o.ExternalID = aws.String(s.ExternalID)
			}
		})
		cfg.Credentials = aws.NewCredentialsCache(roleCreds)
	}
	return cfg, nil
}

// newSSOCredentials exchanges the cached SSO token for role credentials.
func newSSOCredentials(cfg aws.Config, s awsSettings) (aws.CredentialsProvider, error) {
	ssoCfg := cfg.Copy()
	if s.SSORegion != "" {
		ssoCfg.Region = s.SSORegion
	}

	cacheKey := s.SSOStartURL
	if s.SSOSession != "" {
		cacheKey = s.SSOSession
	}
	cachePath, err := ssocreds.StandardCachedTokenFilepath(cacheKey)
	if err != nil {
		return nil, fmt.Errorf("failed to locate SSO token cache: %w", err)
	}

	tokens := ssocreds.NewSSOTokenProvider(ssooidc.NewFromConfig(ssoCfg), cachePath)
	return ssocreds.New(sso.NewFromConfig(ssoCfg), s.SSOAccountID, s.SSORoleName, s.SSOStartURL,
		func(o *ssocreds.Options) {
			o.SSOTokenProvider = tokens
		}), nil
}
