package providers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"

	"github.com/systmms/secretmgr/internal/providers/contracts"
	"github.com/systmms/secretmgr/pkg/provider"
)

// DefaultAkeylessGateway is used when gateway_url is not configured.
const DefaultAkeylessGateway = "https://api.akeyless.io"

// AkeylessConfig holds configuration for the Akeyless provider
type AkeylessConfig struct {
	AccessID   string
	AccessKey  string
	AccessType string
	GatewayURL string
}

// AkeylessProvider resolves static secrets stored in Akeyless.
type AkeylessProvider struct {
	name       string
	client     contracts.AkeylessClient
	tokenCache *TokenCache
}

// NewAkeylessProvider creates an Akeyless provider backed by the official SDK
func NewAkeylessProvider(name string, config map[string]interface{}) (*AkeylessProvider, error) {
	cfg, err := parseAkeylessConfig(config)
	if err != nil {
		return nil, err
	}
	return NewAkeylessProviderWithClient(name, newAkeylessSDKClient(cfg)), nil
}

// NewAkeylessProviderWithClient creates a provider with a custom client.
func NewAkeylessProviderWithClient(name string, client contracts.AkeylessClient) *AkeylessProvider {
	return &AkeylessProvider{
		name:       name,
		client:     client,
		tokenCache: NewTokenCache(),
	}
}

// Name returns the provider name
func (p *AkeylessProvider) Name() string {
	return p.name
}

// Resolve fetches the secret at ref.Key; a numeric ref.Version pins a version.
func (p *AkeylessProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	path := ref.Key
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == "/" {
		return provider.SecretValue{}, fmt.Errorf("akeyless reference path cannot be empty")
	}
	var version *int
	if ref.Version != "" {
		v, err := strconv.Atoi(strings.TrimPrefix(ref.Version, "v"))
		if err != nil {
			return provider.SecretValue{}, fmt.Errorf("akeyless version must be numeric, got %q", ref.Version)
		}
		version = &v
	}

	token, err := p.getToken(ctx)
	if err != nil {
		return provider.SecretValue{}, err
	}

	secret, err := p.client.GetSecret(ctx, token, path, version)
	if err != nil {
		if errors.Is(err, ErrAkeylessSecretNotFound) {
			return provider.SecretValue{}, &provider.NotFoundError{Provider: p.name, Key: ref.Key}
		}
		return provider.SecretValue{}, &AkeylessError{Op: "fetch", Path: path, Err: err}
	}

	return provider.SecretValue{
		Value:     secret.Value,
		Version:   strconv.Itoa(secret.Version),
		UpdatedAt: secret.UpdatedAt,
		Metadata: map[string]string{
			"provider": p.name,
			"path":     secret.Path,
		},
	}, nil
}

// Validate checks that authentication succeeds
func (p *AkeylessProvider) Validate(ctx context.Context) error {
	if _, err := p.getToken(ctx); err != nil {
		return fmt.Errorf("akeyless validation failed: %w", err)
	}
	return nil
}

func (p *AkeylessProvider) getToken(ctx context.Context) (string, error) {
	if token, ok := p.tokenCache.Get(); ok {
		return token, nil
	}

	token, ttl, err := p.client.Authenticate(ctx)
	if err != nil {
		return "", provider.AuthError{Provider: p.name, Message: err.Error()}
	}
	p.tokenCache.Set(token, ttl)
	return token, nil
}

func parseAkeylessConfig(config map[string]interface{}) (AkeylessConfig, error) {
	cfg := AkeylessConfig{
		AccessID:   stringOption(config, "access_id"),
		AccessKey:  stringOption(config, "access_key"),
		AccessType: stringOption(config, "access_type"),
		GatewayURL: stringOption(config, "gateway_url"),
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultAkeylessGateway
	}
	if cfg.AccessID == "" {
		return cfg, fmt.Errorf("akeyless: access_id is required")
	}
	if (cfg.AccessType == "" || cfg.AccessType == "access_key") && cfg.AccessKey == "" {
		return cfg, fmt.Errorf("akeyless: access_key is required for access_key authentication")
	}
	return cfg, nil
}

// akeylessSDKClient implements AkeylessClient using the official SDK
type akeylessSDKClient struct {
	api *akeyless.APIClient
	cfg AkeylessConfig
}

func newAkeylessSDKClient(cfg AkeylessConfig) *akeylessSDKClient {
	configuration := akeyless.NewConfiguration()
	configuration.Servers = []akeyless.ServerConfiguration{{URL: cfg.GatewayURL}}
	return &akeylessSDKClient{api: akeyless.NewAPIClient(configuration), cfg: cfg}
}

// Authenticate obtains an access token from Akeyless
func (c *akeylessSDKClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	body := akeyless.NewAuthWithDefaults()
	body.SetAccessId(c.cfg.AccessID)
	if c.cfg.AccessType != "" && c.cfg.AccessType != "access_key" {
		body.SetAccessType(c.cfg.AccessType)
	} else {
		body.SetAccessKey(c.cfg.AccessKey)
	}

	res, _, err := c.api.V2Api.Auth(ctx).Body(*body).Execute()
	if err != nil {
		return "", 0, fmt.Errorf("authentication failed: %w", err)
	}
	// Akeyless tokens last 30 minutes
	return res.GetToken(), 25 * time.Minute, nil
}

// GetSecret retrieves a secret by path
func (c *akeylessSDKClient) GetSecret(ctx context.Context, token, path string, version *int) (*contracts.AkeylessSecret, error) {
	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)
	if version != nil {
		body.SetVersion(int32(*version))
	}

	res, _, err := c.api.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		return nil, err
	}
	value, ok := res[path]
	if !ok {
		return nil, ErrAkeylessSecretNotFound
	}

	v := 0
	if version != nil {
		v = *version
	}
	return &contracts.AkeylessSecret{
		Path:    path,
		Value:   fmt.Sprint(value),
		Version: v,
	}, nil
}

var _ contracts.AkeylessClient = (*akeylessSDKClient)(nil)
