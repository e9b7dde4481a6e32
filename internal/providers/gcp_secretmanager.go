package providers

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	dserrors "github.com/systmms/secretmgr/internal/errors"
	"github.com/systmms/secretmgr/internal/logging"
	"github.com/systmms/secretmgr/pkg/provider"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// GCPSecretManagerClientAPI defines the Secret Manager operations used.
// *secretmanager.Client satisfies it.
type GCPSecretManagerClientAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
}

// GCPSecretManagerProvider implements the Provider interface for Google Cloud Secret Manager
type GCPSecretManagerProvider struct {
	name      string
	client    GCPSecretManagerClientAPI
	logger    *logging.Logger
	projectID string
	keyPath   string
}

// GCPProviderOption is a functional option for configuring GCP providers
type GCPProviderOption func(*GCPSecretManagerProvider)

// WithGCPSecretManagerClient sets a custom client (for testing)
func WithGCPSecretManagerClient(client GCPSecretManagerClientAPI) GCPProviderOption {
	return func(p *GCPSecretManagerProvider) {
		p.client = client
	}
}

// NewGCPSecretManagerProvider creates a new GCP Secret Manager provider
func NewGCPSecretManagerProvider(name string, configMap map[string]interface{}, opts ...GCPProviderOption) (*GCPSecretManagerProvider, error) {
	p := &GCPSecretManagerProvider{
		name:      name,
		logger:    logging.Discard(),
		projectID: stringOption(configMap, "project_id"),
		keyPath:   stringOption(configMap, "service_account_key_path"),
	}
	if p.projectID == "" {
		p.projectID = gcpProjectFromEnv()
	}
	if p.projectID == "" {
		return nil, dserrors.ConfigError{
			Field:      "project_id",
			Message:    "project_id is required for GCP Secret Manager",
			Suggestion: "Set project_id in config or GOOGLE_CLOUD_PROJECT environment variable",
		}
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := createGCPSecretManagerClient(p.keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		p.client = client
	}
	return p, nil
}

func createGCPSecretManagerClient(keyPath string) (*secretmanager.Client, error) {
	var clientOptions []option.ClientOption
	if keyPath != "" {
		if strings.HasPrefix(keyPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			keyPath = filepath.Join(home, keyPath[2:])
		}
		clientOptions = append(clientOptions, option.WithCredentialsFile(keyPath))
	}
	return secretmanager.NewClient(context.Background(), clientOptions...)
}

func gcpProjectFromEnv() string {
	for _, v := range []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "GCP_PROJECT"} {
		if id := os.Getenv(v); id != "" {
			return id
		}
	}
	return ""
}

// Name returns the provider name
func (p *GCPSecretManagerProvider) Name() string {
	return p.name
}

// Resolve fetches a secret version, "latest" unless ref.Version is set
func (p *GCPSecretManagerProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	secretName, jsonPath := splitJSONPath(ref.Key)
	version := ref.Version
	if version == "" {
		version = "latest"
	}
	resourceName := p.buildResourceName(secretName, version)

	p.logger.Debug("Accessing GCP secret: %s", logging.Secret(resourceName))

	result, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound:
			return provider.SecretValue{}, &provider.NotFoundError{Provider: p.name, Key: ref.Key}
		case codes.PermissionDenied, codes.Unauthenticated:
			return provider.SecretValue{}, provider.AuthError{Provider: p.name, Message: err.Error()}
		}
		return provider.SecretValue{}, dserrors.ProviderError("gcp.secretmanager", "access secret version", err)
	}

	if result.GetPayload() == nil || len(result.GetPayload().GetData()) == 0 {
		return provider.SecretValue{}, fmt.Errorf("secret '%s': %w", secretName, ErrEmptySecret)
	}

	payload := result.GetPayload()
	if payload.DataCrc32C != nil && int64(crc32.Checksum(payload.GetData(), castagnoli)) != payload.GetDataCrc32C() {
		return provider.SecretValue{}, fmt.Errorf("secret '%s': %w", secretName, ErrChecksum)
	}

	value, err := applyJSONPath(string(payload.GetData()), jsonPath)
	if err != nil {
		return provider.SecretValue{}, err
	}

	return provider.SecretValue{
		Value:   value,
		Version: versionFromResourceName(result.GetName()),
		Metadata: map[string]string{
			"source":     "gcp-sm:" + resourceName,
			"project_id": p.projectID,
		},
	}, nil
}

// Validate checks that the project is reachable by reading secret metadata
// of a name that need not exist.
func (p *GCPSecretManagerProvider) Validate(ctx context.Context) error {
	_, err := p.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{
		Name: fmt.Sprintf("projects/%s/secrets/secretmgr-validate", p.projectID),
	})
	switch status.Code(err) {
	case codes.OK, codes.NotFound:
		return nil
	case codes.PermissionDenied, codes.Unauthenticated:
		return provider.AuthError{Provider: p.name, Message: err.Error()}
	}
	return fmt.Errorf("gcp secret manager validation failed: %w", err)
}

// buildResourceName builds the full GCP resource name
func (p *GCPSecretManagerProvider) buildResourceName(secretName, version string) string {
	if strings.HasPrefix(secretName, "projects/") {
		if strings.Contains(secretName, "/versions/") {
			return secretName
		}
		return fmt.Sprintf("%s/versions/%s", secretName, version)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", p.projectID, secretName, version)
}

func versionFromResourceName(name string) string {
	if idx := strings.LastIndex(name, "/versions/"); idx != -1 {
		return name[idx+len("/versions/"):]
	}
	return ""
}
