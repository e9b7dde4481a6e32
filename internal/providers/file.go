package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dserrors "github.com/systmms/secretmgr/internal/errors"
	"github.com/systmms/secretmgr/pkg/provider"
)

// FileProvider reads one secret per file below a base directory, the way
// mounted Kubernetes or Docker secrets are laid out.
type FileProvider struct {
	name string
	dir  string
}

// NewFileProvider creates a file provider rooted at dir.
func NewFileProvider(name, dir string) (*FileProvider, error) {
	if dir == "" {
		return nil, dserrors.ConfigError{
			Field:      "dir",
			Message:    "dir is required for the file provider",
			Suggestion: "Point dir at the directory holding the secret files",
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	return &FileProvider{name: name, dir: abs}, nil
}

// Name returns the provider's name
func (f *FileProvider) Name() string {
	return f.name
}

// Resolve reads the file named by ref.Key. Surrounding whitespace is trimmed.
func (f *FileProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	if err := ctx.Err(); err != nil {
		return provider.SecretValue{}, err
	}
	path, err := f.path(ref.Key)
	if err != nil {
		return provider.SecretValue{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return provider.SecretValue{}, &provider.NotFoundError{Provider: f.name, Key: ref.Key}
		}
		return provider.SecretValue{}, dserrors.ProviderError("file", "read", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return provider.SecretValue{}, dserrors.ProviderError("file", "stat", err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return provider.SecretValue{}, &provider.NotFoundError{Provider: f.name, Key: ref.Key}
	}
	return provider.SecretValue{
		Value:     value,
		UpdatedAt: info.ModTime(),
		Metadata:  map[string]string{"provider": f.name, "path": path},
	}, nil
}

// Validate checks that the base directory exists
func (f *FileProvider) Validate(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("file provider %s: %w", f.name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("file provider %s: %s is not a directory", f.name, f.dir)
	}
	return nil
}

// path keeps lookups inside the base directory.
func (f *FileProvider) path(key string) (string, error) {
	p := filepath.Join(f.dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(f.dir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("file provider %s: key %q escapes %s", f.name, key, f.dir)
	}
	return p, nil
}
