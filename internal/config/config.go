package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/secretmgr/internal/errors"
	"github.com/systmms/secretmgr/internal/logging"
	"github.com/systmms/secretmgr/pkg/provider"
	"github.com/systmms/secretmgr/pkg/secrets"
)

// DefaultPath is used when --config is not given.
const DefaultPath = "secretmgr.yaml"

//go:embed schema.json
var schemaJSON []byte

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the secretmgr.yaml structure
type Definition struct {
	Version     int                       `yaml:"version"`
	Role        string                    `yaml:"role,omitempty"`
	LoadTimeout string                    `yaml:"load_timeout,omitempty"`
	Providers   map[string]ProviderConfig `yaml:"providers,omitempty"`
	Secrets     map[string]SecretConfig   `yaml:"secrets,omitempty"`
	Ledger      LedgerConfig              `yaml:"ledger,omitempty"`
	Database    *DatabaseConfig           `yaml:"database,omitempty"`
	Metrics     MetricsConfig             `yaml:"metrics,omitempty"`
}

// ProviderConfig configures one provider instance. Keys other than type and
// timeout_ms are passed to the provider factory.
type ProviderConfig struct {
	Type      string                 `yaml:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty"`
	Config    map[string]interface{} `yaml:",inline"`
}

// SecretConfig says where the current and previous values of a secret live.
type SecretConfig struct {
	From       string `yaml:"from,omitempty"`
	Old        string `yaml:"old,omitempty"`
	AllowReset bool   `yaml:"allow_reset,omitempty"`
}

// LedgerConfig selects where digests of recorded secrets are kept.
type LedgerConfig struct {
	Backend string `yaml:"backend,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// DatabaseConfig is the account database used by the sql ledger and the
// TOTP seed transition.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// MetricsConfig configures the Prometheus endpoint of `serve`.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// Load reads, validates and parses the configuration file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create secretmgr.yaml or pass --config",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}
	c.Definition = def
	c.Logger.Debug("Loaded configuration from %s (%d providers, %d secrets)", c.Path, len(def.Providers), len(def.Secrets))
	return nil
}

// Parse validates data against the embedded schema and decodes it.
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid configuration structure",
			Suggestion: err.Error(),
		}
	}
	if err := def.check(); err != nil {
		return nil, err
	}
	return &def, nil
}

func validateSchema(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return dserrors.ConfigError{
		Message:    "schema validation failed:\n  - " + strings.Join(msgs, "\n  - "),
		Suggestion: "Fix the listed fields in secretmgr.yaml",
	}
}

// check validates what the schema cannot express.
func (d *Definition) check() error {
	for name, sc := range d.Secrets {
		if _, err := secrets.ParseID(name); err != nil {
			return dserrors.ConfigError{
				Field:      "secrets",
				Value:      name,
				Message:    "unknown secret",
				Suggestion: "Known secrets: " + strings.Join(knownSecrets(), ", "),
			}
		}
		for _, ref := range []string{sc.From, sc.Old} {
			if ref == "" {
				continue
			}
			r, err := ParseReference(ref)
			if err != nil {
				return err
			}
			if _, ok := d.Providers[r.Provider]; !ok {
				return dserrors.ConfigError{
					Field:      "secrets." + name,
					Value:      ref,
					Message:    fmt.Sprintf("provider %q is not defined", r.Provider),
					Suggestion: "Add it to the 'providers:' section",
				}
			}
		}
	}
	if d.Ledger.Backend == "sql" && d.Database == nil {
		return dserrors.ConfigError{
			Field:      "ledger.backend",
			Value:      "sql",
			Message:    "the sql ledger needs a database",
			Suggestion: "Add a 'database:' section or use 'backend: file'",
		}
	}
	if _, err := d.Timeout(); err != nil {
		return err
	}
	return nil
}

func knownSecrets() []string {
	var names []string
	for _, id := range secrets.IDs() {
		names = append(names, id.String())
	}
	return names
}

// ParseReference parses "provider:key" with an optional "@version" suffix.
func ParseReference(s string) (provider.Reference, error) {
	name, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || name == "" || rest == "" {
		return provider.Reference{}, dserrors.ConfigError{
			Field:      "reference",
			Value:      s,
			Message:    "invalid secret reference",
			Suggestion: "Use the form provider:key or provider:key@version",
		}
	}
	ref := provider.Reference{Provider: name, Key: rest}
	if i := strings.LastIndex(rest, "@"); i > 0 {
		ref.Key, ref.Version = rest[:i], rest[i+1:]
	}
	return ref, nil
}

// StoreRole returns the configured process role, RoleAuth by default.
func (d *Definition) StoreRole() secrets.Role {
	if d.Role == "" {
		return secrets.RoleAuth
	}
	return secrets.Role(d.Role)
}

// Timeout returns the per-load timeout, secrets.DefaultLoadTimeout when unset.
func (d *Definition) Timeout() (time.Duration, error) {
	if d.LoadTimeout == "" {
		return secrets.DefaultLoadTimeout, nil
	}
	t, err := time.ParseDuration(d.LoadTimeout)
	if err != nil || t <= 0 {
		return 0, dserrors.ConfigError{
			Field:      "load_timeout",
			Value:      d.LoadTimeout,
			Message:    "invalid duration",
			Suggestion: "Use a positive duration such as 5s or 500ms",
		}
	}
	return t, nil
}

// GetProvider returns the configuration for a provider
func (c *Config) GetProvider(name string) (ProviderConfig, error) {
	if c.Definition == nil {
		return ProviderConfig{}, dserrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	if p, ok := c.Definition.Providers[name]; ok {
		return p, nil
	}

	available := make([]string, 0, len(c.Definition.Providers))
	for n := range c.Definition.Providers {
		available = append(available, n)
	}
	sort.Strings(available)

	suggestion := "Add the provider to the 'providers:' section of secretmgr.yaml"
	if len(available) > 0 {
		suggestion = fmt.Sprintf("Available providers: %s. %s", strings.Join(available, ", "), suggestion)
	}
	return ProviderConfig{}, dserrors.ConfigError{
		Field:      "provider",
		Value:      name,
		Message:    "provider not found in configuration",
		Suggestion: suggestion,
	}
}

// GetProviderTimeout returns the timeout for a provider in milliseconds
func (p ProviderConfig) GetProviderTimeout() int {
	if p.TimeoutMs <= 0 {
		return 30000
	}
	return p.TimeoutMs
}
