// Package testutil provides shared helpers for secretmgr tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/systmms/secretmgr/internal/config"
)

// ConfigBuilder builds a secretmgr.yaml in a temporary directory.
//
// Write can be called again after further changes; it always rewrites the
// same file, which is how tests simulate an operator editing the config:
//
//	b := NewTestConfig(t).
//	    WithLiteral("local", map[string]string{"a": "0x01"}).
//	    WithSecret("totp_master_key", config.SecretConfig{From: "local:a"})
//	path := b.Write()
type ConfigBuilder struct {
	t    *testing.T
	dir  string
	path string
	def  *config.Definition
}

// NewTestConfig starts from version 1 with a file ledger inside the
// builder's temporary directory.
func NewTestConfig(t *testing.T) *ConfigBuilder {
	t.Helper()

	dir := t.TempDir()
	return &ConfigBuilder{
		t:    t,
		dir:  dir,
		path: filepath.Join(dir, "secretmgr.yaml"),
		def: &config.Definition{
			Version:   1,
			Providers: make(map[string]config.ProviderConfig),
			Secrets:   make(map[string]config.SecretConfig),
			Ledger:    config.LedgerConfig{Backend: "file", Path: filepath.Join(dir, "ledger.json")},
		},
	}
}

// Dir returns the temporary directory holding the config and ledger.
func (b *ConfigBuilder) Dir() string { return b.dir }

// Path returns where Write puts the config.
func (b *ConfigBuilder) Path() string { return b.path }

// WithProvider adds a provider instance.
func (b *ConfigBuilder) WithProvider(name, providerType string, cfg map[string]interface{}) *ConfigBuilder {
	b.def.Providers[name] = config.ProviderConfig{Type: providerType, Config: cfg}
	return b
}

// WithLiteral adds a literal provider serving values.
func (b *ConfigBuilder) WithLiteral(name string, values map[string]string) *ConfigBuilder {
	v := make(map[string]interface{}, len(values))
	for k, s := range values {
		v[k] = s
	}
	return b.WithProvider(name, "literal", map[string]interface{}{"values": v})
}

// WithSecret binds a secret; an empty SecretConfig removes the binding.
func (b *ConfigBuilder) WithSecret(name string, sc config.SecretConfig) *ConfigBuilder {
	if sc == (config.SecretConfig{}) {
		delete(b.def.Secrets, name)
		return b
	}
	b.def.Secrets[name] = sc
	return b
}

// WithSQLite adds an SQLite account database in the temporary directory.
func (b *ConfigBuilder) WithSQLite() *ConfigBuilder {
	b.def.Database = &config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(b.dir, "accounts.db")}
	return b
}

// WithLoadTimeout sets load_timeout.
func (b *ConfigBuilder) WithLoadTimeout(d string) *ConfigBuilder {
	b.def.LoadTimeout = d
	return b
}

// Build returns the in-memory definition.
func (b *ConfigBuilder) Build() *config.Definition {
	return b.def
}

// Write marshals the definition to Path and returns it.
func (b *ConfigBuilder) Write() string {
	b.t.Helper()

	data, err := yaml.Marshal(b.def)
	if err != nil {
		b.t.Fatalf("Failed to marshal test config: %v", err)
	}
	if err := os.WriteFile(b.path, data, 0600); err != nil {
		b.t.Fatalf("Failed to write test config: %v", err)
	}
	return b.path
}

// Config writes the file and returns a Config pointing at it.
func (b *ConfigBuilder) Config() *config.Config {
	b.t.Helper()
	return &config.Config{Path: b.Write(), Logger: NewTestLogger(b.t).Logger}
}
