// Package sources resolves secret material through the configured
// providers and tracks what was used before in a digest ledger.
package sources

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/systmms/secretmgr/internal/config"
	"github.com/systmms/secretmgr/internal/ledger"
	"github.com/systmms/secretmgr/internal/logging"
	"github.com/systmms/secretmgr/pkg/provider"
	"github.com/systmms/secretmgr/pkg/secrets"
)

// Binding tells where one secret's values come from.
type Binding struct {
	Current provider.Reference
	// Old is the value being rotated away from; zero when not configured.
	Old        provider.Reference
	AllowReset bool
}

// HasOld reports whether an old value is configured
func (b Binding) HasOld() bool {
	return b.Old.Provider != ""
}

// ProviderSource implements secrets.Source, secrets.Recorder and
// secrets.ResetIndicator. Its providers and bindings can be replaced at
// runtime; the next store load sees the new configuration.
type ProviderSource struct {
	ledger ledger.Ledger
	logger *logging.Logger
	digest func(*big.Int) (string, error)

	mu        sync.RWMutex
	providers map[string]provider.Provider
	bindings  map[secrets.ID]Binding
}

// Option configures a ProviderSource
type Option func(*ProviderSource)

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *ProviderSource) { s.logger = logger }
}

// WithDigestParams overrides the argon2id cost of recorded digests
func WithDigestParams(p ledger.Params) Option {
	return func(s *ProviderSource) {
		s.digest = func(v *big.Int) (string, error) { return ledger.DigestWith(p, v) }
	}
}

// New creates a source with no providers; call Configure before loading.
func New(l ledger.Ledger, opts ...Option) *ProviderSource {
	s := &ProviderSource{
		ledger:    l,
		logger:    logging.Discard(),
		digest:    ledger.Digest,
		providers: make(map[string]provider.Provider),
		bindings:  make(map[secrets.ID]Binding),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configure replaces the providers and bindings.
func (s *ProviderSource) Configure(providers map[string]provider.Provider, bindings map[secrets.ID]Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = providers
	s.bindings = bindings
}

// BindingsFromConfig maps the secrets section of a definition to bindings.
func BindingsFromConfig(def *config.Definition) (map[secrets.ID]Binding, error) {
	out := make(map[secrets.ID]Binding, len(def.Secrets))
	for name, sc := range def.Secrets {
		id, err := secrets.ParseID(name)
		if err != nil {
			return nil, err
		}
		var b Binding
		if sc.From != "" {
			if b.Current, err = config.ParseReference(sc.From); err != nil {
				return nil, fmt.Errorf("secrets.%s.from: %w", name, err)
			}
		}
		if sc.Old != "" {
			if b.Old, err = config.ParseReference(sc.Old); err != nil {
				return nil, fmt.Errorf("secrets.%s.old: %w", name, err)
			}
		}
		b.AllowReset = sc.AllowReset
		out[id] = b
	}
	return out, nil
}

func (s *ProviderSource) binding(id secrets.ID) (Binding, map[string]provider.Provider) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bindings[id], s.providers
}

// resolve fetches and parses one reference; nil means not configured.
func (s *ProviderSource) resolve(ctx context.Context, id secrets.ID, ref provider.Reference, providers map[string]provider.Provider) (*big.Int, error) {
	if ref.Provider == "" {
		return nil, nil
	}
	p, ok := providers[ref.Provider]
	if !ok {
		return nil, fmt.Errorf("provider '%s' is not configured", ref.Provider)
	}

	s.logger.Debug("Resolving %s from %s", id, ref)
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseMaterial(id, v.Value)
}

// FetchNewSecret implements secrets.Source
func (s *ProviderSource) FetchNewSecret(ctx context.Context, id secrets.ID) (*big.Int, error) {
	b, providers := s.binding(id)
	return s.resolve(ctx, id, b.Current, providers)
}

// FetchOldSecret implements secrets.Source. When the current value still
// matches the recorded digest it is returned, making an unchanged secret
// look like a no-op transition. Otherwise a configured old value is
// returned, which must match the recorded digest.
func (s *ProviderSource) FetchOldSecret(ctx context.Context, id secrets.ID) (*big.Int, error) {
	b, providers := s.binding(id)

	digest, recorded, err := s.ledger.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if recorded {
		cur, err := s.resolve(ctx, id, b.Current, providers)
		if err != nil {
			return nil, err
		}
		if cur != nil {
			switch err := ledger.Verify(digest, cur); {
			case err == nil:
				return cur, nil
			case !errors.Is(err, ledger.ErrMismatch):
				return nil, fmt.Errorf("recorded digest of %s: %w", id, err)
			}
		}
	}

	if !b.HasOld() {
		return nil, nil
	}
	old, err := s.resolve(ctx, id, b.Old, providers)
	if err != nil || old == nil {
		return nil, err
	}
	if recorded {
		if err := ledger.Verify(digest, old); err != nil {
			return nil, fmt.Errorf("old value of %s from %s: %w", id, b.Old, err)
		}
	}
	return old, nil
}

// HadPriorRecord implements secrets.Source
func (s *ProviderSource) HadPriorRecord(ctx context.Context, id secrets.ID) (bool, error) {
	_, ok, err := s.ledger.Lookup(ctx, id)
	return ok, err
}

// ResetRequested implements secrets.ResetIndicator
func (s *ProviderSource) ResetRequested(ctx context.Context, id secrets.ID) (bool, error) {
	b, _ := s.binding(id)
	return b.AllowReset, nil
}

// Record implements secrets.Recorder
func (s *ProviderSource) Record(ctx context.Context, id secrets.ID, value *big.Int) error {
	if value == nil {
		return s.ledger.Delete(ctx, id)
	}
	d, err := s.digest(value)
	if err != nil {
		return err
	}
	return s.ledger.Store(ctx, id, d)
}

var (
	_ secrets.Source         = (*ProviderSource)(nil)
	_ secrets.Recorder       = (*ProviderSource)(nil)
	_ secrets.ResetIndicator = (*ProviderSource)(nil)
)
