package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/systmms/secretmgr/internal/config"
	"github.com/systmms/secretmgr/internal/database"
	"github.com/systmms/secretmgr/internal/ledger"
	"github.com/systmms/secretmgr/internal/providers"
	"github.com/systmms/secretmgr/internal/sources"
	"github.com/systmms/secretmgr/internal/totp"
	"github.com/systmms/secretmgr/pkg/secrets"
)

// exitError carries a process exit status through cobra.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// ExitCode extracts the exit status requested by a command.
func ExitCode(err error) (int, bool) {
	var e *exitError
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}

// runtime wires configuration, providers, ledger and store together.
type runtime struct {
	cfg      *config.Config
	registry *providers.Registry
	db       *database.DB
	ledger   ledger.Ledger
	source   *sources.ProviderSource
	store    *secrets.Store
	metrics  *prometheus.Registry
}

// runtimeOption adjusts a runtime before the store is built
type runtimeOption func(*runtime)

// withRegistry replaces the provider registry
func withRegistry(r *providers.Registry) runtimeOption {
	return func(rt *runtime) { rt.registry = r }
}

func newRuntime(ctx context.Context, cfg *config.Config, opts ...runtimeOption) (*runtime, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	def := cfg.Definition

	rt := &runtime{
		cfg:      cfg,
		registry: providers.NewRegistry(),
		metrics:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	if def.Database != nil {
		db, err := database.Open(ctx, def.Database)
		if err != nil {
			return nil, err
		}
		rt.db = db
	}

	l, err := ledger.Open(ctx, def.Ledger, rt.db)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.ledger = l
	rt.source = sources.New(l, sources.WithLogger(cfg.Logger))
	if err := rt.configureSource(def); err != nil {
		rt.Close()
		return nil, err
	}

	timeout, err := def.Timeout()
	if err != nil {
		rt.Close()
		return nil, err
	}
	storeOpts := []secrets.Option{
		secrets.WithLogger(cfg.Logger),
		secrets.WithMetrics(secrets.NewMetrics(rt.metrics)),
		secrets.WithRole(def.StoreRole()),
		secrets.WithLoadTimeout(timeout),
	}
	if rt.db != nil {
		accounts := totp.NewSQLAccounts(rt.db.DB, rt.db.Dialect)
		if err := accounts.EnsureSchema(ctx); err != nil {
			rt.Close()
			return nil, err
		}
		storeOpts = append(storeOpts, secrets.WithTransitioner(secrets.TOTPMasterKey,
			totp.NewSQLTransitioner(rt.db.DB, rt.db.Dialect, cfg.Logger)))
	}
	rt.store = secrets.New(rt.source, storeOpts...)
	return rt, nil
}

func (rt *runtime) configureSource(def *config.Definition) error {
	ps, err := rt.registry.CreateAll(def.Providers)
	if err != nil {
		return err
	}
	bindings, err := sources.BindingsFromConfig(def)
	if err != nil {
		return err
	}
	rt.source.Configure(ps, bindings)
	return nil
}

// Reload re-reads the configuration file, rebuilds the providers and
// reinitializes the store. On error the previous configuration stays active.
func (rt *runtime) Reload() error {
	next := &config.Config{Path: rt.cfg.Path, Logger: rt.cfg.Logger}
	if err := next.Load(); err != nil {
		return err
	}
	if err := rt.configureSource(next.Definition); err != nil {
		return err
	}
	rt.cfg.Definition = next.Definition
	rt.store.Initialize()
	return nil
}

// accounts returns the account table, or an error without a database.
func (rt *runtime) accounts() (*totp.SQLAccounts, error) {
	if rt.db == nil {
		return nil, fmt.Errorf("no database configured; add a database section to %s", rt.cfg.Path)
	}
	return totp.NewSQLAccounts(rt.db.DB, rt.db.Dialect), nil
}

// Close releases the database connection
func (rt *runtime) Close() {
	if rt.db != nil {
		_ = rt.db.Close()
	}
}
