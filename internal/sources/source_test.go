package sources_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretmgr/internal/config"
	"github.com/systmms/secretmgr/internal/ledger"
	"github.com/systmms/secretmgr/internal/logging"
	"github.com/systmms/secretmgr/internal/sources"
	"github.com/systmms/secretmgr/pkg/provider"
	"github.com/systmms/secretmgr/pkg/secrets"
	"github.com/systmms/secretmgr/tests/fakes"
)

var fastDigest = ledger.Params{Time: 1, Memory: 64, Threads: 1, SaltLen: 8, KeyLen: 16}

const (
	keyA = "0123456789abcdef0123456789abcdef"
	keyB = "fedcba9876543210fedcba9876543210"
)

func hexInt(s string) *big.Int {
	v, _ := new(big.Int).SetString(s, 16)
	return v
}

type fixture struct {
	ledger *ledger.FileLedger
	kv     *fakes.FakeProvider
	source *sources.ProviderSource
}

func newFixture(t *testing.T, b sources.Binding) *fixture {
	t.Helper()

	f := &fixture{
		ledger: ledger.NewFileLedger(filepath.Join(t.TempDir(), "ledger.json")),
		kv:     fakes.NewFakeProvider("kv"),
	}
	f.source = sources.New(f.ledger, sources.WithDigestParams(fastDigest))
	f.source.Configure(
		map[string]provider.Provider{"kv": f.kv},
		map[secrets.ID]sources.Binding{secrets.TOTPMasterKey: b},
	)
	return f
}

func (f *fixture) record(t *testing.T, hex string) {
	t.Helper()
	d, err := ledger.DigestWith(fastDigest, hexInt(hex))
	require.NoError(t, err)
	require.NoError(t, f.ledger.Store(context.Background(), secrets.TOTPMasterKey, d))
}

var (
	current = provider.Reference{Provider: "kv", Key: "current"}
	old     = provider.Reference{Provider: "kv", Key: "old"}
)

func TestProviderSource_FetchNewSecret(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, sources.Binding{Current: current})

	v, err := f.source.FetchNewSecret(ctx, secrets.TOTPMasterKey)
	require.NoError(t, err)
	assert.Nil(t, v, "not found means not configured")

	f.kv.WithSecret("current", "0x"+keyA)
	v, err = f.source.FetchNewSecret(ctx, secrets.TOTPMasterKey)
	require.NoError(t, err)
	assert.Zero(t, hexInt(keyA).Cmp(v))

	f.kv.WithSecret("current", "not-hex")
	_, err = f.source.FetchNewSecret(ctx, secrets.TOTPMasterKey)
	assert.ErrorContains(t, err, "not a hexadecimal number")

	f.kv.WithError("current", errors.New("throttled"))
	_, err = f.source.FetchNewSecret(ctx, secrets.TOTPMasterKey)
	assert.ErrorContains(t, err, "throttled")
}

func TestProviderSource_UnboundAndUnknownProvider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := sources.New(ledger.NewFileLedger(filepath.Join(t.TempDir(), "l.json")))

	v, err := src.FetchNewSecret(ctx, secrets.TOTPMasterKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	src.Configure(nil, map[secrets.ID]sources.Binding{
		secrets.TOTPMasterKey: {Current: provider.Reference{Provider: "vault", Key: "x"}},
	})
	_, err = src.FetchNewSecret(ctx, secrets.TOTPMasterKey)
	assert.ErrorContains(t, err, "provider 'vault' is not configured")
}

func TestProviderSource_FetchOldSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		binding     sources.Binding
		values      map[string]string
		recorded    string
		expected    string
		hadRecord   bool
		errContains string
	}{
		{
			name:    "first configuration",
			binding: sources.Binding{Current: current},
			values:  map[string]string{"current": keyA},
		},
		{
			name:      "unchanged since last run",
			binding:   sources.Binding{Current: current},
			values:    map[string]string{"current": keyA},
			recorded:  keyA,
			expected:  keyA,
			hadRecord: true,
		},
		{
			name:      "changed without old value",
			binding:   sources.Binding{Current: current},
			values:    map[string]string{"current": keyB},
			recorded:  keyA,
			hadRecord: true,
		},
		{
			name:      "rotation with matching old value",
			binding:   sources.Binding{Current: current, Old: old},
			values:    map[string]string{"current": keyB, "old": keyA},
			recorded:  keyA,
			expected:  keyA,
			hadRecord: true,
		},
		{
			name:      "rotation already recorded, old still configured",
			binding:   sources.Binding{Current: current, Old: old},
			values:    map[string]string{"current": keyB, "old": keyA},
			recorded:  keyB,
			expected:  keyB,
			hadRecord: true,
		},
		{
			name:        "old value does not match record",
			binding:     sources.Binding{Current: current, Old: old},
			values:      map[string]string{"current": keyB, "old": "abcd"},
			recorded:    keyA,
			hadRecord:   true,
			errContains: "does not match recorded digest",
		},
		{
			name:      "decommission",
			binding:   sources.Binding{Old: old},
			values:    map[string]string{"old": keyA},
			recorded:  keyA,
			expected:  keyA,
			hadRecord: true,
		},
		{
			name:     "old value without record is passed through",
			binding:  sources.Binding{Current: current, Old: old},
			values:   map[string]string{"current": keyB, "old": keyA},
			expected: keyA,
		},
		{
			name:      "old reference missing from provider",
			binding:   sources.Binding{Current: current, Old: old},
			values:    map[string]string{"current": keyB},
			recorded:  keyA,
			hadRecord: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			f := newFixture(t, tt.binding)
			for k, v := range tt.values {
				f.kv.WithSecret(k, v)
			}
			if tt.recorded != "" {
				f.record(t, tt.recorded)
			}

			had, err := f.source.HadPriorRecord(ctx, secrets.TOTPMasterKey)
			require.NoError(t, err)
			assert.Equal(t, tt.hadRecord, had)

			v, err := f.source.FetchOldSecret(ctx, secrets.TOTPMasterKey)
			if tt.errContains != "" {
				assert.ErrorContains(t, err, tt.errContains)
				return
			}
			require.NoError(t, err)
			if tt.expected == "" {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			assert.Zero(t, hexInt(tt.expected).Cmp(v))
		})
	}
}

func TestProviderSource_CorruptDigest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, sources.Binding{Current: current})
	f.kv.WithSecret("current", keyA)
	require.NoError(t, f.ledger.Store(ctx, secrets.TOTPMasterKey, "sha256:abc"))

	_, err := f.source.FetchOldSecret(ctx, secrets.TOTPMasterKey)
	assert.ErrorIs(t, err, ledger.ErrMalformed)
}

func TestProviderSource_RecordAndReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, sources.Binding{Current: current, AllowReset: true})

	reset, err := f.source.ResetRequested(ctx, secrets.TOTPMasterKey)
	require.NoError(t, err)
	assert.True(t, reset)

	require.NoError(t, f.source.Record(ctx, secrets.TOTPMasterKey, hexInt(keyA)))
	d, ok, err := f.ledger.Lookup(ctx, secrets.TOTPMasterKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NoError(t, ledger.Verify(d, hexInt(keyA)))

	require.NoError(t, f.source.Record(ctx, secrets.TOTPMasterKey, nil))
	_, ok, err = f.ledger.Lookup(ctx, secrets.TOTPMasterKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBindingsFromConfig(t *testing.T) {
	t.Parallel()

	def := &config.Definition{
		Secrets: map[string]config.SecretConfig{
			"totp_master_key": {From: "aws:prod/totp#.key@AWSCURRENT", Old: "file:totp.old", AllowReset: true},
		},
	}
	b, err := sources.BindingsFromConfig(def)
	require.NoError(t, err)

	got := b[secrets.TOTPMasterKey]
	assert.Equal(t, provider.Reference{Provider: "aws", Key: "prod/totp#.key", Version: "AWSCURRENT"}, got.Current)
	assert.Equal(t, provider.Reference{Provider: "file", Key: "totp.old"}, got.Old)
	assert.True(t, got.HasOld())
	assert.True(t, got.AllowReset)

	_, err = sources.BindingsFromConfig(&config.Definition{
		Secrets: map[string]config.SecretConfig{"realm_key": {From: "x:y"}},
	})
	assert.ErrorContains(t, err, "unknown secret")
}

// The full lifecycle against a real store: first run, restart, rotation,
// restart with the old value still configured, and removal.
func TestProviderSource_WithStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sources.Binding{Current: current})
	var logs bytes.Buffer
	var transitions []string
	tr := secrets.TransitionerFunc(func(_ context.Context, _ secrets.ID, n, o *big.Int, hadOld bool) error {
		transitions = append(transitions, describe(n)+"<-"+describe(o))
		return nil
	})
	newStore := func() *secrets.Store {
		return secrets.New(f.source,
			secrets.WithLogger(logging.NewWithWriter(&logs, false)),
			secrets.WithTransitioner(secrets.TOTPMasterKey, tr))
	}

	f.kv.WithSecret("current", keyA)
	s := newStore()
	s.Initialize()
	require.True(t, s.Get(secrets.TOTPMasterKey).OK())

	// restart, nothing changed
	newStore().Initialize()

	// rotate A -> B
	f.kv.WithSecret("current", keyB).WithSecret("old", keyA)
	f.source.Configure(map[string]provider.Provider{"kv": f.kv}, map[secrets.ID]sources.Binding{
		secrets.TOTPMasterKey: {Current: current, Old: old},
	})
	s.Initialize()
	assert.Zero(t, hexInt(keyB).Cmp(s.Get(secrets.TOTPMasterKey).MustValue()))

	// restart with the old value still configured
	s.Initialize()
	assert.True(t, s.Get(secrets.TOTPMasterKey).OK())

	// remove the secret, keeping the old reference to migrate from
	f.kv.WithoutSecret("current").WithSecret("old", keyB)
	s.Initialize()
	assert.Equal(t, secrets.NotPresent, s.Get(secrets.TOTPMasterKey).State())

	assert.Equal(t, []string{
		keyA + "<-none",
		keyB + "<-" + keyA,
		"none<-" + keyB,
	}, transitions)
	assert.NotContains(t, logs.String(), "✗")
}

func describe(v *big.Int) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%032x", v)
}
