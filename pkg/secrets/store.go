package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/systmms/secretmgr/internal/logging"
	"github.com/systmms/secretmgr/internal/secure"
)

// DefaultLoadTimeout bounds every source call made by a single load.
const DefaultLoadTimeout = 10 * time.Second

// Store is the registry of secret slots. Construct it with New and share the
// pointer; the zero value is not usable.
type Store struct {
	source        Source
	logger        *logging.Logger
	metrics       *Metrics
	role          Role
	loadTimeout   time.Duration
	transitioners [NumSecrets]Transitioner

	slots [NumSecrets]slot
}

type slot struct {
	mu    sync.Mutex
	state State
	value *secure.Box
}

// view must be called with s.mu held.
func (s *slot) view(id ID) Secret {
	return Secret{id: id, state: s.state, box: s.value}
}

// Status summarizes one slot for reporting.
type Status struct {
	ID        ID
	State     State
	Available bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics records load outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithRole sets which process role this store runs in. Defaults to RoleAuth.
func WithRole(role Role) Option {
	return func(s *Store) { s.role = role }
}

// WithLoadTimeout bounds the source calls of a single load.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// WithTransitioner registers the migration run when id changes value.
func WithTransitioner(id ID, t Transitioner) Option {
	return func(s *Store) {
		if id.Valid() {
			s.transitioners[id] = t
		}
	}
}

// New creates a store with every slot NotLoaded.
func New(source Source, opts ...Option) *Store {
	s := &Store{
		source:      source,
		logger:      logging.Discard(),
		role:        RoleAuth,
		loadTimeout: DefaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the secret for id, loading it first if this is the first
// request since construction or the last Initialize. Concurrent calls for the
// same id share a single load.
func (s *Store) Get(id ID) Secret {
	if !id.Valid() {
		s.logger.Error("Requested unknown secret %s", id)
		return Secret{id: id, state: LoadFailed}
	}

	sl := &s.slots[id]
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.state == NotLoaded {
		s.load(id, sl, logging.LevelError)
	}
	return sl.view(id)
}

// Initialize resets every slot and loads them all in enumeration order, so
// that misconfiguration is reported at startup instead of on first use.
// Calling it again forces a full reload. Failures are logged, never returned.
func (s *Store) Initialize() {
	for id := range s.slots {
		sl := &s.slots[id]
		sl.mu.Lock()
		sl.state = NotLoaded
		sl.value = nil
		sl.mu.Unlock()
	}

	failed := 0
	for id := ID(0); id < NumSecrets; id++ {
		sl := &s.slots[id]
		sl.mu.Lock()
		if sl.state == NotLoaded {
			s.load(id, sl, logging.LevelCritical)
		}
		if sl.state == LoadFailed {
			failed++
		}
		sl.mu.Unlock()
	}

	if failed > 0 {
		s.logger.Warn("Secrets initialized with %d of %d failing; dependent features are disabled", failed, NumSecrets)
	} else {
		s.logger.Debug("All %d secrets initialized", NumSecrets)
	}
}

// Snapshot reports the state of every slot without triggering loads.
func (s *Store) Snapshot() []Status {
	out := make([]Status, 0, NumSecrets)
	for id := ID(0); id < NumSecrets; id++ {
		sl := &s.slots[id]
		sl.mu.Lock()
		st := sl.state
		sl.mu.Unlock()
		out = append(out, Status{ID: id, State: st, Available: st.IsAvailable()})
	}
	return out
}

// load runs the load sequence for one slot and publishes the result.
// sl.mu must be held.
func (s *Store) load(id ID, sl *slot, level logging.Level) {
	start := time.Now()
	state, box := s.attemptLoad(id, level)
	sl.state = state
	sl.value = box
	s.metrics.observeLoad(id, state, time.Since(start))
}

func (s *Store) attemptLoad(id ID, level logging.Level) (State, *secure.Box) {
	info, _ := id.Info()

	ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
	defer cancel()

	s.metrics.observeQuery(id)
	t, err := s.fetch(ctx, id)
	if err != nil {
		s.logger.Logf(level, "Unable to load '%s': %v", info.Name, err)
		return LoadFailed, nil
	}

	if err := ValidateTransition(id, t); err != nil {
		s.logger.Logf(level, "%v", err)
		return LoadFailed, nil
	}

	if t.Changed() {
		if err := s.applyChange(ctx, id, t); err != nil {
			s.logger.Logf(level, "Value of '%s' changed, but the change cannot be applied:\n%v", info.Name, err)
			return LoadFailed, nil
		}
	}

	if t.New == nil {
		s.logger.Debug("Secret '%s' is not configured", info.Name)
		return NotPresent, nil
	}

	box, err := secure.Seal(t.New.Bytes())
	if err != nil {
		s.logger.Logf(level, "Unable to protect '%s' in memory: %v", info.Name, err)
		return LoadFailed, nil
	}
	return Present, box
}

func (s *Store) fetch(ctx context.Context, id ID) (Transition, error) {
	if s.source == nil {
		return Transition{}, fmt.Errorf("no secret source configured")
	}

	var (
		t   Transition
		err error
	)
	if t.New, err = s.source.FetchNewSecret(ctx, id); err != nil {
		return Transition{}, fmt.Errorf("reading current value: %w", err)
	}
	if t.HadOld, err = s.source.HadPriorRecord(ctx, id); err != nil {
		return Transition{}, fmt.Errorf("reading recorded state: %w", err)
	}
	if t.Old, err = s.source.FetchOldSecret(ctx, id); err != nil {
		return Transition{}, fmt.Errorf("reading previous value: %w", err)
	}
	if ri, ok := s.source.(ResetIndicator); ok {
		if t.Reset, err = ri.ResetRequested(ctx, id); err != nil {
			return Transition{}, fmt.Errorf("reading reset flag: %w", err)
		}
	}
	return t, nil
}

func (s *Store) applyChange(ctx context.Context, id ID, t Transition) error {
	info, _ := id.Info()
	if info.Owner != s.role {
		if t.New == nil {
			return fmt.Errorf("'%s' is not set, but the %s server recorded a value for it", info.Name, info.Owner)
		}
		return fmt.Errorf("'%s' does not match the value recorded by the %s server; only that server may change it", info.Name, info.Owner)
	}

	if tr := s.transitioners[id]; tr != nil {
		if err := tr.Transition(ctx, id, t.New, t.Old, t.HadOld); err != nil {
			return err
		}
	}

	if rec, ok := s.source.(Recorder); ok {
		if err := rec.Record(ctx, id, t.New); err != nil {
			return fmt.Errorf("recording new value: %w", err)
		}
	}

	switch {
	case t.New == nil:
		s.logger.Info("Removed '%s'", info.Name)
	case t.HadOld:
		s.logger.Info("Successfully transitioned '%s' to its new value", info.Name)
	default:
		s.logger.Info("Recorded first value of '%s'", info.Name)
	}
	return nil
}
