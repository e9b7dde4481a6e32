package fakes

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/systmms/secretmgr/pkg/secrets"
)

// FakeSource is an in-memory secrets.Source that also implements
// secrets.Recorder and secrets.ResetIndicator.
//
// Recording a value behaves like the digest ledger: afterwards HadPriorRecord
// is true, and FetchOldSecret returns the current value when it equals the
// recorded one and no explicit old value is configured.
//
//	src := fakes.NewFakeSource().
//	    WithNew(secrets.TOTPMasterKey, big.NewInt(42)).
//	    WithDelay(10 * time.Millisecond)
//	store := secrets.New(src)
type FakeSource struct {
	mu sync.Mutex

	newValues map[secrets.ID]*big.Int
	oldValues map[secrets.ID]*big.Int
	recorded  map[secrets.ID]*big.Int
	hadOld    map[secrets.ID]bool
	reset     map[secrets.ID]bool
	failOn    map[secrets.ID]error
	recordErr error
	delay     time.Duration

	fetchCalls  map[secrets.ID]int
	recordCalls map[secrets.ID]int
}

// NewFakeSource creates an empty source: every secret is not configured.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		newValues:   make(map[secrets.ID]*big.Int),
		oldValues:   make(map[secrets.ID]*big.Int),
		recorded:    make(map[secrets.ID]*big.Int),
		hadOld:      make(map[secrets.ID]bool),
		reset:       make(map[secrets.ID]bool),
		failOn:      make(map[secrets.ID]error),
		fetchCalls:  make(map[secrets.ID]int),
		recordCalls: make(map[secrets.ID]int),
	}
}

// WithNew configures the current value.
func (f *FakeSource) WithNew(id secrets.ID, v *big.Int) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newValues[id] = v
	return f
}

// WithOld configures the previous value.
func (f *FakeSource) WithOld(id secrets.ID, v *big.Int) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oldValues[id] = v
	return f
}

// WithRecorded pretends an earlier run recorded v.
func (f *FakeSource) WithRecorded(id secrets.ID, v *big.Int) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded[id] = v
	f.hadOld[id] = true
	return f
}

// WithHadOld forces HadPriorRecord without a recorded value.
func (f *FakeSource) WithHadOld(id secrets.ID, had bool) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hadOld[id] = had
	return f
}

// WithReset sets the reset flag.
func (f *FakeSource) WithReset(id secrets.ID, reset bool) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset[id] = reset
	return f
}

// WithError makes every fetch for id fail.
func (f *FakeSource) WithError(id secrets.ID, err error) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[id] = err
	return f
}

// WithRecordError makes Record fail.
func (f *FakeSource) WithRecordError(err error) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordErr = err
	return f
}

// WithDelay slows FetchNewSecret down, honoring context cancellation.
func (f *FakeSource) WithDelay(d time.Duration) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
	return f
}

// FetchNewSecret implements secrets.Source.
func (f *FakeSource) FetchNewSecret(ctx context.Context, id secrets.ID) (*big.Int, error) {
	f.mu.Lock()
	f.fetchCalls[id]++
	delay := f.delay
	err := f.failOn[id]
	v := copyInt(f.newValues[id])
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FetchOldSecret implements secrets.Source.
func (f *FakeSource) FetchOldSecret(ctx context.Context, id secrets.ID) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failOn[id]; err != nil {
		return nil, err
	}
	if old, ok := f.oldValues[id]; ok && old != nil {
		return copyInt(old), nil
	}
	if cur, rec := f.newValues[id], f.recorded[id]; cur != nil && rec != nil && cur.Cmp(rec) == 0 {
		return copyInt(cur), nil
	}
	return nil, nil
}

// HadPriorRecord implements secrets.Source.
func (f *FakeSource) HadPriorRecord(ctx context.Context, id secrets.ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failOn[id]; err != nil {
		return false, err
	}
	return f.hadOld[id], nil
}

// ResetRequested implements secrets.ResetIndicator.
func (f *FakeSource) ResetRequested(ctx context.Context, id secrets.ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reset[id], nil
}

// Record implements secrets.Recorder.
func (f *FakeSource) Record(ctx context.Context, id secrets.ID, value *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recordCalls[id]++
	if f.recordErr != nil {
		return f.recordErr
	}
	if value == nil {
		delete(f.recorded, id)
		f.hadOld[id] = false
	} else {
		f.recorded[id] = copyInt(value)
		f.hadOld[id] = true
	}
	// the previous value has been migrated away from
	delete(f.oldValues, id)
	return nil
}

// FetchCount returns how many times FetchNewSecret was called for id.
func (f *FakeSource) FetchCount(id secrets.ID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls[id]
}

// RecordCount returns how many times Record was called for id.
func (f *FakeSource) RecordCount(id secrets.ID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recordCalls[id]
}

// Recorded returns the value last recorded for id.
func (f *FakeSource) Recorded(id secrets.ID) (*big.Int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.recorded[id]
	return copyInt(v), ok
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
