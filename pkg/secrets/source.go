package secrets

import (
	"context"
	"math/big"
)

// Source supplies raw secret material. Implementations must be safe for
// concurrent use by different IDs; the store never calls them concurrently
// for the same ID.
type Source interface {
	// FetchNewSecret returns the currently configured value, or nil when
	// the secret is not configured.
	FetchNewSecret(ctx context.Context, id ID) (*big.Int, error)

	// FetchOldSecret returns the previous value to migrate from, or nil.
	FetchOldSecret(ctx context.Context, id ID) (*big.Int, error)

	// HadPriorRecord reports whether a value was recorded for id by an
	// earlier run, whether or not one is configured now.
	HadPriorRecord(ctx context.Context, id ID) (bool, error)
}

// ResetIndicator is implemented by sources that can mark a changed value as
// an intentional reset of the recorded history.
type ResetIndicator interface {
	ResetRequested(ctx context.Context, id ID) (bool, error)
}

// Recorder is implemented by sources that persist which value is current.
// A nil value removes the record.
type Recorder interface {
	Record(ctx context.Context, id ID, value *big.Int) error
}

// Transitioner migrates data protected by a secret when the secret changes.
// oldSecret is nil when the previous value is unknown or there was none;
// newSecret is nil when the secret is being removed.
type Transitioner interface {
	Transition(ctx context.Context, id ID, newSecret, oldSecret *big.Int, hadOld bool) error
}

// TransitionerFunc adapts a function to Transitioner.
type TransitionerFunc func(ctx context.Context, id ID, newSecret, oldSecret *big.Int, hadOld bool) error

func (f TransitionerFunc) Transition(ctx context.Context, id ID, newSecret, oldSecret *big.Int, hadOld bool) error {
	return f(ctx, id, newSecret, oldSecret, hadOld)
}
