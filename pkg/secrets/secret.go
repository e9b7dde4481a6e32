package secrets

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/systmms/secretmgr/internal/secure"
)

var (
	// ErrNotLoaded is returned when reading a view of a slot that was never loaded.
	ErrNotLoaded = errors.New("secret not loaded")
	// ErrLoadFailed is returned when reading a view of a slot whose load failed.
	ErrLoadFailed = errors.New("secret failed to load")
	// ErrNotPresent is returned when reading a view of a secret that is not configured.
	ErrNotPresent = errors.New("secret not configured")
)

// Secret is a read-only snapshot of one slot. The zero value is a NotLoaded
// view. A Secret stays valid after the store is reinitialized; it keeps
// describing the outcome it was taken from.
type Secret struct {
	id    ID
	state State
	box   *secure.Box
}

// ID returns the identifier this view was taken from.
func (s Secret) ID() ID { return s.id }

// State returns the slot state at the time of the snapshot.
func (s Secret) State() State { return s.state }

// OK reports whether a usable value is held.
func (s Secret) OK() bool { return s.state == Present && s.box != nil }

// IsAvailable reports whether loading reached a definitive answer.
func (s Secret) IsAvailable() bool { return s.state.IsAvailable() }

// Err explains why the view holds no value, or returns nil when it does.
func (s Secret) Err() error {
	switch {
	case s.OK():
		return nil
	case s.state == NotPresent:
		return fmt.Errorf("%s: %w", s.id, ErrNotPresent)
	case s.state == LoadFailed:
		return fmt.Errorf("%s: %w", s.id, ErrLoadFailed)
	default:
		return fmt.Errorf("%s: %w", s.id, ErrNotLoaded)
	}
}

// Value returns a copy of the secret. Callers own the returned integer.
func (s Secret) Value() (*big.Int, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	raw, err := s.box.Copy()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.id, err)
	}
	defer wipe(raw)
	return new(big.Int).SetBytes(raw), nil
}

// Bytes returns the secret as a big-endian slice of exactly size bytes.
func (s Secret) Bytes(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%s: invalid size %d", s.id, size)
	}
	v, err := s.Value()
	if err != nil {
		return nil, err
	}
	if (v.BitLen()+7)/8 > size {
		return nil, fmt.Errorf("%s: value does not fit in %d bytes", s.id, size)
	}
	return v.FillBytes(make([]byte, size)), nil
}

// MustValue is Value for callers that already checked OK. It panics on an
// absent secret.
func (s Secret) MustValue() *big.Int {
	v, err := s.Value()
	if err != nil {
		panic(err)
	}
	return v
}

// String never includes the secret material.
func (s Secret) String() string {
	return fmt.Sprintf("%s(%s)", s.id, s.state)
}

// GoString keeps %#v from printing the enclave.
func (s Secret) GoString() string {
	return s.String()
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
