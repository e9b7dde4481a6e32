package secrets

import (
	"fmt"
	"math/big"
)

// Transition is what the source reported for one secret.
type Transition struct {
	// New is the currently configured value, nil when unset.
	New *big.Int
	// Old is the previous value supplied for rotation, nil when unset.
	Old *big.Int
	// HadOld reports whether a value was recorded by an earlier run.
	HadOld bool
	// Reset marks an intentional break with the recorded history.
	Reset bool
}

// Changed reports whether accepting the transition replaces the recorded
// value, so that dependent data must be migrated and a new record written.
func (t Transition) Changed() bool {
	switch {
	case t.New != nil && t.Old != nil:
		return t.New.Cmp(t.Old) != 0
	case t.New == nil && t.Old == nil:
		return t.HadOld
	default:
		return true
	}
}

// TransitionError is the diagnostic for a rejected transition.
type TransitionError struct {
	ID     ID
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid configuration for '%s': %s", e.ID, e.Reason)
}

// ValidateTransition decides whether t is a legal outcome for id. It does no
// I/O. A nil result means the transition may be applied.
func ValidateTransition(id ID, t Transition) error {
	info, ok := id.Info()
	if !ok {
		return &TransitionError{ID: id, Reason: "unknown secret identifier"}
	}
	reject := func(format string, args ...interface{}) error {
		return &TransitionError{ID: id, Reason: fmt.Sprintf(format, args...)}
	}

	for _, v := range []struct {
		key   string
		value *big.Int
	}{{info.Name, t.New}, {info.OldName, t.Old}} {
		if v.value == nil {
			continue
		}
		if v.value.Sign() <= 0 {
			return reject("value of '%s' must be a non-zero positive number", v.key)
		}
		if v.value.BitLen() > info.Bits {
			return reject("value of '%s' is wider than %d bits", v.key, info.Bits)
		}
	}

	switch {
	case t.Old != nil && !t.HadOld:
		return reject("'%s' is set, but no previous value was ever recorded; remove it", info.OldName)

	case t.HadOld && t.New == nil && t.Old == nil:
		return reject("'%s' was configured before but is not set now; restore it, or set '%s' to the previous value to remove it", info.Name, info.OldName)

	case t.HadOld && t.New != nil && t.Old == nil && !t.Reset:
		return reject("'%s' does not match the recorded value; set '%s' to the previous value, or allow a reset to discard data protected by it", info.Name, info.OldName)
	}

	return nil
}
