package secrets

// State is the lifecycle position of a slot.
type State int

const (
	// NotLoaded means no load was attempted since the last Initialize.
	NotLoaded State = iota
	// LoadFailed means the source failed or the configuration was rejected.
	LoadFailed
	// NotPresent means the source confirmed no secret is configured.
	NotPresent
	// Present means a validated value is held.
	Present
)

func (s State) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case LoadFailed:
		return "load_failed"
	case NotPresent:
		return "not_present"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// IsAvailable reports whether the state is a definitive answer, whether or
// not a secret exists.
func (s State) IsAvailable() bool {
	return s == NotPresent || s == Present
}
