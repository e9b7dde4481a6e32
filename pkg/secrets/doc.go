// Package secrets is the in-process registry of sensitive values such as the
// TOTP master key.
//
// A Store owns one slot per ID. Each slot is loaded at most once per run
// from a Source, either lazily by Get or eagerly by Initialize, and the
// outcome is cached:
//
//	NotLoaded ──load──▶ Present | NotPresent | LoadFailed
//
// Only Initialize moves a slot back to NotLoaded. A failed load is sticky:
// the source is not asked again until the next Initialize.
//
// Before a value is accepted, the (new, old, previously-recorded) triple
// returned by the Source is checked by ValidateTransition. A change of value
// can migrate data protected by the old value through a Transitioner and is
// then recorded through the Source's optional Recorder capability.
//
// Callers never see load errors directly. They branch on the returned view:
//
//	key := store.Get(secrets.TOTPMasterKey)
//	if !key.OK() {
//	    // feature disabled
//	}
//	material, err := key.Bytes(16)
//
// Store is safe for concurrent use. Slots are locked independently, so
// loading one secret never blocks readers of another.
package secrets
