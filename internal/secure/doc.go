// Package secure keeps loaded secret material encrypted in memory.
//
// A Box wraps a memguard enclave: the plaintext is encrypted with
// XSalsa20Poly1305 under a process-local key, and only decrypted into an
// mlock'ed buffer for the duration of a read.
//
//	box, err := secure.Seal(material) // material is wiped
//	if err != nil {
//	    return err
//	}
//	defer box.Destroy()
//
//	locked, err := box.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
//	use(locked.Bytes())
//
// If mlock is unavailable (RLIMIT_MEMLOCK) memguard degrades to ordinary
// memory; the at-rest encryption still applies.
//
// This does not protect against an attacker with root access to the
// process, or against hardware attacks.
package secure
