package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

var (
	// ErrEmpty is returned when sealing zero bytes.
	ErrEmpty = errors.New("secure: refusing to seal empty material")

	// ErrDestroyed is returned by reads after Destroy.
	ErrDestroyed = errors.New("secure: box destroyed")
)

// Box holds secret bytes inside a memguard enclave.
//
// A Box is safe for concurrent use. Destroy only drops the reference to the
// enclave; the ciphertext is garbage collected and memguard.Purge wipes the
// enclave key at process exit.
type Box struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	size      int
	destroyed bool
}

// Seal moves data into a new Box. data is wiped by memguard and must not be
// used afterwards.
func Seal(data []byte) (*Box, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	size := len(data)
	enclave := memguard.NewEnclave(data)
	if enclave == nil {
		return nil, ErrEmpty
	}
	return &Box{enclave: enclave, size: size}, nil
}

// Open decrypts the material into a locked buffer. The caller must Destroy
// the returned buffer.
func (b *Box) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return nil, ErrDestroyed
	}
	return b.enclave.Open()
}

// Copy returns the plaintext as an ordinary heap slice.
func (b *Box) Copy() ([]byte, error) {
	locked, err := b.Open()
	if err != nil {
		return nil, err
	}
	defer locked.Destroy()

	out := make([]byte, locked.Size())
	copy(out, locked.Bytes())
	return out, nil
}

// Size is the plaintext length in bytes.
func (b *Box) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.destroyed {
		return 0
	}
	return b.size
}

// Destroy makes the Box unusable. It is idempotent.
func (b *Box) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.enclave = nil
	b.destroyed = true
}
