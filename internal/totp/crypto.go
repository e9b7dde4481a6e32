package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// KeySize is the width of the master key in bytes.
const KeySize = 16

// sealedOverhead is the GCM nonce plus tag length; plaintext seeds are shorter.
const sealedOverhead = 12 + 16

// ErrSealedTooShort is returned for sealed seeds shorter than nonce plus tag.
var ErrSealedTooShort = errors.New("sealed seed too short")

// KeyBytes converts a master key to its fixed-width AES key.
func KeyBytes(v *big.Int) ([]byte, error) {
	if v == nil || v.Sign() <= 0 {
		return nil, errors.New("master key is empty")
	}
	if (v.BitLen()+7)/8 > KeySize {
		return nil, fmt.Errorf("master key wider than %d bytes", KeySize)
	}
	return v.FillBytes(make([]byte, KeySize)), nil
}

// Seal encrypts seed with AES-GCM. The result is nonce || ciphertext || tag.
func Seal(key, seed []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, seed, nil), nil
}

// Open reverses Seal.
func Open(key, sealed []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrSealedTooShort
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	seed, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt seed: %w", err)
	}
	return seed, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
