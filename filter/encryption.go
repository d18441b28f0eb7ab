package filter

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the XChaCha20-Poly1305 key length in bytes.
const KeySize = chacha20poly1305.KeySize

// XChaCha20Poly1305 encrypts each chunk with a fresh random nonce, stored as
// the chunk metadata. Tampered chunks fail to decrypt.
type XChaCha20Poly1305 struct {
	aead cipher.AEAD
}

// NewXChaCha20Poly1305 returns an encryption filter for a KeySize-byte key.
func NewXChaCha20Poly1305(key []byte) (*XChaCha20Poly1305, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("filter: xchacha20poly1305: %w", err)
	}
	return &XChaCha20Poly1305{aead: aead}, nil
}

func (x *XChaCha20Poly1305) Type() Type { return TypeXChaCha20Poly1305 }

func (x *XChaCha20Poly1305) Forward(in []byte, _ int) ([]byte, []byte, error) {
	nonce := make([]byte, x.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	return x.aead.Seal(nil, nonce, in, nil), nonce, nil
}

func (x *XChaCha20Poly1305) Reverse(in, meta []byte, _ int) ([]byte, error) {
	if len(meta) != x.aead.NonceSize() {
		return nil, corruptf("nonce of %d bytes", len(meta))
	}
	out, err := x.aead.Open(nil, meta, in, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChecksum, err)
	}
	return out, nil
}

// Params is empty. The key is never persisted.
func (x *XChaCha20Poly1305) Params() []byte { return nil }
