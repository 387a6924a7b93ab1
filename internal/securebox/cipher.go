// Package securebox provides authenticated encryption for the storage snapshot.
package securebox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// ErrDecryptFailed indicates that the ciphertext could not be authenticated.
// This means a wrong secret key or a tampered payload; the plaintext is never
// partially recovered.
var ErrDecryptFailed = errors.New("decrypt failed: wrong key or tampered data")

// Cipher seals and opens byte payloads with AES-256-GCM. The secret supplied
// by the operator is hashed to derive a fixed-size key, so any non-empty
// string works as key material. Safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New derives an AES-256 key from secret and returns a ready Cipher.
func New(secret []byte) (*Cipher, error) {
	if len(secret) == 0 {
		return nil, errors.New("securebox: empty secret")
	}

	key := sha256.Sum256(secret)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("securebox: init cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("securebox: init gcm: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random nonce. The nonce is prepended
// to the returned ciphertext so Decrypt can recover it.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("securebox: nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a payload produced by Encrypt. Authentication failures are
// reported as ErrDecryptFailed and must be treated as fatal by callers that
// load persistent state.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrDecryptFailed
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return plaintext, nil
}
