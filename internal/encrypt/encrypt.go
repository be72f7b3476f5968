// Package encrypt provides authenticated at-rest encryption for stored
// documents using NaCl secretbox (XSalsa20-Poly1305).
package encrypt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeySize is the secretbox key length in bytes.
	KeySize = 32
	// NonceSize is the secretbox nonce length in bytes.
	NonceSize = 24
)

var (
	// ErrKeyNotFound signals a missing key file.
	ErrKeyNotFound = errors.New("encryption key file not found")
	// ErrInvalidKey signals a key file whose content is not base64 of exactly KeySize bytes.
	ErrInvalidKey = errors.New("invalid encryption key format")
	// ErrDecrypt signals an authentication failure; the payload was tampered
	// with or encrypted under a different key.
	ErrDecrypt = errors.New("unable to decrypt data")
)

// Encryptor seals and opens byte payloads under a single long-lived key
// loaded at process start. Safe for concurrent use.
type Encryptor struct {
	key [KeySize]byte
}

// NewFromFile loads the base64-encoded key from the given path. The file must
// exist and decode to exactly KeySize bytes or initialization fails.
func NewFromFile(path string) (*Encryptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("read encryption key %s: %w", path, err)
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	enc := &Encryptor{}
	copy(enc.key[:], key)
	return enc, nil
}

// Encrypt seals the plaintext with a fresh random nonce and returns
// base64(nonce || ciphertext).
func (e *Encryptor) Encrypt(plaintext []byte) (string, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &e.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a payload produced by Encrypt. It fails with ErrDecrypt when
// authentication fails; partial or unauthenticated plaintext is never
// returned.
func (e *Encryptor) Decrypt(encoded string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode encrypted payload: %w", err)
	}
	if len(decoded) < NonceSize {
		return nil, ErrDecrypt
	}

	var nonce [NonceSize]byte
	copy(nonce[:], decoded[:NonceSize])

	plaintext, ok := secretbox.Open(nil, decoded[NonceSize:], &nonce, &e.key)
	if !ok {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// GenerateKey returns a fresh random secretbox key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// WriteKeyFile stores a base64-encoded key at path with owner-only read
// permission. It refuses to overwrite an existing key.
func WriteKeyFile(path string, key []byte) error {
	if len(key) != KeySize {
		return ErrInvalidKey
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file already exists: %s", path)
	}

	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(path, []byte(encoded), 0o400); err != nil {
		return fmt.Errorf("write key file %s: %w", path, err)
	}
	return nil
}
