// ABOUTME: Ordered HMAC keyring supporting zero-downtime secret rotation
// ABOUTME: Signs with the first key, verifies against every listed key in order

package session

import (
	"errors"
	"fmt"
)

// MinKeyLength is the minimum HMAC key length in bytes. 32 bytes matches the
// HS256 hash output size.
const MinKeyLength = 32

// Keyring errors
var (
	ErrNoKeys   = errors.New("keyring requires at least one key")
	ErrShortKey = errors.New("key is too short")
)

// Keyring holds the ordered verification keys. The first key is current and
// is the only one used for signing; the rest are legacy keys kept valid
// while a rotation drains. The list is read-only after construction.
type Keyring struct {
	keys [][]byte
}

// NewKeyring builds a keyring from the configured key list, current first.
func NewKeyring(keys []string) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	kr := &Keyring{keys: make([][]byte, 0, len(keys))}
	for i, k := range keys {
		if len(k) < MinKeyLength {
			return nil, fmt.Errorf("%w: key %d is %d bytes, need at least %d", ErrShortKey, i, len(k), MinKeyLength)
		}
		kr.keys = append(kr.keys, []byte(k))
	}
	return kr, nil
}

// SigningKey returns the current key.
func (k *Keyring) SigningKey() []byte {
	return k.keys[0]
}

// VerificationKeys returns every key, current first.
func (k *Keyring) VerificationKeys() [][]byte {
	return k.keys
}
