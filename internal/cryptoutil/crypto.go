// ABOUTME: Crypto primitives shared by session validation and the gateway
// ABOUTME: HMAC-SHA256 signing, SHA-256 hex digests, constant-time comparison

package cryptoutil

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Provider is the crypto capability used by the gateway. Everything the
// request path needs is pure CPU; nothing here performs I/O.
type Provider interface {
	Sign(key, data []byte) []byte
	Verify(key, data, sig []byte) bool
	SHA256Hex(data []byte) string
	ConstantTimeEqual(a, b string) bool
}

// HMACProvider implements Provider over the standard crypto packages.
type HMACProvider struct{}

// NewProvider returns the default HMAC-SHA256 backed Provider.
func NewProvider() Provider {
	return HMACProvider{}
}

// Sign computes the HMAC-SHA256 of data under key.
func (HMACProvider) Sign(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// Verify reports whether sig is a valid HMAC-SHA256 of data under key.
// Comparison is constant-time.
func (p HMACProvider) Verify(key, data, sig []byte) bool {
	return hmac.Equal(p.Sign(key, data), sig)
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func (HMACProvider) SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqual compares two strings without leaking the position of
// the first differing byte. Unequal lengths return false immediately, which
// is fine for our inputs (digests and tenant labels of public length).
func (HMACProvider) ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RandomHex returns n random bytes as a 2n-character hex string.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
