// ABOUTME: Session validation over extracted cookie values
// ABOUTME: Pure CPU, uniform invalid outcome, no reason surfaced to callers

package session

import (
	"time"

	"github.com/wardgate/wardgate/internal/cryptoutil"
)

// Validator checks a presented session token against the request's resolved
// subdomain and device cookie. It never reports why a token failed: callers
// only see valid or invalid, so a caller cannot be used as a signature or
// claim oracle.
type Validator struct {
	keyring *Keyring
	crypto  cryptoutil.Provider
}

// NewValidator creates a Validator over the keyring and crypto provider.
func NewValidator(keyring *Keyring, crypto cryptoutil.Provider) *Validator {
	return &Validator{keyring: keyring, crypto: crypto}
}

// Validate reports whether the session token grants access to subdomain for
// a request presenting deviceCookie. Either value being absent is invalid.
//
// Keys are tried in order; the first key whose signature verifies wins and
// claim checks run once against its claims. All three claim checks must
// hold: unexpired, tenant matches, device hash matches.
func (v *Validator) Validate(sessionToken, deviceCookie, subdomain string, now time.Time) bool {
	if sessionToken == "" || deviceCookie == "" {
		return false
	}

	var claims *Claims
	for _, key := range v.keyring.VerificationKeys() {
		if c, ok := parseWithKey(sessionToken, key); ok {
			claims = c
			break
		}
	}
	if claims == nil {
		return false
	}

	if now.Unix() >= claims.ExpiresAt {
		return false
	}
	// Constant-time on tenant to avoid leaking valid tenant names by timing
	if !v.crypto.ConstantTimeEqual(claims.Tenant, subdomain) {
		return false
	}
	deviceHash := v.crypto.SHA256Hex([]byte(deviceCookie))
	return v.crypto.ConstantTimeEqual(claims.DeviceHash, deviceHash)
}
