// ABOUTME: Session token minting and parsing using HS256 JWTs
// ABOUTME: Claims bind a tenant and a device hash with issue/expiry times

package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields carried by a signed session token. Immutable once
// signed; there is no server-side revocation, only expiry.
type Claims struct {
	Tenant     string
	DeviceHash string
	IssuedAt   int64
	ExpiresAt  int64
}

// Signer mints session tokens under the keyring's current key.
type Signer struct {
	keyring *Keyring
}

// NewSigner creates a Signer over the given keyring.
func NewSigner(keyring *Keyring) *Signer {
	return &Signer{keyring: keyring}
}

// Mint signs a new session token for the tenant/device pair, valid for ttl.
func (s *Signer) Mint(tenant, deviceHash string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"tenant":      tenant,
		"device_hash": deviceHash,
		"iat":         now.Unix(),
		"exp":         now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.keyring.SigningKey())
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// tokenParser verifies signatures only; claim checks (expiry, tenant, device
// binding) run explicitly in the validator so they can use constant-time
// comparisons and a uniform failure outcome.
var tokenParser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithoutClaimsValidation(),
)

// parseWithKey attempts signature verification of tokenString under a single
// key and extracts the claims on success.
func parseWithKey(tokenString string, key []byte) (*Claims, bool) {
	token, err := tokenParser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}

	tenant, ok := mc["tenant"].(string)
	if !ok {
		return nil, false
	}
	deviceHash, ok := mc["device_hash"].(string)
	if !ok {
		return nil, false
	}
	iat, ok := mc["iat"].(float64)
	if !ok {
		return nil, false
	}
	exp, ok := mc["exp"].(float64)
	if !ok {
		return nil, false
	}

	return &Claims{
		Tenant:     tenant,
		DeviceHash: deviceHash,
		IssuedAt:   int64(iat),
		ExpiresAt:  int64(exp),
	}, true
}
