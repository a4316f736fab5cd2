// ABOUTME: Read-mostly tenant registry resolved from the external KV store
// ABOUTME: Registrations, gating flags, bypass secrets, and one-time exchange records

package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wardgate/wardgate/internal/store"
)

// Key prefixes in the external store. The registration system and the
// passcode-verification service write under the same prefixes; the gateway
// treats everything except exchange records as read-only.
const (
	keyTenant   = "tenant:"
	keyGate     = "gate:"
	keyBypass   = "bypass:"
	keyExchange = "exchange:"
)

// ErrNotFound is returned when a registry record does not exist.
var ErrNotFound = errors.New("registry record not found")

// Registration is the external, read-only record claiming a subdomain.
type Registration struct {
	BackendID         string `json:"backend_id"`
	CreatedAt         int64  `json:"created_at"`
	ManagementKeyHash string `json:"management_key_hash,omitempty"`
}

// ExchangeRecord is the ephemeral record the passcode-verification service
// writes after a correct code entry. Redeemed exactly once for a session.
type ExchangeRecord struct {
	Tenant     string `json:"tenant"`
	DeviceHash string `json:"device_hash"`
	CreatedAt  int64  `json:"created_at"`
}

// Registry resolves per-tenant records from the KV store. It holds no cache:
// every call re-reads the store, because the gateway runs as many
// uncoordinated instances.
type Registry struct {
	kv store.KV
}

// NewRegistry wraps a KV binding.
func NewRegistry(kv store.KV) *Registry {
	return &Registry{kv: kv}
}

// Registration resolves the tenant registration for a subdomain.
// Returns ErrNotFound when the subdomain has never been claimed.
func (r *Registry) Registration(ctx context.Context, subdomain string) (*Registration, error) {
	raw, err := r.kv.Get(ctx, keyTenant+subdomain)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving registration for %q: %w", subdomain, err)
	}

	var reg Registration
	if err := json.Unmarshal([]byte(raw), &reg); err != nil {
		return nil, fmt.Errorf("decoding registration for %q: %w", subdomain, err)
	}
	return &reg, nil
}

// GatingEnabled reports whether the tenant has opted in to passcode gating.
// The record's existence is the flag; its content is ignored.
func (r *Registry) GatingEnabled(ctx context.Context, subdomain string) (bool, error) {
	_, err := r.kv.Get(ctx, keyGate+subdomain)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolving gating flag for %q: %w", subdomain, err)
	}
	return true, nil
}

// BypassSecret returns the tenant's relay bypass secret, or ErrNotFound.
func (r *Registry) BypassSecret(ctx context.Context, subdomain string) (string, error) {
	secret, err := r.kv.Get(ctx, keyBypass+subdomain)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolving bypass secret for %q: %w", subdomain, err)
	}
	return secret, nil
}

// ExchangeRecord looks up a one-time exchange record by its token.
func (r *Registry) ExchangeRecord(ctx context.Context, token string) (*ExchangeRecord, error) {
	raw, err := r.kv.Get(ctx, keyExchange+token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving exchange record: %w", err)
	}

	var rec ExchangeRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decoding exchange record: %w", err)
	}
	return &rec, nil
}

// ConsumeExchange deletes an exchange record. This is the single mutation the
// request path performs. Get-then-delete is not atomic under the KV contract.
func (r *Registry) ConsumeExchange(ctx context.Context, token string) error {
	if err := r.kv.Delete(ctx, keyExchange+token); err != nil {
		return fmt.Errorf("consuming exchange record: %w", err)
	}
	return nil
}

// PutRegistration writes a tenant registration. Used by the admin CLI and
// tests; production registrations come from the external registration system.
func (r *Registry) PutRegistration(ctx context.Context, subdomain string, reg *Registration) error {
	if reg.CreatedAt == 0 {
		reg.CreatedAt = time.Now().Unix()
	}
	raw, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encoding registration: %w", err)
	}
	return r.kv.Put(ctx, keyTenant+subdomain, string(raw))
}

// SetGating enables or disables passcode gating for a tenant.
func (r *Registry) SetGating(ctx context.Context, subdomain string, enabled bool) error {
	if !enabled {
		return r.kv.Delete(ctx, keyGate+subdomain)
	}
	raw, _ := json.Marshal(map[string]int64{"enabled_at": time.Now().Unix()})
	return r.kv.Put(ctx, keyGate+subdomain, string(raw))
}

// PutBypassSecret stores a tenant's relay bypass secret.
func (r *Registry) PutBypassSecret(ctx context.Context, subdomain, secret string) error {
	return r.kv.Put(ctx, keyBypass+subdomain, secret)
}

// PutExchangeRecord stores a one-time exchange record under its token.
func (r *Registry) PutExchangeRecord(ctx context.Context, token string, rec *ExchangeRecord) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding exchange record: %w", err)
	}
	return r.kv.Put(ctx, keyExchange+token, string(raw))
}

// Subdomain extracts the tenant label from a host under the given domain
// suffix. Returns ok=false for the bare domain, nested labels, or hosts
// outside the suffix entirely.
func Subdomain(host, domainSuffix string) (string, bool) {
	suffix := "." + domainSuffix
	if !strings.HasSuffix(host, suffix) {
		return "", false
	}
	label := strings.TrimSuffix(host, suffix)
	if label == "" || strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}
