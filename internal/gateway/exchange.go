// ABOUTME: Session minter for the one-shot exchange-token handshake
// ABOUTME: Redeems an externally-issued exchange record for a signed session cookie

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wardgate/wardgate/internal/cookie"
	"github.com/wardgate/wardgate/internal/tenant"
)

const maxExchangeBodyBytes = 4 * 1024

type exchangeRequest struct {
	ExchangeToken string `json:"exchangeToken"`
}

type exchangeResponse struct {
	Success bool `json:"success"`
}

// handleExchange converts a one-time exchange token into a session cookie.
// Every failure path returns without mutating the store; the only mutation
// in the system is the record deletion on the success path.
func (g *Gateway) handleExchange(w http.ResponseWriter, r *http.Request, sub string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxExchangeBodyBytes)

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ExchangeToken == "" {
		writeError(w, http.StatusBadRequest, "Missing exchange token")
		return
	}

	ctx := r.Context()

	rec, err := g.registry.ExchangeRecord(ctx, req.ExchangeToken)
	if errors.Is(err, tenant.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid or expired session token")
		return
	}
	if err != nil {
		g.internalError(w, r, err)
		return
	}

	// A token issued for one tenant must never mint a session on another
	if !g.crypto.ConstantTimeEqual(rec.Tenant, sub) {
		writeError(w, http.StatusForbidden, "Token was issued for a different site")
		return
	}

	deviceCookie, ok := cookie.Value(r, cookie.DeviceName)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing device key")
		return
	}

	// On mismatch the record is left unconsumed so a client that re-creates
	// its device key can restart the passcode flow.
	deviceHash := g.crypto.SHA256Hex([]byte(deviceCookie))
	if !g.crypto.ConstantTimeEqual(deviceHash, rec.DeviceHash) {
		writeError(w, http.StatusForbidden, "Device verification failed")
		return
	}

	now := time.Now()
	token, err := g.signer.Mint(sub, rec.DeviceHash, now, g.cfg.Auth.SessionTTL)
	if err != nil {
		g.internalError(w, r, err)
		return
	}

	if err := g.registry.ConsumeExchange(ctx, req.ExchangeToken); err != nil {
		g.internalError(w, r, err)
		return
	}

	http.SetCookie(w, cookie.SessionCookie(token, g.cfg.Auth.SessionTTL))
	writeJSON(w, http.StatusOK, exchangeResponse{Success: true})
}
