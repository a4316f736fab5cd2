// ABOUTME: Per-request dispatch state machine for the edge gateway
// ABOUTME: Sequential gates, first match wins, exactly one response per request

package gateway

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/wardgate/wardgate/internal/cookie"
	"github.com/wardgate/wardgate/internal/tenant"
)

// ExchangePath is the session-exchange endpoint served on every gated tenant.
const ExchangePath = "/.exchange-session"

// dispatch evaluates the gate ladder in order. Each check must pass before
// the next runs; the first matching gate produces the response.
func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request) {
	host := normalizeHost(r.Host)

	// Management and bare hostnames never run gating logic, and neither does
	// anything outside the tenant domain. Zero store reads on this path.
	if g.skipHosts[host] {
		if r.URL.Path == "/healthz" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write([]byte("ok\n"))
			return
		}
		g.proxy.PassThrough(w, r)
		return
	}

	sub, ok := tenant.Subdomain(host, g.cfg.Domain.TenantDomain)
	if !ok {
		g.proxy.PassThrough(w, r)
		return
	}

	// Crawler disallow is served regardless of gating state
	if r.URL.Path == "/robots.txt" {
		writeRobots(w)
		return
	}

	ctx := r.Context()

	reg, err := g.registry.Registration(ctx, sub)
	if errors.Is(err, tenant.ErrNotFound) {
		// Subdomain never claimed; nothing to gate, nothing to proxy
		http.Redirect(w, r, g.cfg.Domain.MarketingURL, http.StatusFound)
		return
	}
	if err != nil {
		g.internalError(w, r, err)
		return
	}

	gated, err := g.registry.GatingEnabled(ctx, sub)
	if err != nil {
		g.internalError(w, r, err)
		return
	}
	if !gated {
		g.proxy.Forward(w, r, reg.BackendID, host)
		return
	}

	if r.URL.Path == ExchangePath && r.Method == http.MethodPost {
		g.handleExchange(w, r, sub)
		return
	}

	if g.bypassAllowed(r, sub) {
		g.proxy.Forward(w, r, reg.BackendID, host)
		return
	}

	sessionToken, _ := cookie.Value(r, cookie.SessionName)
	deviceCookie, _ := cookie.Value(r, cookie.DeviceName)
	if g.validator.Validate(sessionToken, deviceCookie, sub, time.Now()) {
		cookie.Strip(r, cookie.SessionName, cookie.DeviceName)
		g.proxy.Forward(w, r, reg.BackendID, host)
		return
	}

	g.writeChallenge(w, r)
}

// bypassAllowed reports whether the automation relay may skip validation for
// this request. The relay is confined to the bypass path prefix, minus the
// authorize sub-path which always goes through the normal flow.
func (g *Gateway) bypassAllowed(r *http.Request, sub string) bool {
	prefix := g.cfg.Bypass.PathPrefix
	if !strings.HasPrefix(r.URL.Path, prefix) {
		return false
	}
	if strings.HasPrefix(r.URL.Path, prefix+"authorize") {
		return false
	}

	presented := r.Header.Get(g.cfg.Bypass.Header)
	if presented == "" {
		return false
	}

	secret, err := g.registry.BypassSecret(r.Context(), sub)
	if err != nil {
		return false
	}
	return g.crypto.ConstantTimeEqual(presented, secret)
}

// normalizeHost lower-cases the Host header and strips any port.
func normalizeHost(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}
