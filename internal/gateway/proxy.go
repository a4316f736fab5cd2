// ABOUTME: Origin proxy forwarding requests to tenant backends
// ABOUTME: Rewrites Host, disables redirect following, synthesizes offline responses

package gateway

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wardgate/wardgate/internal/config"
)

// offlineStatuses are the gateway-error codes the tunnel provider's edge
// returns when the backend behind a tunnel is unreachable. Anything else is
// relayed as-is.
var offlineStatuses = map[int]bool{
	521: true, // web server is down
	522: true, // connection timed out
	523: true, // origin is unreachable
	526: true, // invalid SSL certificate
	530: true, // origin DNS error / tunnel not found
}

// hopByHopHeaders must not be forwarded between hops.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy issues exactly one outbound attempt per inbound request. No retries:
// a failed forward is terminal for that request.
type Proxy struct {
	client         *http.Client
	originTemplate string
	defaultOrigin  string
	pages          *Pages
	logger         *slog.Logger
}

// NewProxy builds a Proxy from configuration. The HTTP client never follows
// redirects; 3xx responses belong to the original client.
func NewProxy(cfg config.ProxyConfig, pages *Pages, logger *slog.Logger) *Proxy {
	return &Proxy{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		originTemplate: cfg.OriginTemplate,
		defaultOrigin:  cfg.DefaultOrigin,
		pages:          pages,
		logger:         logger.With("component", "proxy"),
	}
}

// Forward proxies the request to the tenant backend derived from backendID.
// The outbound Host header is the original public hostname: the backend
// routes on it, not on the provider-internal address.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, backendID, publicHost string) {
	base := fmt.Sprintf(p.originTemplate, backendID)
	resp, err := p.issue(r, base, publicHost)
	if err != nil {
		// Transport-level failure is the same user-facing condition as a
		// provider gateway-error status
		p.writeOffline(w, r)
		return
	}
	defer resp.Body.Close()

	if offlineStatuses[resp.StatusCode] {
		p.logger.Debug("origin unreachable", "backend", backendID, "status", resp.StatusCode)
		p.writeOffline(w, r)
		return
	}

	relay(w, resp)
}

// PassThrough forwards a non-tenant request to the default origin with its
// Host unmodified. Without a configured default origin these requests 404.
func (p *Proxy) PassThrough(w http.ResponseWriter, r *http.Request) {
	if p.defaultOrigin == "" {
		http.NotFound(w, r)
		return
	}

	resp, err := p.issue(r, p.defaultOrigin, r.Host)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	relay(w, resp)
}

// issue builds and sends the single outbound request.
func (p *Proxy) issue(r *http.Request, base, host string) (*http.Response, error) {
	outURL := strings.TrimSuffix(base, "/") + r.URL.RequestURI()
	req, err := http.NewRequestWithContext(r.Context(), r.Method, outURL, r.Body)
	if err != nil {
		return nil, fmt.Errorf("building outbound request: %w", err)
	}

	req.Header = r.Header.Clone()
	for _, h := range hopByHopHeaders {
		req.Header.Del(h)
	}
	req.Host = host

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("outbound fetch: %w", err)
	}
	return resp, nil
}

// relay copies the backend response to the client unmodified.
func relay(w http.ResponseWriter, resp *http.Response) {
	header := w.Header()
	for k, vals := range resp.Header {
		for _, v := range vals {
			header.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// writeOffline discards whatever the provider said and serves the synthesized
// offline page instead.
func (p *Proxy) writeOffline(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Robots-Tag", "noindex")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write(p.pages.Offline(r.Context()))
}
