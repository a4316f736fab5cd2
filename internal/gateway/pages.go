// ABOUTME: Challenge and offline page sourcing with embedded fallbacks
// ABOUTME: Fetches from the external page generator when one is configured

package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wardgate/wardgate/internal/assets"
	"github.com/wardgate/wardgate/internal/config"
)

const maxPageBytes = 256 * 1024

// Pages resolves the HTML bodies the gateway serves itself. Presentation is
// owned by an external page generator; the embedded copies exist so an
// unreachable generator never takes the challenge flow down with it.
type Pages struct {
	challengeURL string
	offlineURL   string
	client       *http.Client
	logger       *slog.Logger
}

// NewPages builds a Pages source from configuration.
func NewPages(cfg config.PagesConfig, logger *slog.Logger) *Pages {
	return &Pages{
		challengeURL: cfg.ChallengeURL,
		offlineURL:   cfg.OfflineURL,
		client:       &http.Client{Timeout: 3 * time.Second},
		logger:       logger.With("component", "pages"),
	}
}

// Challenge returns the passcode challenge page body.
func (p *Pages) Challenge(ctx context.Context) []byte {
	return p.resolve(ctx, p.challengeURL, assets.ChallengePage())
}

// Offline returns the origin-offline page body.
func (p *Pages) Offline(ctx context.Context) []byte {
	return p.resolve(ctx, p.offlineURL, assets.OfflinePage())
}

func (p *Pages) resolve(ctx context.Context, url string, fallback []byte) []byte {
	if url == "" {
		return fallback
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fallback
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("page generator unreachable, using embedded page", "url", url, "error", err)
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("page generator returned non-200, using embedded page", "url", url, "status", resp.StatusCode)
		return fallback
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil || len(body) == 0 {
		return fallback
	}
	return body
}
