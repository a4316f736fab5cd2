// ABOUTME: Gateway construction and HTTP server lifecycle
// ABOUTME: Wires config, KV store, keyring, proxy, and pages into one handler

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wardgate/wardgate/internal/config"
	"github.com/wardgate/wardgate/internal/cryptoutil"
	"github.com/wardgate/wardgate/internal/session"
	"github.com/wardgate/wardgate/internal/store"
	"github.com/wardgate/wardgate/internal/tenant"
)

// Gateway is the edge authentication gateway. Each request is handled as an
// independent, stateless evaluation: no session, secret, or tenant record is
// cached across requests, so any number of instances can run uncoordinated.
type Gateway struct {
	cfg       *config.Config
	registry  *tenant.Registry
	validator *session.Validator
	signer    *session.Signer
	crypto    cryptoutil.Provider
	proxy     *Proxy
	pages     *Pages
	skipHosts map[string]bool
	logger    *slog.Logger
}

// New builds a Gateway over the given KV binding.
func New(cfg *config.Config, kv store.KV, logger *slog.Logger) (*Gateway, error) {
	keyring, err := session.NewKeyring(cfg.Auth.Keys)
	if err != nil {
		return nil, fmt.Errorf("building keyring: %w", err)
	}

	crypto := cryptoutil.NewProvider()
	pages := NewPages(cfg.Pages, logger)

	skip := make(map[string]bool, len(cfg.Domain.SkipHosts))
	for _, h := range cfg.Domain.SkipHosts {
		skip[strings.ToLower(h)] = true
	}

	return &Gateway{
		cfg:       cfg,
		registry:  tenant.NewRegistry(kv),
		validator: session.NewValidator(keyring, crypto),
		signer:    session.NewSigner(keyring),
		crypto:    crypto,
		proxy:     NewProxy(cfg.Proxy, pages, logger),
		pages:     pages,
		skipHosts: skip,
		logger:    logger.With("component", "gateway"),
	}, nil
}

// Handler returns the root HTTP handler with panic recovery applied.
func (g *Gateway) Handler() http.Handler {
	return g.recoverer(http.HandlerFunc(g.dispatch))
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         g.cfg.Server.HTTPAddr,
		Handler:      g.Handler(),
		ReadTimeout:  g.cfg.Server.ReadTimeout,
		WriteTimeout: g.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("gateway listening", "addr", srv.Addr, "tenant_domain", g.cfg.Domain.TenantDomain)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving HTTP: %w", err)
	case <-ctx.Done():
	}

	g.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
