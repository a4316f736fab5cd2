// ABOUTME: Configuration loading and parsing for wardgate
// ABOUTME: YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete wardgate configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Domain  DomainConfig  `yaml:"domain"`
	Auth    AuthConfig    `yaml:"auth"`
	Store   StoreConfig   `yaml:"store"`
	Proxy   ProxyConfig   `yaml:"proxy"`
	Bypass  BypassConfig  `yaml:"bypass"`
	Pages   PagesConfig   `yaml:"pages"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds listener configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	ReadTimeout  time.Duration `yaml:"-"`
	WriteTimeout time.Duration `yaml:"-"`

	ReadTimeoutRaw  string `yaml:"read_timeout"`
	WriteTimeoutRaw string `yaml:"write_timeout"`
}

// DomainConfig describes the wildcard tenant domain and its exclusions.
type DomainConfig struct {
	// TenantDomain is the suffix under which tenants live, e.g.
	// "tunnel.example.com" serves tenants at "<name>.tunnel.example.com".
	TenantDomain string `yaml:"tenant_domain"`

	// SkipHosts are bare/management hostnames that never run gating logic.
	SkipHosts []string `yaml:"skip_hosts"`

	// MarketingURL receives redirects for unclaimed subdomains.
	MarketingURL string `yaml:"marketing_url"`
}

// AuthConfig holds session signing configuration.
type AuthConfig struct {
	// Keys is the ordered HMAC key list: current signing key first, then
	// legacy keys still accepted for verification during rotation.
	Keys []string `yaml:"keys"`

	SessionTTL time.Duration `yaml:"-"`

	SessionTTLRaw string `yaml:"session_ttl"`
}

// StoreConfig holds the KV binding configuration.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ProxyConfig holds origin addressing configuration.
type ProxyConfig struct {
	// OriginTemplate expands a backend identifier into the provider-specific
	// origin base URL, e.g. "http://%s.tunnels.internal:8080".
	OriginTemplate string `yaml:"origin_template"`

	// DefaultOrigin receives requests for skip-list and non-tenant hosts.
	// When empty those requests get a 404.
	DefaultOrigin string `yaml:"default_origin"`
}

// BypassConfig holds the automation-relay bypass configuration.
type BypassConfig struct {
	// Header carries the shared relay secret.
	Header string `yaml:"header"`

	// PathPrefix is the path namespace the relay is allowed to bypass into.
	PathPrefix string `yaml:"path_prefix"`
}

// PagesConfig points at the external page generator. Both URLs are optional;
// embedded fallbacks are used when unset or unreachable.
type PagesConfig struct {
	ChallengeURL string `yaml:"challenge_url"`
	OfflineURL   string `yaml:"offline_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":8080"
	}
	if cfg.Bypass.Header == "" {
		cfg.Bypass.Header = "X-Wardgate-Relay-Key"
	}
	if cfg.Bypass.PathPrefix == "" {
		cfg.Bypass.PathPrefix = "/_relay/"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Auth.SessionTTLRaw == "" {
		cfg.Auth.SessionTTLRaw = "168h" // 7 days
	}
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Domain.TenantDomain == "" {
		return fmt.Errorf("domain.tenant_domain is required")
	}
	if c.Domain.MarketingURL == "" {
		return fmt.Errorf("domain.marketing_url is required")
	}
	if len(c.Auth.Keys) == 0 {
		return fmt.Errorf("auth.keys requires at least one signing key")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Proxy.OriginTemplate == "" {
		return fmt.Errorf("proxy.origin_template is required")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	cfg.Auth.SessionTTL, err = time.ParseDuration(cfg.Auth.SessionTTLRaw)
	if err != nil {
		return fmt.Errorf("parsing session_ttl %q: %w", cfg.Auth.SessionTTLRaw, err)
	}

	if cfg.Server.ReadTimeoutRaw != "" {
		cfg.Server.ReadTimeout, err = time.ParseDuration(cfg.Server.ReadTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing read_timeout %q: %w", cfg.Server.ReadTimeoutRaw, err)
		}
	}

	if cfg.Server.WriteTimeoutRaw != "" {
		cfg.Server.WriteTimeout, err = time.ParseDuration(cfg.Server.WriteTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing write_timeout %q: %w", cfg.Server.WriteTimeoutRaw, err)
		}
	}

	return nil
}
