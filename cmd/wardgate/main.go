// ABOUTME: Entry point for the wardgate edge authentication gateway
// ABOUTME: Serves gated tenant traffic and provides registry admin commands

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardgate/wardgate/internal/config"
	"github.com/wardgate/wardgate/internal/cryptoutil"
	"github.com/wardgate/wardgate/internal/gateway"
	"github.com/wardgate/wardgate/internal/store"
	"github.com/wardgate/wardgate/internal/tenant"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                          _             _
 __      ____ _ _ __   __| | __ _  __ _| |_ ___
 \ \ /\ / / _' | '__| / _' |/ _' |/ _' | __/ _ \
  \ V  V / (_| | |   | (_| | (_| | (_| | ||  __/
   \_/\_/ \__,_|_|    \__,_|\__, |\__,_|\__\___|
                            |___/
`

func usage() {
	fmt.Println("Usage: wardgate <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                       Start the gateway")
	fmt.Println("  init                        Create a starter config file")
	fmt.Println("  tenant add <sub>            Register a tenant subdomain")
	fmt.Println("  tenant gate <sub> [--off]   Enable or disable passcode gating")
	fmt.Println("  tenant bypass <sub>         Generate a relay bypass secret")
	fmt.Println("  tenant exchange <sub>       Mint a test exchange token")
	fmt.Println("  health                      Check a running gateway")
}

func configPath() string {
	if envPath := os.Getenv("WARDGATE_CONFIG"); envPath != "" {
		return envPath
	}
	return "wardgate.yaml"
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "tenant":
		err = runTenant(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	path := configPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", path)
	green.Print("    ▶ ")
	fmt.Printf("Listen:  %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Domain:  *.%s\n", cfg.Domain.TenantDomain)
	fmt.Println()

	kv, err := store.NewSQLiteKV(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer kv.Close()

	gw, err := gateway.New(cfg, kv, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func runInit() error {
	path := configPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	key, err := cryptoutil.RandomHex(32)
	if err != nil {
		return err
	}

	starter := fmt.Sprintf(`server:
  http_addr: ":8080"

domain:
  tenant_domain: tunnel.example.com
  skip_hosts:
    - tunnel.example.com
  marketing_url: https://example.com

auth:
  # Ordered key list: current signing key first, legacy keys after.
  keys:
    - %s
  session_ttl: 168h

store:
  path: data/wardgate.db

proxy:
  origin_template: "http://%%s.tunnels.internal:8080"

logging:
  level: info
  format: console
`, key)

	if err := os.WriteFile(path, []byte(starter), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	color.Green("Created %s", path)
	fmt.Println("Edit domain and proxy settings before starting the gateway.")
	return nil
}

func openRegistry() (*tenant.Registry, func(), error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	kv, err := store.NewSQLiteKV(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return tenant.NewRegistry(kv), func() { kv.Close() }, nil
}

func runTenant(ctx context.Context, args []string) error {
	if len(args) < 2 {
		usage()
		return fmt.Errorf("tenant requires a subcommand and a subdomain")
	}

	sub := args[1]
	reg, closeStore, err := openRegistry()
	if err != nil {
		return err
	}
	defer closeStore()

	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("tenant add", flag.ContinueOnError)
		backend := fs.String("backend", "", "backend identifier (generated when empty)")
		mgmtKey := fs.String("management-key", "", "optional management key to hash and store")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}

		backendID := *backend
		if backendID == "" {
			backendID = "tnl_" + uuid.NewString()
		}

		record := &tenant.Registration{BackendID: backendID}
		if *mgmtKey != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(*mgmtKey), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hashing management key: %w", err)
			}
			record.ManagementKeyHash = string(hash)
		}

		if err := reg.PutRegistration(ctx, sub, record); err != nil {
			return err
		}
		color.Green("Registered %s", sub)
		fmt.Printf("backend: %s\n", backendID)
		return nil

	case "gate":
		fs := flag.NewFlagSet("tenant gate", flag.ContinueOnError)
		off := fs.Bool("off", false, "disable gating")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}

		if err := reg.SetGating(ctx, sub, !*off); err != nil {
			return err
		}
		if *off {
			color.Yellow("Gating disabled for %s", sub)
		} else {
			color.Green("Gating enabled for %s", sub)
		}
		return nil

	case "bypass":
		secret, err := cryptoutil.RandomHex(24)
		if err != nil {
			return err
		}
		if err := reg.PutBypassSecret(ctx, sub, secret); err != nil {
			return err
		}
		color.Green("Bypass secret set for %s", sub)
		fmt.Printf("secret: %s\n", secret)
		fmt.Println("Shown once; store it in the relay's configuration now.")
		return nil

	case "exchange":
		fs := flag.NewFlagSet("tenant exchange", flag.ContinueOnError)
		deviceKey := fs.String("device-key", "", "device cookie value the token is bound to")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *deviceKey == "" {
			return fmt.Errorf("--device-key is required")
		}

		token := uuid.NewString()
		rec := &tenant.ExchangeRecord{
			Tenant:     sub,
			DeviceHash: cryptoutil.NewProvider().SHA256Hex([]byte(*deviceKey)),
		}
		if err := reg.PutExchangeRecord(ctx, token, rec); err != nil {
			return err
		}
		color.Green("Exchange token minted for %s", sub)
		fmt.Printf("token: %s\n", token)
		return nil

	default:
		return fmt.Errorf("unknown tenant subcommand: %s", args[0])
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr := cfg.Server.HTTPAddr
	if addr[0] == ':' {
		addr = "127.0.0.1" + addr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/healthz", nil)
	if err != nil {
		return err
	}
	// The health endpoint only answers on skip-list hosts
	req.Host = cfg.Domain.TenantDomain

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway unhealthy: status %d", resp.StatusCode)
	}
	color.Green("Gateway is healthy")
	return nil
}
