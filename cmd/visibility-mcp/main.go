// Command visibility-mcp serves Mint.ai brand-visibility analytics to LLM
// clients over the Model Context Protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getmint-ai/visibility-mcp/internal/config"
	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
	"github.com/getmint-ai/visibility-mcp/internal/observe"
	"github.com/getmint-ai/visibility-mcp/internal/server"
)

// shutdownTimeout bounds the graceful drain after SIGINT/SIGTERM.
const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to an optional YAML configuration file")
	transport := flag.String("transport", "", "override the MCP transport: stdio, sse, or streamable-http")
	listenAddr := flag.String("listen", "", "override the listen address for the HTTP transports")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "visibility-mcp: config file %q not found — the server also runs from environment alone; drop -config or copy configs/example.yaml\n", *configPath)
			} else {
				fmt.Fprintf(os.Stderr, "visibility-mcp: %v\n", err)
			}
			return 1
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	if *transport != "" {
		t := config.Transport(*transport)
		if !t.IsValid() {
			fmt.Fprintf(os.Stderr, "visibility-mcp: invalid -transport %q; valid values: stdio, sse, streamable-http\n", *transport)
			return 1
		}
		cfg.Server.Transport = t
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("visibility-mcp starting",
		"version", server.Version,
		"config", *configPath,
		"transport", string(cfg.Server.Transport),
		"log_level", string(cfg.Server.LogLevel),
	)
	if cfg.API.Key == "" {
		slog.Warn("no Mint API key configured; tool calls will fail until one is set",
			"env", config.EnvAPIKey)
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: server.Version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Mint API client ───────────────────────────────────────────────────────
	clientOpts := []mintapi.Option{mintapi.WithMetrics(observe.DefaultMetrics())}
	if cfg.API.BaseURL != "" {
		clientOpts = append(clientOpts, mintapi.WithBaseURL(cfg.API.BaseURL))
	}
	client := mintapi.New(cfg.API.Key, clientOpts...)

	// ── Config watcher ────────────────────────────────────────────────────────
	if *configPath != "" {
		watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
			applyConfigChange(logLevel, config.Diff(old, new))
		})
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer watcher.Stop()
		}
	}

	srv := server.New(cfg, client)

	// ── Startup summary ───────────────────────────────────────────────────────
	// stdout belongs to the protocol in stdio mode, so the banner only
	// prints for the HTTP transports.
	if cfg.Server.Transport != config.TransportStdio {
		printStartupSummary(cfg, srv.Endpoint())
		slog.Info("server ready — press Ctrl+C to shut down")
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// applyConfigChange applies what can change while the server runs and
// flags the rest for a restart.
func applyConfigChange(logLevel *slog.LevelVar, changes config.Changes) {
	if changes.Empty() {
		return
	}
	if changes.LogLevelChanged {
		logLevel.Set(changes.NewLogLevel.Level())
		slog.Info("log level updated", "level", string(changes.NewLogLevel))
	}
	if changes.APIChanged {
		slog.Warn("api settings changed on disk; restart to apply")
	}
	if changes.TransportChanged {
		slog.Warn("transport settings changed on disk; restart to apply")
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, endpoint string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║    visibility-mcp — startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Transport", string(cfg.Server.Transport))
	printRow("Listen addr", cfg.Server.ListenAddr)
	printRow("Endpoint", endpoint)
	base := "(default)"
	if cfg.API.BaseURL != "" {
		base = cfg.API.BaseURL
	}
	printRow("API base URL", base)
	key := "(not set)"
	if cfg.API.Key != "" {
		key = "configured"
	}
	printRow("API key", key)
	printRow("Log level", string(cfg.Server.LogLevel))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if value == "" {
		value = "(not set)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. The returned LevelVar lets the
// config watcher adjust verbosity without rebuilding the handler.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(level.Level())
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}
