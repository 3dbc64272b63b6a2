// Package server assembles the Mint visibility MCP server and runs it
// over the configured transport.
//
// One [mcp.Server] instance carries the four visibility tools and is
// shared by every client session. Transport selection follows the
// config: "stdio" speaks MCP over stdin/stdout for a single local
// client, while "sse" and "streamable-http" expose the SDK's HTTP
// handlers on a shared listener next to the operational endpoints:
//
//	/sse      SSE event stream + message post (sse transport)
//	/mcp      streamable HTTP endpoint (streamable-http transport)
//	/healthz  liveness probe
//	/readyz   readiness probe
//	/metrics  Prometheus scrape endpoint
//
// The MCP endpoints answer with permissive CORS headers so that
// browser-hosted clients can connect from any origin.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/getmint-ai/visibility-mcp/internal/config"
	"github.com/getmint-ai/visibility-mcp/internal/health"
	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
	"github.com/getmint-ai/visibility-mcp/internal/observe"
	"github.com/getmint-ai/visibility-mcp/internal/tools"
)

const (
	// Name and Version identify the server to MCP clients during the
	// initialize handshake.
	Name    = "mint-visibility-mcp"
	Version = "3.0.0"

	// readHeaderTimeout bounds how long a client may take to send request
	// headers. Tool work happens long after headers arrive, so this can
	// stay short.
	readHeaderTimeout = 10 * time.Second
)

// Option is a functional option for [New].
type Option func(*Server)

// WithMetrics overrides the metrics instance shared by the HTTP
// middleware and the tool registry. Tests inject a fresh instance here to
// avoid cross-test pollution.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// Server owns the MCP server, its tool registry, and, for the HTTP
// transports, the listener carrying the MCP and operational endpoints.
type Server struct {
	cfg     *config.Config
	client  *mintapi.Client
	metrics *observe.Metrics

	mcpServer *mcp.Server
	health    *health.Handler
	httpSrv   *http.Server

	stopOnce sync.Once
}

// New wires the full server: the tool registry onto a fresh MCP server,
// the readiness checkers, and the HTTP listener when the configured
// transport needs one. The client may lack a credential; the server boots
// and reports not-ready until one is configured.
func New(cfg *config.Config, client *mintapi.Client, opts ...Option) *Server {
	s := &Server{cfg: cfg, client: client}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	// ── MCP server and tools ────────────────────────────────────────────
	s.mcpServer = mcp.NewServer(&mcp.Implementation{Name: Name, Version: Version}, nil)
	tools.NewRegistry(client, tools.WithMetrics(s.metrics)).Register(s.mcpServer)

	// ── Readiness checks ────────────────────────────────────────────────
	s.health = health.New(
		health.Credential(client),
		health.Upstream(client),
	)

	// ── HTTP listener (sse / streamable-http only) ──────────────────────
	if cfg.Server.Transport != config.TransportStdio {
		s.httpSrv = &http.Server{
			Addr:              cfg.Server.ListenAddr,
			Handler:           s.buildHandler(),
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		}
	}

	return s
}

// Endpoint returns the URL path serving MCP for the configured transport,
// or "" for stdio.
func (s *Server) Endpoint() string {
	switch s.cfg.Server.Transport {
	case config.TransportSSE:
		return "/sse"
	case config.TransportStreamableHTTP:
		return "/mcp"
	}
	return ""
}

// buildHandler assembles the HTTP surface: operational endpoints plus the
// MCP endpoint of the configured transport, everything wrapped in the
// telemetry middleware.
func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()
	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	getServer := func(*http.Request) *mcp.Server { return s.mcpServer }
	switch s.cfg.Server.Transport {
	case config.TransportSSE:
		mux.Handle("/sse", cors(mcp.NewSSEHandler(getServer, nil)))
	case config.TransportStreamableHTTP:
		mux.Handle("/mcp", cors(mcp.NewStreamableHTTPHandler(getServer, nil)))
	}

	return observe.Middleware(s.metrics)(mux)
}

// cors adds permissive cross-origin headers to an MCP endpoint.
// Browser-hosted MCP clients preflight their POSTs and need to read the
// session header from responses.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id, X-Correlation-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves MCP over the configured transport and blocks until ctx is
// cancelled or the transport fails. For the HTTP transports the listener
// keeps accepting until [Server.Shutdown] drains it.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Server.Transport == config.TransportStdio {
		slog.Info("serving MCP over stdio", "server", Name, "version", Version)
		if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("server: stdio transport: %w", err)
		}
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()
	slog.Info("serving MCP over HTTP",
		"server", Name,
		"version", Version,
		"transport", string(s.cfg.Server.Transport),
		"addr", s.cfg.Server.ListenAddr,
		"endpoint", s.Endpoint(),
	)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen on %s: %w", s.cfg.Server.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown drains the HTTP listener, honouring the context deadline.
// In-flight requests get until the deadline to finish; whatever is still
// open afterwards (typically idle event streams) is closed hard. Safe to
// call more than once, and a no-op for the stdio transport.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if s.httpSrv == nil {
			return
		}
		slog.Info("draining http server")
		if e := s.httpSrv.Shutdown(ctx); e != nil {
			_ = s.httpSrv.Close()
			err = fmt.Errorf("server: drain: %w", e)
			return
		}
		slog.Info("http server drained")
	})
	return err
}
