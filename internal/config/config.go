// Package config provides the configuration schema, loader, and file
// watcher for the Mint visibility MCP server.
//
// Configuration comes from an optional YAML file overlaid by environment
// variables; the server boots from environment alone when no file is
// given.
package config

import "log/slog"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l onto the slog level scale. Unrecognised values read as
// info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Transport selects how the MCP server is exposed.
type Transport string

const (
	// TransportStdio serves MCP over stdin/stdout for a single local
	// client.
	TransportStdio Transport = "stdio"

	// TransportSSE serves the HTTP event-stream plus message-post
	// endpoint pair.
	TransportSSE Transport = "sse"

	// TransportStreamableHTTP serves the streamable HTTP endpoint.
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	switch t {
	case TransportStdio, TransportSSE, TransportStreamableHTTP:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically produced by
// [Default], optionally overridden from a YAML file via [Load], and
// finished with [Config.ApplyEnv].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds network, logging, and transport settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP transports listen on
	// (e.g., ":8080"). Ignored when Transport is "stdio".
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// Transport selects the MCP transport.
	Transport Transport `yaml:"transport"`
}

// APIConfig holds the upstream Mint API settings.
type APIConfig struct {
	// Key is the Mint API credential. Usually injected via MINT_API_KEY
	// rather than written to the file. The server starts without one;
	// tool calls fail until it is set.
	Key string `yaml:"api_key"`

	// BaseURL overrides the default Mint API endpoint. Leave empty to
	// use the client's built-in default.
	BaseURL string `yaml:"base_url"`
}

// TelemetryConfig holds settings for metrics and tracing.
type TelemetryConfig struct {
	// ServiceName is the service name reported in telemetry.
	ServiceName string `yaml:"service_name"`
}

// Default returns the configuration the server runs with when no file and
// no environment overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
			Transport:  TransportSSE,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "visibility-mcp",
		},
	}
}
