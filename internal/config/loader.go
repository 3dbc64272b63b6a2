package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables recognised by [Config.ApplyEnv].
const (
	EnvAPIKey  = "MINT_API_KEY"
	EnvBaseURL = "MINT_BASE_URL"
)

// Load reads the YAML file at path, overlays it on [Default] and
// validates the result. Missing file, malformed YAML, unknown keys and
// out-of-range values all surface as errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r on top of [Default]. Unknown keys
// are rejected and an empty document yields the defaults unchanged. The
// config watcher and tests feed it from memory.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	switch {
	case errors.Is(err, io.EOF):
		// Empty document, keep the defaults.
	case err != nil:
		return nil, fmt.Errorf("config: unmarshal yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment-provided values onto c. Environment wins
// over the file so deployments can swap credentials without editing it.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.API.Key = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.API.BaseURL = v
	}
}

// Validate reports every problem in cfg at once as a joined error. A nil
// return means the config is safe to run with.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is not a known level (debug, info, warn, error)", cfg.Server.LogLevel))
	}
	if cfg.Server.Transport != "" && !cfg.Server.Transport.IsValid() {
		errs = append(errs, fmt.Errorf("server.transport %q is not a known transport (stdio, sse, streamable-http)", cfg.Server.Transport))
	}
	if cfg.Server.Transport != TransportStdio && cfg.Server.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("server.listen_addr is required for transport %q", cfg.Server.Transport))
	}

	if cfg.API.BaseURL != "" {
		u, err := url.Parse(cfg.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", cfg.API.BaseURL))
		}
	}

	// A missing API key is not a validation error: the server is allowed
	// to come up and report the problem per call.

	return errors.Join(errs...)
}
