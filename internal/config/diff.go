package config

// Changes describes what differs between two configs, split by whether
// the change can be applied to a running server.
type Changes struct {
	// LogLevelChanged is hot-applicable via a slog LevelVar.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// APIChanged covers the credential and base URL. The Mint client is
	// built once at startup, so these need a restart.
	APIChanged bool

	// TransportChanged covers the transport and listen address, both
	// fixed at startup.
	TransportChanged bool
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return !c.LogLevelChanged && !c.APIChanged && !c.TransportChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) Changes {
	var c Changes

	if old.Server.LogLevel != new.Server.LogLevel {
		c.LogLevelChanged = true
		c.NewLogLevel = new.Server.LogLevel
	}
	if old.API.Key != new.API.Key || old.API.BaseURL != new.API.BaseURL {
		c.APIChanged = true
	}
	if old.Server.Transport != new.Server.Transport || old.Server.ListenAddr != new.Server.ListenAddr {
		c.TransportChanged = true
	}

	return c
}
