package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// defaultPollInterval is how often the watcher re-checks the file when no
// WithInterval option overrides it.
const defaultPollInterval = 5 * time.Second

// fileState identifies one observed version of the config file. The mtime
// is the cheap first-pass signal; the checksum settles whether the content
// actually changed.
type fileState struct {
	mtime time.Time
	sum   [sha256.Size]byte
}

// Watcher polls a config file and reports edits through a callback.
// Polling keeps the behaviour identical across platforms and avoids an
// inotify dependency. A file whose new content fails validation is
// ignored; the previously loaded config stays active.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	quit     chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	cfg   *Config
	state fileState
}

// WatcherOption adjusts a [Watcher] before it starts.
type WatcherOption func(*Watcher)

// WithInterval overrides the default 5 second polling interval. Values of
// zero or below are ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path and starts a goroutine that polls
// for changes, invoking onChange(old, new) after each successful reload.
// A path that cannot be loaded fails construction rather than starting a
// watcher with nothing to serve.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: defaultPollInterval,
		onChange: onChange,
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, state, err := w.snapshot()
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	w.cfg = cfg
	w.state = state

	go w.run()
	return w, nil
}

// Current returns the latest config that passed validation.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Stop ends the polling goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

func (w *Watcher) run() {
	tick := time.NewTicker(w.interval)
	defer tick.Stop()
	for {
		select {
		case <-w.quit:
			return
		case <-tick.C:
			w.sweep()
		}
	}
}

// sweep is one polling round: skip untouched files by mtime, reread the
// rest, and swap in the new config when the content hash moved.
func (w *Watcher) sweep() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: stat failed", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	seen := w.state.mtime
	w.mu.Unlock()
	if info.ModTime().Equal(seen) {
		return
	}

	cfg, state, err := w.snapshot()
	if err != nil {
		slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if state.sum == w.state.sum {
		// Touched, content unchanged. Remember the mtime so the next
		// round takes the fast path again.
		w.state.mtime = state.mtime
		w.mu.Unlock()
		return
	}
	old := w.cfg
	w.cfg = cfg
	w.state = state
	w.mu.Unlock()

	slog.Info("config reloaded", "path", w.path)

	// Outside the lock: the callback may call Current.
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// snapshot reads, parses, and validates the file, returning the config
// together with the state that identifies this version of it.
func (w *Watcher) snapshot() (*Config, fileState, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileState{}, err
	}
	return cfg, fileState{mtime: info.ModTime(), sum: sha256.Sum256(data)}, nil
}
