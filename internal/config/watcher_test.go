package config_test

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getmint-ai/visibility-mcp/internal/config"
)

const watchInterval = 50 * time.Millisecond

const baseYAML = `
api:
  api_key: mk-watch
server:
  log_level: info
`

const editedYAML = `
api:
  api_key: mk-watch
server:
  log_level: warn
`

const brokenYAML = `
server:
  log_level: shouting
`

// watchedFile writes content to a temp config file and returns its path
// plus a rewrite function for later edits.
func watchedFile(t *testing.T, content string) (path string, rewrite func(string)) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "config.yaml")
	rewrite = func(c string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(c), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	rewrite(content)
	return path, rewrite
}

func TestWatcher_ServesInitialConfig(t *testing.T) {
	t.Parallel()
	path, _ := watchedFile(t, baseYAML)

	w, err := config.NewWatcher(path, nil, config.WithInterval(watchInterval))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current returned nil")
	}
	if cfg.API.Key != "mk-watch" {
		t.Errorf("api key = %q, want mk-watch", cfg.API.Key)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log level = %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
}

func TestWatcher_ReloadsOnEdit(t *testing.T) {
	t.Parallel()
	path, rewrite := watchedFile(t, baseYAML)

	type reload struct{ old, new *config.Config }
	reloads := make(chan reload, 1)

	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		select {
		case reloads <- reload{old, new}:
		default:
		}
	}, config.WithInterval(watchInterval))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(2 * watchInterval)
	rewrite(editedYAML)

	var r reload
	select {
	case r = <-reloads:
	case <-time.After(2 * time.Second):
		t.Fatal("no reload observed")
	}

	if r.old == nil || r.new == nil {
		t.Fatal("reload carried nil configs")
	}
	if r.old.Server.LogLevel != config.LogInfo {
		t.Errorf("old log level = %q, want %q", r.old.Server.LogLevel, config.LogInfo)
	}
	if r.new.Server.LogLevel != config.LogWarn {
		t.Errorf("new log level = %q, want %q", r.new.Server.LogLevel, config.LogWarn)
	}
	if got := w.Current().Server.LogLevel; got != config.LogWarn {
		t.Errorf("Current log level = %q, want %q", got, config.LogWarn)
	}
}

func TestWatcher_BrokenEditKeepsServing(t *testing.T) {
	t.Parallel()
	path, rewrite := watchedFile(t, baseYAML)

	var fired atomic.Int32
	w, err := config.NewWatcher(path, func(_, _ *config.Config) {
		fired.Add(1)
	}, config.WithInterval(watchInterval))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(2 * watchInterval)
	rewrite(brokenYAML)
	time.Sleep(6 * watchInterval)

	if n := fired.Load(); n != 0 {
		t.Errorf("callback fired %d times for a broken edit", n)
	}
	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("Current log level = %q, want the pre-edit %q", got, config.LogInfo)
	}
}

func TestWatcher_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("NewWatcher succeeded on a missing file")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	t.Parallel()
	path, _ := watchedFile(t, baseYAML)

	w, err := config.NewWatcher(path, nil, config.WithInterval(watchInterval))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_MtimeOnlyTouch(t *testing.T) {
	t.Parallel()
	path, _ := watchedFile(t, baseYAML)

	var fired atomic.Int32
	w, err := config.NewWatcher(path, func(_, _ *config.Config) {
		fired.Add(1)
	}, config.WithInterval(watchInterval))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(2 * watchInterval)
	next := time.Now().Add(time.Second)
	if err := os.Chtimes(path, next, next); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	time.Sleep(6 * watchInterval)

	if n := fired.Load(); n != 0 {
		t.Errorf("callback fired %d times for an mtime-only touch", n)
	}
}
