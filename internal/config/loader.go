package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// DefaultReloadInterval applies when the config enables dynamic reload
// without specifying an interval.
const DefaultReloadInterval = 30 * time.Second

// Loader reads the routing config YAML file and watches it for changes.
// A load that fails to parse or validate never replaces the current config.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *RoutingConfig
	onChange []func(*RoutingConfig)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Parse decodes and validates a raw config document without touching any
// loader. Used for pre-flight checks against in-memory strings.
func Parse(raw []byte) (*RoutingConfig, []string) {
	var cfg RoutingConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, []string{fmt.Sprintf("parse config: %s", err)}
	}
	applyDefaults(&cfg)
	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// Config returns the current (latest valid) configuration.
func (l *Loader) Config() *RoutingConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*RoutingConfig)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config when the
// file changes on disk. An invalid document is skipped and the previous
// config stays in effect; onError (optional) observes skipped reloads.
// Call the returned stop function to clean up.
func (l *Loader) Watch(onError func(error)) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil && onError != nil {
						onError(err)
					}
				}
			case <-w.Errors:
				// Watcher errors are transient; keep serving the old config.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// WatchInterval re-reads the config on a fixed timer, for deployments where
// the file is replaced atomically and fsnotify events are unreliable.
func (l *Loader) WatchInterval(interval time.Duration, onError func(error)) (stop func()) {
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := l.Reload(); err != nil && onError != nil {
					onError(err)
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// Reload forces an immediate re-read of the config file. On failure the
// previous config remains in effect and the error is returned.
func (l *Loader) Reload() (*RoutingConfig, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*RoutingConfig), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*RoutingConfig, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	var cfg RoutingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.path, err)
	}
	applyDefaults(&cfg)
	// Every load re-validates; a config that fails validation never becomes
	// current, regardless of how it was triggered.
	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, fmt.Errorf("config %s: %w", l.path, ValidationError(errs))
	}
	return &cfg, nil
}

func applyDefaults(cfg *RoutingConfig) {
	if cfg.Settings == nil {
		return
	}
	if cfg.Settings.FallbackBehavior == "" {
		cfg.Settings.FallbackBehavior = FallbackRouteToQueue
	}
	if cfg.Settings.ReloadIntervalMs == 0 {
		cfg.Settings.ReloadIntervalMs = int(DefaultReloadInterval / time.Millisecond)
	}
}

// ReloadInterval returns the configured reload interval as a duration.
func (s *Settings) ReloadInterval() time.Duration {
	return time.Duration(s.ReloadIntervalMs) * time.Millisecond
}
