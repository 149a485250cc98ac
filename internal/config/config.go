/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package config provides configuration management for VexDB.

Configuration is resolved once at startup, in precedence order:

 1. Built-in defaults
 2. Config file (TOML-style key = value)
 3. Environment variables

Components read their knobs from the resolved Config at construction and
never consult the environment per-operation. A parse failure in either
cache bound is fatal at startup.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	verrors "vexdb/internal/errors"
	"vexdb/internal/logging"
)

// Environment variable names.
const (
	EnvMaxReadCacheItems  = "MAX_RECACHE_ITEMS"
	EnvMaxWriteCacheItems = "MAX_WRCACHE_ITEMS"
	EnvFlushTickMS        = "VEXDB_FLUSH_TICK_MS"
	EnvCacheRangeInserts  = "VEXDB_CACHE_RANGE_INSERTS"
	EnvLogLevel           = "VEXDB_LOG_LEVEL"
	EnvLogJSON            = "VEXDB_LOG_JSON"
	EnvDataDir            = "VEXDB_DATA_DIR"
)

// Default values.
const (
	DefaultMaxReadCacheItems  = 1024000
	DefaultMaxWriteCacheItems = 500000
	DefaultFlushTickMS        = 10
)

// Config holds the VexDB configuration.
type Config struct {
	// MaxReadCacheItems bounds the read cache (records).
	MaxReadCacheItems uint64
	// MaxWriteCacheItems is the write-buffer flush threshold (records).
	MaxWriteCacheItems uint64
	// FlushTickMS is the flusher poll interval in milliseconds.
	FlushTickMS int
	// CacheRangeInserts controls whether range-read misses insert the
	// whole slab into the read cache. Off by default: a single large
	// range read would otherwise evict the entire working set.
	CacheRangeInserts bool

	LogLevel string
	LogJSON  bool
	DataDir  string

	// ConfigFile is the path the config was loaded from, if any.
	ConfigFile string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxReadCacheItems:  DefaultMaxReadCacheItems,
		MaxWriteCacheItems: DefaultMaxWriteCacheItems,
		FlushTickMS:        DefaultFlushTickMS,
		CacheRangeInserts:  false,
		LogLevel:           "info",
		LogJSON:            false,
		DataDir:            ".",
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.MaxReadCacheItems == 0 {
		return verrors.NewConfigError("max_recache_items must be positive")
	}
	if c.MaxWriteCacheItems == 0 {
		return verrors.NewConfigError("max_wrcache_items must be positive")
	}
	if c.FlushTickMS <= 0 {
		return verrors.NewConfigError("flush_tick_ms must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return verrors.NewConfigError(fmt.Sprintf("invalid log_level: %q", c.LogLevel))
	}
	if c.DataDir == "" {
		return verrors.NewConfigError("data_dir must not be empty")
	}
	return nil
}

// ToTOML renders the configuration as a TOML document.
func (c *Config) ToTOML() string {
	var b strings.Builder
	b.WriteString("# VexDB configuration\n\n")
	fmt.Fprintf(&b, "max_recache_items = %d\n", c.MaxReadCacheItems)
	fmt.Fprintf(&b, "max_wrcache_items = %d\n", c.MaxWriteCacheItems)
	fmt.Fprintf(&b, "flush_tick_ms = %d\n", c.FlushTickMS)
	fmt.Fprintf(&b, "cache_range_inserts = %v\n", c.CacheRangeInserts)
	fmt.Fprintf(&b, "log_level = %q\n", c.LogLevel)
	fmt.Fprintf(&b, "log_json = %v\n", c.LogJSON)
	fmt.Fprintf(&b, "data_dir = %q\n", c.DataDir)
	return b.String()
}

// SaveToFile writes the configuration to the given path, creating parent
// directories as needed.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return verrors.NewOSError("unable to create config directory", err)
	}
	if err := os.WriteFile(path, []byte(c.ToTOML()), 0644); err != nil {
		return verrors.NewOSError("unable to write config file", err)
	}
	return nil
}

// String returns a human-readable summary.
func (c *Config) String() string {
	return fmt.Sprintf(
		"ReadCache: %d items, WriteBuffer: %d items, FlushTick: %dms, RangeInserts: %v, LogLevel: %s, DataDir: %s",
		c.MaxReadCacheItems, c.MaxWriteCacheItems, c.FlushTickMS, c.CacheRangeInserts, c.LogLevel, c.DataDir,
	)
}

// Manager owns a Config and its reload lifecycle.
type Manager struct {
	mu        sync.RWMutex
	cfg       *Config
	reloadFns []func(*Config)
	watcher   *fsnotify.Watcher
	watchDone chan struct{}
	log       *logging.Logger
}

// NewManager creates a Manager holding the default configuration.
func NewManager() *Manager {
	return &Manager{
		cfg: DefaultConfig(),
		log: logging.NewLogger("config"),
	}
}

var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the process-wide Manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
	})
	return globalManager
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.cfg
	return &cfg
}

// LoadFromFile loads configuration from a TOML-style file.
func (m *Manager) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return verrors.OpenFailed(path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.cfg
	if err := applyFile(&cfg, string(data)); err != nil {
		return err
	}
	cfg.ConfigFile = path
	m.cfg = &cfg
	return nil
}

// LoadFromEnv overlays environment variables onto the current
// configuration. A malformed value is a fatal startup error.
func (m *Manager) LoadFromEnv() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.cfg

	if v := os.Getenv(EnvMaxReadCacheItems); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return verrors.EnvParseFailed(EnvMaxReadCacheItems, v, err)
		}
		cfg.MaxReadCacheItems = n
	}
	if v := os.Getenv(EnvMaxWriteCacheItems); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return verrors.EnvParseFailed(EnvMaxWriteCacheItems, v, err)
		}
		cfg.MaxWriteCacheItems = n
	}
	if v := os.Getenv(EnvFlushTickMS); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return verrors.EnvParseFailed(EnvFlushTickMS, v, err)
		}
		cfg.FlushTickMS = n
	}
	if v := os.Getenv(EnvCacheRangeInserts); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return verrors.EnvParseFailed(EnvCacheRangeInserts, v, err)
		}
		cfg.CacheRangeInserts = b
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return verrors.EnvParseFailed(EnvLogJSON, v, err)
		}
		cfg.LogJSON = b
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}

	m.cfg = &cfg
	return nil
}

// OnReload registers a callback invoked after every successful Reload.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadFns = append(m.reloadFns, fn)
}

// Reload re-reads the config file the configuration was loaded from.
func (m *Manager) Reload() error {
	m.mu.RLock()
	path := m.cfg.ConfigFile
	m.mu.RUnlock()

	if path == "" {
		return verrors.NewConfigError("no config file to reload")
	}
	if err := m.LoadFromFile(path); err != nil {
		return err
	}

	m.mu.RLock()
	cfg := *m.cfg
	fns := make([]func(*Config), len(m.reloadFns))
	copy(fns, m.reloadFns)
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(&cfg)
	}
	return nil
}

// Watch reloads the configuration whenever the loaded config file
// changes on disk. It is a no-op if no file has been loaded.
func (m *Manager) Watch() error {
	m.mu.Lock()
	path := m.cfg.ConfigFile
	if path == "" || m.watcher != nil {
		m.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.mu.Unlock()
		return verrors.NewOSError("unable to create config watcher", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		m.mu.Unlock()
		return verrors.NewOSError("unable to watch config directory", err)
	}
	m.watcher = watcher
	m.watchDone = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.watchDone)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := m.Reload(); err != nil {
					m.log.Warn("config reload failed", "error", err)
				} else {
					m.log.Info("config reloaded", "file", path)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// StopWatch stops a running Watch.
func (m *Manager) StopWatch() {
	m.mu.Lock()
	watcher := m.watcher
	done := m.watchDone
	m.watcher = nil
	m.watchDone = nil
	m.mu.Unlock()

	if watcher != nil {
		watcher.Close()
		<-done
	}
}

// applyFile parses TOML-style "key = value" lines into cfg.
func applyFile(cfg *Config, content string) error {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return verrors.NewConfigError(fmt.Sprintf("malformed config line: %q", line))
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"`)

		switch key {
		case "max_recache_items":
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return verrors.NewConfigError(fmt.Sprintf("invalid max_recache_items: %q", value))
			}
			cfg.MaxReadCacheItems = n
		case "max_wrcache_items":
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return verrors.NewConfigError(fmt.Sprintf("invalid max_wrcache_items: %q", value))
			}
			cfg.MaxWriteCacheItems = n
		case "flush_tick_ms":
			n, err := strconv.Atoi(value)
			if err != nil {
				return verrors.NewConfigError(fmt.Sprintf("invalid flush_tick_ms: %q", value))
			}
			cfg.FlushTickMS = n
		case "cache_range_inserts":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return verrors.NewConfigError(fmt.Sprintf("invalid cache_range_inserts: %q", value))
			}
			cfg.CacheRangeInserts = b
		case "log_level":
			cfg.LogLevel = value
		case "log_json":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return verrors.NewConfigError(fmt.Sprintf("invalid log_json: %q", value))
			}
			cfg.LogJSON = b
		case "data_dir":
			cfg.DataDir = value
		default:
			// Unknown keys are ignored so old binaries tolerate new files.
		}
	}
	return nil
}
