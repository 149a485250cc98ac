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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	verrors "vexdb/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxReadCacheItems != 1024000 {
		t.Errorf("Expected default max_recache_items 1024000, got %d", cfg.MaxReadCacheItems)
	}
	if cfg.MaxWriteCacheItems != 500000 {
		t.Errorf("Expected default max_wrcache_items 500000, got %d", cfg.MaxWriteCacheItems)
	}
	if cfg.FlushTickMS != 10 {
		t.Errorf("Expected default flush_tick_ms 10, got %d", cfg.FlushTickMS)
	}
	if cfg.CacheRangeInserts != false {
		t.Errorf("Expected default cache_range_inserts false, got %v", cfg.CacheRangeInserts)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log_level 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogJSON != false {
		t.Errorf("Expected default log_json false, got %v", cfg.LogJSON)
	}
	if cfg.DataDir != "." {
		t.Errorf("Expected default data_dir '.', got '%s'", cfg.DataDir)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name: "valid small bounds",
			cfg: &Config{
				MaxReadCacheItems:  1,
				MaxWriteCacheItems: 1,
				FlushTickMS:        1,
				LogLevel:           "debug",
				DataDir:            "/var/lib/vexdb",
			},
			wantErr: false,
		},
		{
			name: "zero read cache bound",
			cfg: &Config{
				MaxReadCacheItems:  0,
				MaxWriteCacheItems: 500000,
				FlushTickMS:        10,
				LogLevel:           "info",
				DataDir:            ".",
			},
			wantErr: true,
		},
		{
			name: "zero write buffer threshold",
			cfg: &Config{
				MaxReadCacheItems:  1024000,
				MaxWriteCacheItems: 0,
				FlushTickMS:        10,
				LogLevel:           "info",
				DataDir:            ".",
			},
			wantErr: true,
		},
		{
			name: "zero flush tick",
			cfg: &Config{
				MaxReadCacheItems:  1024000,
				MaxWriteCacheItems: 500000,
				FlushTickMS:        0,
				LogLevel:           "info",
				DataDir:            ".",
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: &Config{
				MaxReadCacheItems:  1024000,
				MaxWriteCacheItems: 500000,
				FlushTickMS:        10,
				LogLevel:           "invalid",
				DataDir:            ".",
			},
			wantErr: true,
		},
		{
			name: "empty data_dir",
			cfg: &Config{
				MaxReadCacheItems:  1024000,
				MaxWriteCacheItems: 500000,
				FlushTickMS:        10,
				LogLevel:           "info",
				DataDir:            "",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `# Test configuration
max_recache_items = 2048
max_wrcache_items = 1000
flush_tick_ms = 5
cache_range_inserts = true
log_level = "debug"
log_json = true
data_dir = "/tmp/vexdb"
`

	configPath := filepath.Join(tmpDir, "vexdb.conf")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	cfg := mgr.Get()

	if cfg.MaxReadCacheItems != 2048 {
		t.Errorf("Expected max_recache_items 2048, got %d", cfg.MaxReadCacheItems)
	}
	if cfg.MaxWriteCacheItems != 1000 {
		t.Errorf("Expected max_wrcache_items 1000, got %d", cfg.MaxWriteCacheItems)
	}
	if cfg.FlushTickMS != 5 {
		t.Errorf("Expected flush_tick_ms 5, got %d", cfg.FlushTickMS)
	}
	if !cfg.CacheRangeInserts {
		t.Errorf("Expected cache_range_inserts true, got %v", cfg.CacheRangeInserts)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log_level 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.LogJSON != true {
		t.Errorf("Expected log_json true, got %v", cfg.LogJSON)
	}
	if cfg.DataDir != "/tmp/vexdb" {
		t.Errorf("Expected data_dir '/tmp/vexdb', got '%s'", cfg.DataDir)
	}
	if cfg.ConfigFile != configPath {
		t.Errorf("Expected ConfigFile '%s', got '%s'", configPath, cfg.ConfigFile)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvMaxReadCacheItems, "4096")
	t.Setenv(EnvMaxWriteCacheItems, "128")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogJSON, "true")

	mgr := NewManager()
	if err := mgr.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	cfg := mgr.Get()

	if cfg.MaxReadCacheItems != 4096 {
		t.Errorf("Expected max_recache_items 4096 from env, got %d", cfg.MaxReadCacheItems)
	}
	if cfg.MaxWriteCacheItems != 128 {
		t.Errorf("Expected max_wrcache_items 128 from env, got %d", cfg.MaxWriteCacheItems)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log_level 'debug' from env, got '%s'", cfg.LogLevel)
	}
	if cfg.LogJSON != true {
		t.Errorf("Expected log_json true from env, got %v", cfg.LogJSON)
	}
}

func TestLoadFromEnvParseFailure(t *testing.T) {
	t.Setenv(EnvMaxReadCacheItems, "not-a-number")

	mgr := NewManager()
	err := mgr.LoadFromEnv()
	if err == nil {
		t.Fatal("Expected LoadFromEnv to fail on a malformed cache bound")
	}
	if !verrors.IsConfigError(err) {
		t.Errorf("Expected a config error, got: %v", err)
	}
}

func TestConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()

	// Config file sets the read-cache bound to 2000.
	configContent := `max_recache_items = 2000
log_level = "info"
`
	configPath := filepath.Join(tmpDir, "vexdb.conf")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	// Env var overrides the bound to 7777.
	t.Setenv(EnvMaxReadCacheItems, "7777")

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if err := mgr.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	cfg := mgr.Get()

	if cfg.MaxReadCacheItems != 7777 {
		t.Errorf("Expected max_recache_items 7777 (env override), got %d", cfg.MaxReadCacheItems)
	}
}

func TestToTOML(t *testing.T) {
	cfg := &Config{
		MaxReadCacheItems:  1024000,
		MaxWriteCacheItems: 500000,
		FlushTickMS:        10,
		CacheRangeInserts:  true,
		LogLevel:           "info",
		LogJSON:            false,
		DataDir:            "/var/lib/vexdb",
	}

	toml := cfg.ToTOML()

	if !strings.Contains(toml, "max_recache_items = 1024000") {
		t.Error("TOML output missing max_recache_items")
	}
	if !strings.Contains(toml, "max_wrcache_items = 500000") {
		t.Error("TOML output missing max_wrcache_items")
	}
	if !strings.Contains(toml, "cache_range_inserts = true") {
		t.Error("TOML output missing cache_range_inserts")
	}
	if !strings.Contains(toml, `data_dir = "/var/lib/vexdb"`) {
		t.Error("TOML output missing data_dir")
	}
}

func TestSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.MaxWriteCacheItems = 100
	cfg.LogLevel = "debug"

	configPath := filepath.Join(tmpDir, "subdir", "vexdb.conf")
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	// Load it back and verify
	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	loaded := mgr.Get()
	if loaded.MaxWriteCacheItems != 100 {
		t.Errorf("Expected max_wrcache_items 100, got %d", loaded.MaxWriteCacheItems)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("Expected log_level 'debug', got '%s'", loaded.LogLevel)
	}
}

func TestReload(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `max_wrcache_items = 9000
log_level = "info"
`
	configPath := filepath.Join(tmpDir, "vexdb.conf")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	cfg := mgr.Get()
	if cfg.MaxWriteCacheItems != 9000 {
		t.Errorf("Expected initial max_wrcache_items 9000, got %d", cfg.MaxWriteCacheItems)
	}

	// Track reload callback
	reloadCalled := false
	mgr.OnReload(func(c *Config) {
		reloadCalled = true
	})

	// Update config file
	newContent := `max_wrcache_items = 8000
log_level = "debug"
`
	if err := os.WriteFile(configPath, []byte(newContent), 0644); err != nil {
		t.Fatalf("Failed to update config file: %v", err)
	}

	// Reload
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	cfg = mgr.Get()
	if cfg.MaxWriteCacheItems != 8000 {
		t.Errorf("Expected reloaded max_wrcache_items 8000, got %d", cfg.MaxWriteCacheItems)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected reloaded log_level 'debug', got '%s'", cfg.LogLevel)
	}
	if !reloadCalled {
		t.Error("Reload callback was not called")
	}
}

func TestWatchReloads(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `max_wrcache_items = 1111
log_level = "info"
`
	configPath := filepath.Join(tmpDir, "vexdb.conf")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if err := mgr.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer mgr.StopWatch()

	newContent := `max_wrcache_items = 2222
log_level = "info"
`
	if err := os.WriteFile(configPath, []byte(newContent), 0644); err != nil {
		t.Fatalf("Failed to update config file: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		if mgr.Get().MaxWriteCacheItems == 2222 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("Watcher never applied the new config; have %d", mgr.Get().MaxWriteCacheItems)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestGlobalManager(t *testing.T) {
	mgr := Global()
	if mgr == nil {
		t.Error("Global() returned nil")
	}

	// Should return the same instance
	mgr2 := Global()
	if mgr != mgr2 {
		t.Error("Global() returned different instances")
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	str := cfg.String()

	if !strings.Contains(str, "ReadCache:") {
		t.Error("String() missing ReadCache")
	}
	if !strings.Contains(str, "WriteBuffer:") {
		t.Error("String() missing WriteBuffer")
	}
	if !strings.Contains(str, "500000") {
		t.Error("String() missing threshold value")
	}
}
