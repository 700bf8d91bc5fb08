// Package config loads, validates, and persists the launcher's settings
// file, and watches it for external edits.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"kable/internal/loghub"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle
	// quickly. Use a short linear backoff: baseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond
	// maxValidPort is the highest TCP/UDP port number (2^16 - 1).
	// Port 0 is valid and means "OS auto-assign".
	maxValidPort = 65535
)

// defaultConfigDirFn is a test seam; tests override it to redirect config
// writes into a temp directory.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir

// LoggingConfig is the settings-file section controlling the in-memory log
// hub. Zero or negative limits mean "unbounded". DedupeEnabled is a pointer
// so that an absent key defaults to enabled instead of false.
type LoggingConfig struct {
	MaxEntriesPerInstance int   `yaml:"max_entries_per_instance" json:"maxEntriesPerInstance"`
	MaxGlobalEntries      int   `yaml:"max_global_entries" json:"maxGlobalEntries"`
	DedupeWindowSize      int   `yaml:"dedupe_window_size" json:"dedupeWindowSize"`
	DedupeTimeWindowMs    int   `yaml:"dedupe_time_window_ms" json:"dedupeTimeWindowMs"`
	DedupeEnabled         *bool `yaml:"dedupe_enabled,omitempty" json:"dedupeEnabled,omitempty"`
}

// Config is the launcher's runtime configuration.
type Config struct {
	// JavaPath is the Java executable used to launch game instances.
	// Empty means "resolve from PATH".
	JavaPath string `yaml:"java_path,omitempty" json:"javaPath,omitempty"`
	// GameDir is the working directory for spawned game processes.
	// Empty means "use the launcher's working directory".
	GameDir string `yaml:"game_dir,omitempty" json:"gameDir,omitempty"`
	// WebSocketPort is the port for the local WebSocket server used for
	// high-throughput game console streaming. 0 (default) lets the OS
	// assign an available port, which is recommended to avoid conflicts.
	WebSocketPort int `yaml:"websocket_port" json:"webSocketPort"`
	// StaleCleanupMinutes is the age after which finished instances are
	// reclaimed by the periodic cleanup the frontend drives. <= 0 restores
	// the default.
	StaleCleanupMinutes int           `yaml:"stale_cleanup_minutes" json:"staleCleanupMinutes"`
	Logging             LoggingConfig `yaml:"logging" json:"logging"`
}

// DefaultConfig returns default values for a fresh install.
func DefaultConfig() Config {
	return Config{
		StaleCleanupMinutes: 30,
		Logging: LoggingConfig{
			MaxEntriesPerInstance: loghub.DefaultMaxEntriesPerInstance,
			MaxGlobalEntries:      loghub.DefaultMaxGlobalEntries,
			DedupeWindowSize:      loghub.DefaultDedupeWindowSize,
			DedupeTimeWindowMs:    int(loghub.DefaultDedupeTimeWindow / time.Millisecond),
		},
	}
}

// HubConfig translates the logging section into the hub's configuration.
// An absent dedupe_enabled key means enabled.
func (c Config) HubConfig() loghub.Config {
	enabled := true
	if c.Logging.DedupeEnabled != nil {
		enabled = *c.Logging.DedupeEnabled
	}
	return loghub.Config{
		MaxEntriesPerInstance: c.Logging.MaxEntriesPerInstance,
		MaxGlobalEntries:      c.Logging.MaxGlobalEntries,
		DedupeWindowSize:      c.Logging.DedupeWindowSize,
		DedupeTimeWindow:      time.Duration(c.Logging.DedupeTimeWindowMs) * time.Millisecond,
		DedupeEnabled:         enabled,
	}
}

// Clone returns a deep copy of cfg. Use this when sharing config snapshots
// across goroutines or package boundaries.
func Clone(src Config) Config {
	dst := src
	if src.Logging.DedupeEnabled != nil {
		v := *src.Logging.DedupeEnabled
		dst.Logging.DedupeEnabled = &v
	}
	return dst
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			// Keep the config path resolvable even in restricted environments.
			slog.Warn("[config] using temp dir as config path fallback", "error", err)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "kable", "config.yaml")
}

// Load reads the config file. A missing file returns defaults without error;
// a malformed file returns defaults with the parse error so the caller can
// surface a warning without losing a working configuration.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[config] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	applyDefaultsAndValidate(&cfg)
	return cfg, nil
}

// EnsureFile writes default config if missing and returns loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Save validates cfg, fills defaults, and atomically writes to path.
// Returns the normalized config that was actually written to disk.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	applyDefaultsAndValidate(&cfg)

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[config] config saved", "path", path)
	return cfg, nil
}

// applyDefaultsAndValidate fills missing defaults and clamps out-of-range
// values in-place. Bad settings values are corrected, never rejected: this
// subsystem must not be the reason the launcher fails to start.
func applyDefaultsAndValidate(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.StaleCleanupMinutes <= 0 {
		cfg.StaleCleanupMinutes = defaults.StaleCleanupMinutes
	}
	if cfg.WebSocketPort < 0 || cfg.WebSocketPort > maxValidPort {
		slog.Warn("[config] websocket_port out of range, using OS-assigned port", "port", cfg.WebSocketPort)
		cfg.WebSocketPort = 0
	}
	// Negative logging limits collapse to the unbounded sentinel (0); dedupe
	// tuning below zero is meaningless and clamps to zero.
	if cfg.Logging.MaxEntriesPerInstance < 0 {
		cfg.Logging.MaxEntriesPerInstance = 0
	}
	if cfg.Logging.MaxGlobalEntries < 0 {
		cfg.Logging.MaxGlobalEntries = 0
	}
	if cfg.Logging.DedupeWindowSize < 0 {
		cfg.Logging.DedupeWindowSize = 0
	}
	if cfg.Logging.DedupeTimeWindowMs < 0 {
		cfg.Logging.DedupeTimeWindowMs = 0
	}
	if strings.TrimSpace(cfg.JavaPath) == "" {
		cfg.JavaPath = ""
	}
}

// atomicWrite writes config data using temp-file + rename to avoid partial
// writes and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	// Atomic write: temp file + rename in same directory ensures
	// same-filesystem rename and prevents partial writes on crash.
	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[config] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[config] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath normalizes path and enforces that config writes stay
// inside the default config directory when that directory is resolvable.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}

	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir blocks directory traversal by ensuring path is under dir.
// It also rejects Windows cross-drive escapes because filepath.Rel returns
// an absolute path when roots differ.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
