package main

import (
	"log/slog"
	"time"

	"kable/internal/config"
)

type configUpdatedEvent struct {
	Config             config.Config `json:"config"`
	Version            uint64        `json:"version"`
	UpdatedAtUnixMilli int64         `json:"updated_at_unix_milli"`
}

// GetConfig returns loaded config.
func (a *App) GetConfig() config.Config {
	return a.getConfigSnapshot()
}

// GetConfigAndFlushWarnings returns loaded config and emits any pending startup warnings.
func (a *App) GetConfigAndFlushWarnings() config.Config {
	a.flushPendingConfigLoadWarnings()
	return a.getConfigSnapshot()
}

func (a *App) flushPendingConfigLoadWarnings() {
	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	if warning := a.consumePendingConfigLoadWarning(); warning != "" {
		a.emitRuntimeEventWithContext(ctx, "kable:config-load-failed", map[string]string{
			"message": warning,
		})
	}
}

// SaveConfig validates and persists cfg to disk, then updates in-memory
// config and pushes the logging limits into the log hub. The
// kable:config-updated event carries the normalized config (with defaults
// filled).
func (a *App) SaveConfig(cfg config.Config) error {
	event, err := a.saveConfigWithLock(cfg)
	if err != nil {
		return err
	}
	a.applyRuntimeHubConfig(event)
	// Event emission intentionally happens outside cfgSaveMu.
	// Concurrent saves are ordered by Version, and frontend consumers must
	// treat the highest version as authoritative.
	a.emitRuntimeEvent("kable:config-updated", event)
	return nil
}

// applyRuntimeHubConfig pushes the logging section into the hub while
// preventing out-of-order writes from concurrent SaveConfig calls and
// watcher reloads.
func (a *App) applyRuntimeHubConfig(event configUpdatedEvent) {
	a.hubCfgUpdateMu.Lock()
	defer a.hubCfgUpdateMu.Unlock()

	// Use <= (not <) so that a duplicate event with the same version is also
	// rejected. Only a strictly newer version should trigger an update.
	if event.Version <= a.hubCfgAppliedVer {
		slog.Debug("[config] skipped stale hub config update", "received", event.Version, "applied", a.hubCfgAppliedVer)
		return
	}

	a.hub.ApplyConfig(event.Config.HubConfig())
	a.hubCfgAppliedVer = event.Version
}

// saveConfigWithLock persists cfg, updates the in-memory snapshot, and bumps event version under cfgSaveMu.
func (a *App) saveConfigWithLock(cfg config.Config) (configUpdatedEvent, error) {
	a.cfgSaveMu.Lock()
	defer a.cfgSaveMu.Unlock()

	normalized, err := config.Save(a.configPath, cfg)
	if err != nil {
		return configUpdatedEvent{}, err
	}
	a.setConfigSnapshot(normalized)
	version := a.configEventVersion.Add(1)

	return configUpdatedEvent{
		Config:             config.Clone(normalized),
		Version:            version,
		UpdatedAtUnixMilli: time.Now().UnixMilli(),
	}, nil
}
