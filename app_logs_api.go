package main

import (
	"log/slog"
	"time"

	"kable/internal/loghub"
)

// GetCurrentLogView returns the launcher and game lines for the currently
// selected scope. The frontend calls this after every kable:logs-updated ping.
func (a *App) GetCurrentLogView() loghub.View {
	return a.hub.CurrentView()
}

// SetLogSelection switches the selected scope ("global" or an instance id)
// and pings the frontend so it re-fetches the view.
func (a *App) SetLogSelection(scope string) {
	a.hub.SetSelection(scope)
	a.emitRuntimeEvent("kable:logs-updated", nil)
}

// GetLogSelection returns the currently selected scope.
func (a *App) GetLogSelection() string {
	return a.hub.Selection()
}

// GetLogStats returns buffer occupancy and configured limits for the
// diagnostics panel.
func (a *App) GetLogStats() loghub.Stats {
	return a.hub.Stats()
}

// ListInstances returns all registered game instances.
func (a *App) ListInstances() []loghub.GameInstance {
	return a.hub.Instances()
}

// RemoveInstance drops an instance record and its log buffers. Running
// instances must be stopped first.
func (a *App) RemoveInstance(id string) bool {
	if a.launcher != nil && a.launcher.Running(id) {
		slog.Warn("[loghub] refusing to remove running instance", "instance", id)
		return false
	}
	removed := a.hub.RemoveInstance(id)
	if removed {
		a.emitInstancesUpdated()
	}
	return removed
}

// CleanupStaleInstances removes terminal instances whose last activity is
// older than the configured stale_cleanup_minutes and returns their ids.
// The background sweeper runs the same operation periodically; this binding
// lets the frontend trigger it on demand.
func (a *App) CleanupStaleInstances() []string {
	maxAge := time.Duration(a.getConfigSnapshot().StaleCleanupMinutes) * time.Minute
	removed := a.hub.CleanupStale(maxAge)
	if len(removed) > 0 {
		a.emitInstancesUpdated()
	}
	return removed
}
