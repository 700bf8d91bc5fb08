package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"kable/internal/config"
	"kable/internal/ipc"
	"kable/internal/launcher"
	"kable/internal/loghub"
	"kable/internal/wsserver"
)

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle.
	ctx   context.Context
	ctxMu sync.RWMutex

	// Configuration state and startup warnings.
	// Lock ordering (outer -> inner):
	//   cfgSaveMu -> cfgMu
	//   hubCfgUpdateMu -> loghub.Hub.mu (via ApplyConfig)
	//
	// Independent locks: do not assume ordering across these.
	//   ctxMu, startupWarnMu, logsPingMu
	//
	// Keep cfgSaveMu/cfgMu isolated from the independent lock set above.
	cfgMu              sync.RWMutex
	cfgSaveMu          sync.Mutex
	configEventVersion atomic.Uint64
	hubCfgUpdateMu     sync.Mutex
	hubCfgAppliedVer   uint64
	cfg                config.Config
	configPath         string
	startupWarnMu      sync.Mutex
	configLoadWarnings []string

	// Backend services. All are assigned once during startup() and never
	// reassigned; nil checks guard the pre-startup window.
	hub        *loghub.Hub
	launcher   *launcher.Manager
	pipeServer *ipc.PipeServer
	watcher    *config.Watcher

	// wsHub streams raw game console output to the frontend over a localhost
	// WebSocket. nil if the server fails to start; the frontend then falls
	// back to pull-only updates via GetCurrentLogView.
	wsHub *wsserver.Hub

	// logs-updated ping throttling state. See notifyLogsUpdated.
	logsPingMu    sync.Mutex
	logsPingLast  time.Time
	logsPingTimer *time.Timer

	shuttingDown atomic.Bool // set true at the start of shutdown(); checked by worker recovery loops

	// Background worker cancellation/waits.
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// NewApp creates the app service. The log hub exists from construction so
// that early slog records teed via logtee have somewhere to land; the
// configured limits are pushed in during startup once the config file loads.
func NewApp() *App {
	return &App{
		hub: loghub.NewHub(loghub.DefaultConfig()),
	}
}

// GetWebSocketURL returns the WebSocket endpoint URL for the frontend game
// console stream. The frontend calls this on mount to establish a binary
// channel that bypasses Wails IPC overhead for high-frequency console output.
// Returns empty string if the WebSocket server is not available.
func (a *App) GetWebSocketURL() string {
	if a.wsHub == nil {
		slog.Debug("[console-ws] wsHub is nil, WebSocket URL unavailable")
		return ""
	}
	return a.wsHub.URL()
}
