package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kable/internal/config"
	"kable/internal/ipc"
	"kable/internal/launcher"
	"kable/internal/loghub"
	"kable/internal/logtee"
	"kable/internal/workerutil"
	"kable/internal/wsserver"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

var (
	runtimeEventsEmitFn           = runtime.EventsEmit
	runtimeWindowShowFn           = runtime.WindowShow
	runtimeWindowUnminimiseFn     = runtime.WindowUnminimise
	runtimeWindowSetAlwaysOnTopFn = runtime.WindowSetAlwaysOnTop
	newPipeServerFn               = ipc.NewPipeServer
)

const (
	shutdownWaitTimeout = 10 * time.Second

	// staleSweepInterval is how often the background sweeper checks for
	// terminal instances that have gone quiet. The age threshold itself
	// comes from config (stale_cleanup_minutes).
	staleSweepInterval = time.Minute

	// logteeMinLevel is the capture threshold for teeing the launcher's own
	// slog records into the log hub. Warn keeps the launcher buffer focused
	// on actionable diagnostics; Info-level chatter stays on stderr only.
	logteeMinLevel = slog.LevelWarn
)

func (a *App) addPendingConfigLoadWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	a.startupWarnMu.Lock()
	a.configLoadWarnings = append(a.configLoadWarnings, trimmed)
	a.startupWarnMu.Unlock()
}

func (a *App) consumePendingConfigLoadWarning() string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	if len(a.configLoadWarnings) == 0 {
		return ""
	}
	message := strings.Join(a.configLoadWarnings, "\n")
	a.configLoadWarnings = nil
	return message
}

func (a *App) startup(ctx context.Context) {
	setConsoleUTF8()

	a.setRuntimeContext(ctx)
	a.installLogTee()

	a.configPath = config.DefaultPath()
	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		// Config load/parse failures are non-fatal. Continue startup with
		// defaults and surface a warning to the user.
		a.addPendingConfigLoadWarning(
			"Failed to load config file at startup. Running with defaults. Error: " + err.Error(),
		)
		slog.Warn("[config] startup load failed, using defaults", "path", a.configPath, "error", err)
	}
	a.setConfigSnapshot(cfg)
	a.hub.ApplyConfig(cfg.HubConfig())
	a.hub.SetNotify(a.notifyLogsUpdated)

	a.startConsoleStream(ctx, cfg)

	var sink launcher.ConsoleSink
	if a.wsHub != nil {
		sink = a.wsHub
	}
	a.launcher = launcher.NewManager(a.hub, sink)

	a.pipeServer = newPipeServerFn("", a)
	if err := a.pipeServer.Start(); err != nil {
		slog.Warn("[ipc] pipe server unavailable, second-instance activation disabled", "error", err)
	} else {
		slog.Info("[ipc] pipe server listening", "pipe", a.pipeServer.PipeName())
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	a.bgCancel = cancel
	a.startConfigWatcher(bgCtx)
	a.startStaleSweeper(bgCtx)

	a.flushPendingConfigLoadWarnings()
}

// installLogTee routes the launcher's own slog records into the log hub so
// that backend warnings and errors show up in the launcher log view.
func (a *App) installLogTee() {
	base := slog.Default().Handler()
	teed := logtee.NewHandler(base, logteeMinLevel, func(ts time.Time, level slog.Level, msg string, group string) {
		if group != "" {
			msg = group + ": " + msg
		}
		a.hub.Append("", loghub.SourceLauncher, loghub.LevelFromSlog(level), msg)
	})
	slog.SetDefault(slog.New(teed))
}

// startConsoleStream brings up the localhost WebSocket server for raw game
// console output. Failure is non-fatal: the UI still updates via the
// logs-updated ping and GetCurrentLogView.
func (a *App) startConsoleStream(ctx context.Context, cfg config.Config) {
	addr := "127.0.0.1:0"
	if cfg.WebSocketPort > 0 {
		addr = fmt.Sprintf("127.0.0.1:%d", cfg.WebSocketPort)
	}
	hub := wsserver.NewHub(wsserver.HubOptions{Addr: addr})
	if err := hub.Start(ctx); err != nil {
		slog.Warn("[console-ws] server failed to start, console streaming disabled", "addr", addr, "error", err)
		return
	}
	a.wsHub = hub
	slog.Info("[console-ws] server listening", "url", hub.URL())
}

func (a *App) startConfigWatcher(ctx context.Context) {
	watcher, err := config.NewWatcher(a.configPath, a.handleConfigFileChange)
	if err != nil {
		slog.Warn("[config] watcher unavailable, external edits require restart", "error", err)
		return
	}
	a.watcher = watcher
	workerutil.RunWithPanicRecovery(ctx, "config-watcher", &a.bgWG, watcher.Run, workerutil.RecoveryOptions{
		IsShutdown: a.shuttingDown.Load,
	})
}

// startStaleSweeper periodically removes instances that are no longer running
// and have been inactive past the configured age.
func (a *App) startStaleSweeper(ctx context.Context) {
	workerutil.RunWithPanicRecovery(ctx, "stale-sweeper", &a.bgWG, func(ctx context.Context) {
		ticker := time.NewTicker(staleSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				maxAge := time.Duration(a.getConfigSnapshot().StaleCleanupMinutes) * time.Minute
				if removed := a.hub.CleanupStale(maxAge); len(removed) > 0 {
					slog.Info("[loghub] removed stale instances", "count", len(removed))
					a.emitInstancesUpdated()
				}
			}
		}
	}, workerutil.RecoveryOptions{
		IsShutdown: a.shuttingDown.Load,
	})
}

// handleConfigFileChange applies an externally edited config file: the
// watcher already re-loaded and validated it.
func (a *App) handleConfigFileChange(cfg config.Config) {
	a.cfgSaveMu.Lock()
	a.setConfigSnapshot(cfg)
	version := a.configEventVersion.Add(1)
	event := configUpdatedEvent{
		Config:             config.Clone(cfg),
		Version:            version,
		UpdatedAtUnixMilli: time.Now().UnixMilli(),
	}
	a.cfgSaveMu.Unlock()

	a.applyRuntimeHubConfig(event)
	a.emitRuntimeEvent("kable:config-updated", event)
}

// Handle implements ipc.RequestHandler for second-instance activation.
func (a *App) Handle(req ipc.ActivateRequest) ipc.ActivateResponse {
	switch req.Action {
	case "activate":
		a.bringWindowToFront()
		return ipc.ActivateResponse{OK: true}
	default:
		return ipc.ActivateResponse{Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

// bringWindowToFront shows and raises the application window.
// Used when a second instance signals the first to activate.
func (a *App) bringWindowToFront() {
	ctx := a.runtimeContext()
	if ctx == nil {
		slog.Warn("[ipc] bringWindowToFront dropped because runtime context is nil")
		return
	}
	runtimeWindowShowFn(ctx)
	runtimeWindowUnminimiseFn(ctx)
	runtimeWindowSetAlwaysOnTopFn(ctx, true)
	runtimeWindowSetAlwaysOnTopFn(ctx, false)
}

func (a *App) shutdown(_ context.Context) {
	a.shuttingDown.Store(true)

	if a.launcher != nil {
		a.launcher.StopAll()
	}
	if a.bgCancel != nil {
		a.bgCancel()
		a.bgCancel = nil
	}
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		slog.Warn("[lifecycle] timed out waiting for background workers during shutdown")
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			slog.Warn("[config] watcher close failed", "error", err)
		}
	}
	if a.pipeServer != nil {
		if err := a.pipeServer.Stop(); err != nil {
			slog.Warn("[ipc] pipe server stop failed", "error", err)
		}
	}
	if a.wsHub != nil {
		if err := a.wsHub.Stop(); err != nil {
			slog.Warn("[console-ws] stop failed", "error", err)
		}
	}
	a.clearLogsPingTimer()
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// Best effort timeout guard for shutdown paths. The waiting goroutine may
	// outlive timeout when waitFn blocks indefinitely, but this function is only
	// used during process shutdown where eventual completion is expected.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
