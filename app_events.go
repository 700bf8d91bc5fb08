package main

import (
	"context"
	"log/slog"
	"time"
)

// logsPingMinInterval throttles kable:logs-updated emissions during output
// floods. The ping carries no payload; the frontend re-fetches the current
// view on each one, so coalescing pings never loses data.
const logsPingMinInterval = 100 * time.Millisecond

// emitRuntimeEvent emits via the app context and delegates to emitRuntimeEventWithContext.
func (a *App) emitRuntimeEvent(name string, payload any) {
	a.emitRuntimeEventWithContext(a.runtimeContext(), name, payload)
}

// emitRuntimeEventWithContext emits a runtime event only when ctx is non-nil.
// The nil-context drop logs at Debug: this path runs inside hub notification,
// and the logtee captures Warn and above back into the hub.
func (a *App) emitRuntimeEventWithContext(ctx context.Context, name string, payload any) {
	if ctx == nil {
		slog.Debug("[event] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}

// notifyLogsUpdated is the hub's notify hook, invoked after every accepted
// append (outside the hub lock).
//
// Strategy: leading-edge fixed-window throttle. The first append after a
// quiet period pings immediately; appends inside the window arm a single
// trailing timer so the frontend always learns about the last burst.
func (a *App) notifyLogsUpdated() {
	a.logsPingMu.Lock()
	now := time.Now()
	if now.Sub(a.logsPingLast) >= logsPingMinInterval {
		a.logsPingLast = now
		a.logsPingMu.Unlock()
		a.emitRuntimeEvent("kable:logs-updated", nil)
		return
	}
	if a.logsPingTimer == nil {
		delay := logsPingMinInterval - now.Sub(a.logsPingLast)
		a.logsPingTimer = time.AfterFunc(delay, a.flushLogsPing)
	}
	a.logsPingMu.Unlock()
}

func (a *App) flushLogsPing() {
	a.logsPingMu.Lock()
	a.logsPingTimer = nil
	a.logsPingLast = time.Now()
	a.logsPingMu.Unlock()
	a.emitRuntimeEvent("kable:logs-updated", nil)
}

func (a *App) clearLogsPingTimer() {
	a.logsPingMu.Lock()
	if a.logsPingTimer != nil {
		a.logsPingTimer.Stop()
		a.logsPingTimer = nil
	}
	a.logsPingMu.Unlock()
}

// emitInstancesUpdated pings the frontend to re-fetch the instance list.
func (a *App) emitInstancesUpdated() {
	a.emitRuntimeEvent("kable:instances-updated", a.hub.Instances())
}
