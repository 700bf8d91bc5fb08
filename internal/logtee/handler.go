// Package logtee provides a [slog.Handler] wrapper that mirrors log records
// into the launcher's in-memory log hub while still writing them to the
// normal destination.
package logtee

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

// EntryCallback is invoked for each log record at or above the capture
// threshold. group is the accumulated dot-separated slog group name, or empty;
// callers typically use it to tag the component that produced the record.
type EntryCallback func(ts time.Time, level slog.Level, msg string, group string)

// Handler wraps a base [slog.Handler] and tees records at or above minLevel
// to a callback. All records are forwarded to the base handler regardless of
// level; only the callback invocation is gated by minLevel.
type Handler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Level
	group    string
}

// NewHandler creates a Handler that delegates to base and invokes callback
// for every record whose level is >= minLevel.
//
// A nil callback is safe; the handler simply delegates to base without teeing.
func NewHandler(base slog.Handler, minLevel slog.Level, callback EntryCallback) *Handler {
	return &Handler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
	}
}

// Enabled reports whether the base handler is enabled for the given level.
// The callback threshold does not affect visibility; the base handler decides.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards the record to the base handler, then conditionally invokes
// the callback if the record's level meets or exceeds minLevel.
//
// NOTE: The callback is invoked regardless of base handler error. The hub must
// capture the record even if the file/stderr handler fails; the callback never
// sees the base error.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.callback != nil && record.Level >= h.minLevel {
		func() {
			defer func() {
				if r := recover(); r != nil {
					// NOTE: Callback panic goes straight to stderr, not slog,
					// to avoid recursive Handler invocation.
					fmt.Fprintf(os.Stderr, "[log-tee] callback panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.callback(record.Time, record.Level, record.Message, h.group)
		}()
	}

	// slog.Logger surfaces the returned error on stderr ("slog: <error>"),
	// which keeps base handler failures visible.
	return err
}

// WithAttrs returns a new Handler whose base handler has the given attributes
// applied. The callback, minLevel, and accumulated group are preserved.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &Handler{
		base:     h.base.WithAttrs(attrs),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    h.group,
	}
}

// WithGroup returns a new Handler whose base handler is wrapped with the given
// group name. The name is appended to the accumulated group string, separated
// by "." if a prefix already exists.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h // slog.Handler spec: empty group name returns the receiver unchanged.
	}
	newGroup := name
	if h.group != "" {
		newGroup = h.group + "." + name
	}

	return &Handler{
		base:     h.base.WithGroup(name),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    newGroup,
	}
}
