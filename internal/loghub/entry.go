package loghub

import (
	"log/slog"
	"strings"
	"time"
)

// Level is the severity of a log entry. Values serialize as lowercase strings
// for frontend display and match the launcher's historical level names.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// LevelFromSlog maps a slog.Level to the closest launcher log level.
// Levels between the standard slog constants round down (e.g. slog.LevelInfo+2
// maps to info), matching slog's own threshold semantics.
func LevelFromSlog(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarn
	case l >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// ParseLevel normalizes a level string to a known Level. Unknown or empty
// values fall back to info rather than failing; a bad level on a log line
// must never reject the line itself.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "warning":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Source identifies which process a log entry originated from: the launcher
// itself or a spawned game process.
type Source string

const (
	SourceLauncher Source = "launcher"
	SourceGame     Source = "game"
)

// LogEntry is a single immutable log record. Entries are created at append
// time and never mutated afterwards; they are only ever evicted.
//
// Seq is a monotonically increasing counter assigned at append time, giving
// the frontend a stable identity key that survives eviction-driven reindexing.
type LogEntry struct {
	Seq        uint64    `json:"seq"`
	Timestamp  time.Time `json:"ts"`
	Level      Level     `json:"level"`
	Source     Source    `json:"source"`
	InstanceID string    `json:"instanceId,omitempty"` // empty for the global stream
	Message    string    `json:"message"`              // display text (trailing newline stripped)
	Raw        string    `json:"raw,omitempty"`        // original unmodified text; equals Message for most lines

	// norm caches the normalized message computed during the dedupe check at
	// append time. Empty when dedupe was disabled at append time; the scan
	// falls back to recomputing in that case.
	norm string
}
