package launcher

import (
	"strings"

	"kable/internal/loghub"
)

// classifyLine derives a severity from a raw game console line. Vanilla and
// modded games use log4j-style thread markers ("[Server thread/INFO]"), plain
// level words, or nothing at all; fallback applies when no marker is found
// (info for stdout, warn for stderr).
func classifyLine(line string, fallback loghub.Level) loghub.Level {
	switch {
	case containsMarker(line, "FATAL"), containsMarker(line, "ERROR"), containsMarker(line, "SEVERE"):
		return loghub.LevelError
	case containsMarker(line, "WARN"), containsMarker(line, "WARNING"):
		return loghub.LevelWarn
	case containsMarker(line, "DEBUG"), containsMarker(line, "TRACE"), containsMarker(line, "FINE"):
		return loghub.LevelDebug
	case containsMarker(line, "INFO"):
		return loghub.LevelInfo
	default:
		return fallback
	}
}

// containsMarker reports whether the line carries the level word in one of
// the shapes game logs actually use: "/LEVEL]", "[LEVEL]", or "LEVEL:".
// A bare substring match would misfire on message text ("error count: 0").
func containsMarker(line, level string) bool {
	return strings.Contains(line, "/"+level+"]") ||
		strings.Contains(line, "["+level+"]") ||
		strings.Contains(line, level+":")
}
