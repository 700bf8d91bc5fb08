package loghub

import (
	"regexp"
	"strings"
)

// Timestamp patterns commonly embedded in launcher and game log lines.
// Bracketed date-time must be stripped before bracketed time so that
// "[2024-01-02 15:04:05]" is not left half-matched.
var (
	bracketDateTimePattern = regexp.MustCompile(`\[\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:\.\d+)?\]`)
	bracketTimePattern     = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}(?:\.\d+)?\]`)
	bareTimePattern        = regexp.MustCompile(`\b\d{2}:\d{2}:\d{2}\b`)
)

// normalizeMessage strips volatile timestamp substrings from a message so
// that semantically identical lines compare equal regardless of when they
// were logged. Pure and total; never fails.
//
// A message that is empty after stripping normalizes to "". Callers must
// treat "" as not comparable: blank separator lines and timestamp-only lines
// are never suppressed as duplicates of each other.
func normalizeMessage(msg string) string {
	msg = bracketDateTimePattern.ReplaceAllString(msg, "")
	msg = bracketTimePattern.ReplaceAllString(msg, "")
	msg = bareTimePattern.ReplaceAllString(msg, "")
	return strings.TrimSpace(msg)
}
