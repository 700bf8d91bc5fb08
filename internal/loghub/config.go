package loghub

import "time"

const (
	// Defaults match the launcher's historical settings values.
	DefaultMaxEntriesPerInstance = 5000
	DefaultMaxGlobalEntries      = 5000
	DefaultDedupeWindowSize      = 50
	DefaultDedupeTimeWindow      = 30 * time.Second

	// unboundedCapacity is the effective capacity used when a configured
	// limit is zero or negative ("unlimited"). A very large finite value
	// keeps the bounded-buffer invariant machinery unchanged instead of
	// introducing a literally-unbounded code path.
	unboundedCapacity = 1 << 30
)

// Config is the hub-wide logging configuration. Capacity fields of zero or
// negative mean "unbounded" and are translated to a large effective capacity
// internally; they are stored as given so Stats can report the configured
// values back to the settings UI.
type Config struct {
	MaxEntriesPerInstance int           `json:"maxEntriesPerInstance"`
	MaxGlobalEntries      int           `json:"maxGlobalEntries"`
	DedupeWindowSize      int           `json:"dedupeWindowSize"`
	DedupeTimeWindow      time.Duration `json:"dedupeTimeWindowMs"`
	DedupeEnabled         bool          `json:"dedupeEnabled"`
}

// DefaultConfig returns the configuration used before any settings push.
func DefaultConfig() Config {
	return Config{
		MaxEntriesPerInstance: DefaultMaxEntriesPerInstance,
		MaxGlobalEntries:      DefaultMaxGlobalEntries,
		DedupeWindowSize:      DefaultDedupeWindowSize,
		DedupeTimeWindow:      DefaultDedupeTimeWindow,
		DedupeEnabled:         true,
	}
}

// normalized clamps out-of-range tuning values in place of rejecting them.
// This subsystem must never crash the application over a bad settings value.
func (c Config) normalized() Config {
	if c.DedupeWindowSize < 0 {
		c.DedupeWindowSize = 0
	}
	if c.DedupeTimeWindow < 0 {
		c.DedupeTimeWindow = 0
	}
	return c
}

// effectiveCapacity maps a configured limit to the capacity actually enforced
// by the ring: the unbounded sentinel for zero/negative, the value otherwise.
func effectiveCapacity(configured int) int {
	if configured <= 0 {
		return unboundedCapacity
	}
	return configured
}
