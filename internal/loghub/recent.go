package loghub

import (
	"sort"
	"time"
)

// recentIndexMaxEntries is the size threshold past which the index is
// opportunistically pruned. The index has an independent lifecycle from the
// log buffers: pruning here never touches stored entries.
const recentIndexMaxEntries = 1000

// recentKey identifies one deduplication slot: a scope, a level, and a
// normalized message.
type recentKey struct {
	scope   string
	level   Level
	message string
}

// recentIndex maps dedup keys to their last-seen time. It backs the
// time-windowed duplicate check for global launcher chatter, which can recur
// after long gaps with many unrelated messages in between, where a
// trailing-window scan alone would miss the repeat.
//
// Advisory only: a missing entry never drops a stored log; it only ever
// suppresses storage of new duplicates. Never read by the UI layer.
//
// Not safe for concurrent use; the Hub's mutex guards all access.
type recentIndex struct {
	lastSeen map[recentKey]time.Time
}

func newRecentIndex() *recentIndex {
	return &recentIndex{lastSeen: make(map[recentKey]time.Time)}
}

// seenWithin reports whether key was last recorded less than window ago.
// A zero or negative window disables the time-based check entirely.
func (idx *recentIndex) seenWithin(key recentKey, now time.Time, window time.Duration) bool {
	if window <= 0 {
		return false
	}
	last, ok := idx.lastSeen[key]
	if !ok {
		return false
	}
	return now.Sub(last) < window
}

// record updates the last-seen time for key and prunes the index if it has
// grown past its size threshold. Entries older than the dedupe window are
// dropped first; if everything is still fresh the oldest entries are evicted
// until the index fits, so the index stays bounded even under a long window.
func (idx *recentIndex) record(key recentKey, now time.Time, window time.Duration) {
	idx.lastSeen[key] = now
	if len(idx.lastSeen) <= recentIndexMaxEntries {
		return
	}

	cutoff := now.Add(-window)
	for k, seen := range idx.lastSeen {
		if seen.Before(cutoff) {
			delete(idx.lastSeen, k)
		}
	}
	if len(idx.lastSeen) <= recentIndexMaxEntries {
		return
	}

	// Everything is within the window: evict oldest-first down to the
	// threshold. Rare path; sorting ~1000 entries is acceptable here.
	type aged struct {
		key  recentKey
		seen time.Time
	}
	entries := make([]aged, 0, len(idx.lastSeen))
	for k, seen := range idx.lastSeen {
		entries = append(entries, aged{key: k, seen: seen})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seen.Before(entries[j].seen) })
	for _, e := range entries[:len(entries)-recentIndexMaxEntries] {
		delete(idx.lastSeen, e.key)
	}
}

// size returns the number of keys currently tracked. Test helper.
func (idx *recentIndex) size() int {
	return len(idx.lastSeen)
}
