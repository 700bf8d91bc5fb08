// Package loghub maintains a memory-bounded, deduplicated, queryable view of
// recent launcher and game-process log output.
//
// Two concurrently-produced, unbounded text streams feed the hub: the
// launcher's own diagnostic messages and the output of spawned game
// processes, multiplexed across any number of concurrently running game
// instances. The hub routes each line to a per-instance or global bounded
// buffer, suppresses noisy repeats with content- and time-windowed
// deduplication, and serves read-only snapshots to the UI layer.
//
// All mutations (appends, instance lifecycle, config pushes) serialize
// through one RWMutex; reads return copies under the read lock. No operation
// blocks, suspends, or holds internal timers.
package loghub

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// SelectionGlobal selects the global launcher stream in the current view.
const SelectionGlobal = "global"

// View is the pair of line sequences the UI displays for the current
// selection. For the global selection GameLines is always empty: the global
// scope has no game-process stream.
type View struct {
	LauncherLines []LogEntry `json:"launcherLines"`
	GameLines     []LogEntry `json:"gameLines"`
}

// Stats is a read-only aggregate over the hub for diagnostics display.
// Limit fields report the configured values, where 0 means unbounded.
type Stats struct {
	TotalEntries          int `json:"totalEntries"`
	InstanceCount         int `json:"instanceCount"`
	MaxEntriesPerInstance int `json:"maxEntriesPerInstance"`
	MaxGlobalEntries      int `json:"maxGlobalEntries"`
}

// Hub owns all log buffers, the instance registry, the recent-message index,
// and the current selection. Construct one Hub at startup and share it by
// pointer; tests construct a fresh Hub per case.
type Hub struct {
	// mu guards every field below. Writers (Append, lifecycle, ApplyConfig)
	// take the write lock; snapshot reads (CurrentView, Stats, Instances)
	// take the read lock and return copies.
	mu sync.RWMutex

	cfg       Config
	global    *entryRing
	instances map[string]*instanceLogs
	recent    *recentIndex
	selection string
	seq       uint64

	// notify is invoked after every accepted append, outside the lock. Set
	// once during startup via SetNotify; the app layer uses it to emit a
	// throttled "logs updated" ping to the frontend.
	notify func()

	// nowFn is a test seam; production code never overrides it.
	nowFn func() time.Time
}

// NewHub constructs a hub with the given configuration. Out-of-range tuning
// values are clamped, never rejected.
func NewHub(cfg Config) *Hub {
	cfg = cfg.normalized()
	return &Hub{
		cfg:       cfg,
		global:    newEntryRing(effectiveCapacity(cfg.MaxGlobalEntries)),
		instances: make(map[string]*instanceLogs),
		recent:    newRecentIndex(),
		selection: SelectionGlobal,
		nowFn:     time.Now,
	}
}

// SetNotify installs the post-append notification hook. Must be called during
// startup before producers run; the hook itself runs outside the hub lock and
// must not call back into mutating hub methods.
func (h *Hub) SetNotify(fn func()) {
	h.mu.Lock()
	h.notify = fn
	h.mu.Unlock()
}

// Append routes one message to the buffer selected by (instanceID, source)
// and reports whether it was stored. An empty instanceID targets the global
// launcher stream. An unknown instanceID is a silent no-op: a race between
// instance teardown and a trailing log line is expected and must not crash
// or auto-create a record. Duplicate messages are suppressed per the dedupe
// configuration.
func (h *Hub) Append(instanceID string, source Source, level Level, message string) bool {
	stored, notify := h.append(instanceID, source, level, message)
	if stored && notify != nil {
		notify()
	}
	return stored
}

// append performs the locked portion of Append and returns the notify hook
// so the caller can invoke it after the lock is released.
func (h *Hub) append(instanceID string, source Source, level Level, message string) (bool, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	target := h.route(instanceID, source)
	if target == nil {
		return false, nil
	}

	now := h.nowFn()
	var norm string
	if h.cfg.DedupeEnabled {
		norm = normalizeMessage(message)
		if norm != "" {
			if windowContains(target, norm, h.cfg.DedupeWindowSize) {
				return false, nil
			}
			if instanceID == "" {
				key := recentKey{scope: SelectionGlobal, level: level, message: norm}
				if h.recent.seenWithin(key, now, h.cfg.DedupeTimeWindow) {
					return false, nil
				}
				h.recent.record(key, now, h.cfg.DedupeTimeWindow)
			}
		}
	}

	h.seq++
	target.push(LogEntry{
		Seq:        h.seq,
		Timestamp:  now,
		Level:      level,
		Source:     source,
		InstanceID: instanceID,
		Message:    trimLine(message),
		Raw:        message,
		norm:       norm,
	})
	return true, h.notify
}

// route maps (instanceID, source) to the target ring. Returns nil when the
// instance is unknown. Global-scope messages land in the single global ring
// regardless of source.
func (h *Hub) route(instanceID string, source Source) *entryRing {
	if instanceID == "" {
		return h.global
	}
	inst, ok := h.instances[instanceID]
	if !ok {
		return nil
	}
	if source == SourceGame {
		return inst.game
	}
	return inst.launcher
}

// windowContains scans the last window entries of the ring for a message
// whose normalized form equals norm. This is a content+recency check bounded
// to O(window), not a whole-buffer scan.
func windowContains(r *entryRing, norm string, window int) bool {
	if window <= 0 {
		return false
	}
	start := r.len() - window
	if start < 0 {
		start = 0
	}
	for i := r.len() - 1; i >= start; i-- {
		if entryNorm(r.at(i)) == norm {
			return true
		}
	}
	return false
}

// entryNorm returns the cached normalized message, recomputing it for
// entries appended while dedupe was disabled.
func entryNorm(e LogEntry) string {
	if e.norm != "" {
		return e.norm
	}
	return normalizeMessage(e.Message)
}

// trimLine strips the trailing line terminator for display while Raw keeps
// the original text.
func trimLine(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// RegisterInstance creates the log record for a newly-launched instance.
// Idempotent: registering an already-known id is a no-op, never a reset.
// An empty id is ignored.
func (h *Hub) RegisterInstance(inst GameInstance) {
	if inst.ID == "" {
		slog.Warn("[loghub] register ignored: empty instance id")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.instances[inst.ID]; exists {
		return
	}
	if inst.Status == "" {
		inst.Status = StatusRunning
	}
	if inst.LastActivity.IsZero() {
		inst.LastActivity = h.nowFn()
	}
	perInstance := effectiveCapacity(h.cfg.MaxEntriesPerInstance)
	h.instances[inst.ID] = &instanceLogs{
		info:     inst,
		launcher: newEntryRing(perInstance),
		game:     newEntryRing(perInstance),
	}
}

// UpdateInstance merges the non-nil fields of upd into the instance record.
// Unknown ids are a no-op.
func (h *Hub) UpdateInstance(id string, upd InstanceUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inst, ok := h.instances[id]
	if !ok {
		return
	}
	if upd.Name != nil {
		inst.info.Name = *upd.Name
	}
	if upd.Status != nil {
		inst.info.Status = *upd.Status
	}
	if upd.LastActivity != nil {
		inst.info.LastActivity = *upd.LastActivity
	}
}

// RemoveInstance deletes the instance record and discards all of its stored
// logs immediately. This is the explicit, destructive reclamation act; a
// status transition to closed/crashed/stopped never removes anything on its
// own. Reports whether the id was known.
func (h *Hub) RemoveInstance(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(id)
}

func (h *Hub) removeLocked(id string) bool {
	if _, ok := h.instances[id]; !ok {
		return false
	}
	delete(h.instances, id)
	return true
}

// CleanupStale removes every instance whose status is terminal and whose
// last activity is older than maxAge, returning the removed ids sorted.
// Invoked by an external caller on its own schedule; the hub holds no
// timers. A single bounded synchronous pass.
func (h *Hub) CleanupStale(maxAge time.Duration) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.nowFn().Add(-maxAge)
	var removed []string
	for id, inst := range h.instances {
		if inst.info.Status.Terminal() && inst.info.LastActivity.Before(cutoff) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		h.removeLocked(id)
	}
	sort.Strings(removed)
	if len(removed) > 0 {
		slog.Debug("[loghub] stale instances reclaimed", "count", len(removed), "maxAge", maxAge)
	}
	return removed
}

// ApplyConfig atomically replaces the hub configuration. Capacity changes
// apply to buffers lazily on their next append; no stored entries are
// proactively truncated. Safe against concurrent appends (same lock), and
// idempotent when the settings source re-pushes an unchanged value.
func (h *Hub) ApplyConfig(cfg Config) {
	cfg = cfg.normalized()

	h.mu.Lock()
	defer h.mu.Unlock()

	if cfg == h.cfg {
		return
	}
	h.cfg = cfg
	h.global.setCapacity(effectiveCapacity(cfg.MaxGlobalEntries))
	perInstance := effectiveCapacity(cfg.MaxEntriesPerInstance)
	for _, inst := range h.instances {
		inst.launcher.setCapacity(perInstance)
		inst.game.setCapacity(perInstance)
	}
	slog.Debug("[loghub] config applied",
		"maxEntriesPerInstance", cfg.MaxEntriesPerInstance,
		"maxGlobalEntries", cfg.MaxGlobalEntries,
		"dedupeWindowSize", cfg.DedupeWindowSize,
		"dedupeTimeWindow", cfg.DedupeTimeWindow,
		"dedupeEnabled", cfg.DedupeEnabled)
}

// ConfigSnapshot returns the current configuration.
func (h *Hub) ConfigSnapshot() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// SetSelection changes which scope CurrentView projects. Pure state change;
// selecting an unknown or already-removed instance id is allowed and simply
// projects two empty sequences. An empty selection means global.
func (h *Hub) SetSelection(scope string) {
	if scope == "" {
		scope = SelectionGlobal
	}
	h.mu.Lock()
	h.selection = scope
	h.mu.Unlock()
}

// Selection returns the currently selected scope.
func (h *Hub) Selection() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.selection
}

// CurrentView projects the currently selected scope. See ViewFor.
func (h *Hub) CurrentView() View {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewLocked(h.selection)
}

// ViewFor projects an explicit selection: the global buffer (with an empty
// game stream) for SelectionGlobal, an instance's launcher and game buffers
// otherwise. Unknown ids yield two empty sequences, never an error. Cheap
// enough to recompute on every mutation ping because buffer sizes are
// bounded.
func (h *Hub) ViewFor(scope string) View {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewLocked(scope)
}

func (h *Hub) viewLocked(scope string) View {
	if scope == "" || scope == SelectionGlobal {
		return View{
			LauncherLines: h.global.snapshot(),
			GameLines:     []LogEntry{},
		}
	}
	inst, ok := h.instances[scope]
	if !ok {
		return View{LauncherLines: []LogEntry{}, GameLines: []LogEntry{}}
	}
	return View{
		LauncherLines: inst.launcher.snapshot(),
		GameLines:     inst.game.snapshot(),
	}
}

// Stats sums current buffer lengths across the global stream and all tracked
// instances. Read-only and side-effect-free; safe to call frequently.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := h.global.len()
	for _, inst := range h.instances {
		total += inst.launcher.len() + inst.game.len()
	}
	return Stats{
		TotalEntries:          total,
		InstanceCount:         len(h.instances),
		MaxEntriesPerInstance: h.cfg.MaxEntriesPerInstance,
		MaxGlobalEntries:      h.cfg.MaxGlobalEntries,
	}
}

// Instances returns a snapshot of all registered instance records sorted by
// id, for UI listing.
func (h *Hub) Instances() []GameInstance {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]GameInstance, 0, len(h.instances))
	for _, inst := range h.instances {
		out = append(out, inst.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Instance returns the record for id and whether it is registered.
func (h *Hub) Instance(id string) (GameInstance, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	inst, ok := h.instances[id]
	if !ok {
		return GameInstance{}, false
	}
	return inst.info, true
}
