package loghub

// ringInitialAlloc caps the initial backing allocation of an entryRing so
// that configuring a very large (or effectively unbounded) capacity does not
// allocate the whole array upfront. The backing array doubles on demand.
const ringInitialAlloc = 256

// entryRing is a capacity-bounded circular buffer of log entries. It keeps a
// head index and a count over a growable backing array, so steady-state
// appends are O(1) with no allocation and no slice copying.
//
// Capacity changes are lazy: setCapacity only records the new target. A
// shrink does not truncate already-stored entries; the next push evicts down
// to the new capacity before inserting. This keeps settings changes O(1) and
// defers the trim cost to the append path, where it is bounded by the number
// of entries actually evicted.
//
// Not safe for concurrent use; the Hub's mutex guards all access.
type entryRing struct {
	buf      []LogEntry // backing array; len(buf) is the allocated size
	head     int        // index of the oldest entry
	count    int        // number of valid entries (0..len(buf))
	capacity int        // target capacity; always >= 1
}

// newEntryRing allocates a ring with the given target capacity.
// Capacity values < 1 are clamped to 1 to keep the eviction loop total.
func newEntryRing(capacity int) *entryRing {
	if capacity < 1 {
		capacity = 1
	}
	alloc := capacity
	if alloc > ringInitialAlloc {
		alloc = ringInitialAlloc
	}
	return &entryRing{
		buf:      make([]LogEntry, alloc),
		capacity: capacity,
	}
}

// setCapacity records a new target capacity without truncating stored
// entries. Values < 1 are clamped to 1.
func (r *entryRing) setCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	r.capacity = capacity
}

// push appends an entry, evicting oldest-first until the ring is within its
// target capacity. Returns the number of entries evicted, which is normally
// 0 or 1 but can be larger on the first push after a capacity shrink.
func (r *entryRing) push(entry LogEntry) (evicted int) {
	// Lazy trim: make room so that count <= capacity after the insert.
	for r.count >= r.capacity {
		r.buf[r.head] = LogEntry{} // release string references
		r.head = (r.head + 1) % len(r.buf)
		r.count--
		evicted++
	}

	if r.count == len(r.buf) {
		r.grow()
	}

	r.buf[(r.head+r.count)%len(r.buf)] = entry
	r.count++
	return evicted
}

// grow doubles the backing array (bounded by capacity) and linearizes the
// stored entries so head restarts at zero.
func (r *entryRing) grow() {
	newSize := len(r.buf) * 2
	if newSize > r.capacity {
		newSize = r.capacity
	}
	if newSize <= len(r.buf) {
		newSize = len(r.buf) + 1
	}
	out := make([]LogEntry, newSize)
	r.copyInto(out)
	r.buf = out
	r.head = 0
}

// len returns the number of valid entries currently stored.
func (r *entryRing) len() int {
	return r.count
}

// at returns the i-th entry in chronological order (0 = oldest).
// The caller must ensure 0 <= i < count.
func (r *entryRing) at(i int) LogEntry {
	return r.buf[(r.head+i)%len(r.buf)]
}

// snapshot returns a newly allocated slice with all entries in chronological
// order (oldest first), independent of the ring's internal storage.
func (r *entryRing) snapshot() []LogEntry {
	out := make([]LogEntry, r.count)
	r.copyInto(out)
	return out
}

// copyInto copies all valid entries into dst in chronological order.
// dst must have room for at least count entries.
func (r *entryRing) copyInto(dst []LogEntry) {
	if r.count == 0 {
		return
	}
	first := len(r.buf) - r.head
	if first > r.count {
		first = r.count
	}
	copy(dst, r.buf[r.head:r.head+first])
	if rest := r.count - first; rest > 0 {
		copy(dst[first:], r.buf[:rest])
	}
}
