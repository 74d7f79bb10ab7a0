package buffer

import "sort"

// FrameID identifies a slot in the buffer pool's frame array.
type FrameID int

// LRUKReplacer picks an eviction victim among unpinned frames using the
// backward-K-distance policy (Jiang & Zhou): the frame whose K-th-most-
// recent access is oldest is evicted first; frames with fewer than K
// recorded accesses rank ahead of frames with K or more, ordered by their
// earliest access.
type LRUKReplacer struct {
	k       int
	clock   int64
	history map[FrameID][]int64
	evict   map[FrameID]bool
}

// NewLRUKReplacer constructs a replacer tracking up to k accesses per frame.
func NewLRUKReplacer(k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:       k,
		history: make(map[FrameID][]int64),
		evict:   make(map[FrameID]bool),
	}
}

// RecordAccess logs an access to frame at the current logical timestamp.
func (r *LRUKReplacer) RecordAccess(frame FrameID) {
	r.clock++
	h := append(r.history[frame], r.clock)
	if len(h) > r.k {
		h = h[len(h)-r.k:]
	}
	r.history[frame] = h
	if _, ok := r.evict[frame]; !ok {
		r.evict[frame] = false
	}
}

// SetEvictable marks frame as a candidate (or not) for eviction.
func (r *LRUKReplacer) SetEvictable(frame FrameID, evictable bool) {
	if _, ok := r.history[frame]; !ok {
		return
	}
	r.evict[frame] = evictable
}

// Remove drops all bookkeeping for frame, regardless of its evictable flag.
func (r *LRUKReplacer) Remove(frame FrameID) {
	delete(r.history, frame)
	delete(r.evict, frame)
}

// Size returns the number of frames currently evictable.
func (r *LRUKReplacer) Size() int {
	n := 0
	for _, e := range r.evict {
		if e {
			n++
		}
	}
	return n
}

// Evict selects and removes the highest-priority victim among evictable
// frames, returning false if none is evictable.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	candidates := make([]FrameID, 0, len(r.evict))
	for f, e := range r.evict {
		if e {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		return r.less(candidates[i], candidates[j])
	})

	victim := candidates[0]
	r.Remove(victim)
	return victim, true
}

// less reports whether a has eviction priority over b: frames with < k
// accesses (infinite backward distance) sort first, tied by earliest
// first access; frames with >= k accesses sort by oldest K-th-most-recent
// access.
func (r *LRUKReplacer) less(a, b FrameID) bool {
	ha, hb := r.history[a], r.history[b]
	aInf, bInf := len(ha) < r.k, len(hb) < r.k

	if aInf != bInf {
		return aInf // infinite-distance frames win
	}
	if aInf && bInf {
		return ha[0] < hb[0] // earlier first access wins
	}
	// both have >= k accesses: compare the k-th-most-recent (oldest kept) access
	return ha[0] < hb[0]
}
