package page

import (
	"github.com/bptreedb/bptreedb/internal/buffer"
	"github.com/bptreedb/bptreedb/internal/diskmgr"
)

// pool is the subset of *buffer.Pool a guard needs to release its pin.
// Declared as an interface so tests can substitute a fake pool.
type pool interface {
	UnpinPage(id diskmgr.PageID, isDirty bool) error
}

// BasicGuard is a neutral scoped handle on a pinned frame: no latch
// semantics, dirty starts false and is set via SetDirty. Release on Drop
// unpins the frame with the guard's dirty flag.
type BasicGuard struct {
	pool     pool
	frame    *buffer.Frame
	dirty    bool
	released bool
}

// NewBasicGuard wraps an already-pinned frame.
func NewBasicGuard(p pool, f *buffer.Frame) *BasicGuard {
	return &BasicGuard{pool: p, frame: f}
}

// PageID returns the id of the pinned page.
func (g *BasicGuard) PageID() diskmgr.PageID { return g.frame.PageID() }

// Data exposes the frame's raw bytes.
func (g *BasicGuard) Data() []byte { return g.frame.Data() }

// SetDirty marks (or clears) the guard's pending dirty flag.
func (g *BasicGuard) SetDirty(dirty bool) { g.dirty = dirty }

// Drop releases the pin early. Safe to call more than once.
func (g *BasicGuard) Drop() {
	if g.released {
		return
	}
	g.released = true
	_ = g.pool.UnpinPage(g.frame.PageID(), g.dirty)
}

// ReadGuard is a scoped handle granting a read-only view of a pinned
// frame. Dirty is always false on drop.
type ReadGuard struct {
	pool     pool
	frame    *buffer.Frame
	released bool
}

// NewReadGuard wraps an already-pinned frame for read access.
func NewReadGuard(p pool, f *buffer.Frame) *ReadGuard {
	return &ReadGuard{pool: p, frame: f}
}

// PageID returns the id of the pinned page.
func (g *ReadGuard) PageID() diskmgr.PageID { return g.frame.PageID() }

// Data exposes the frame's raw bytes; callers must not mutate them.
func (g *ReadGuard) Data() []byte { return g.frame.Data() }

// Drop releases the pin early, reporting the frame clean.
func (g *ReadGuard) Drop() {
	if g.released {
		return
	}
	g.released = true
	_ = g.pool.UnpinPage(g.frame.PageID(), false)
}

// WriteGuard is a scoped handle granting a mutable view of a pinned
// frame. Any access through MutableData marks the frame dirty; Drop
// unpins with that accumulated dirty flag.
type WriteGuard struct {
	pool     pool
	frame    *buffer.Frame
	dirty    bool
	released bool
}

// NewWriteGuard wraps an already-pinned frame for write access.
func NewWriteGuard(p pool, f *buffer.Frame) *WriteGuard {
	return &WriteGuard{pool: p, frame: f}
}

// PageID returns the id of the pinned page.
func (g *WriteGuard) PageID() diskmgr.PageID { return g.frame.PageID() }

// Data exposes the frame's raw bytes without marking the frame dirty;
// use MutableData when the access will modify the page.
func (g *WriteGuard) Data() []byte { return g.frame.Data() }

// MutableData exposes the frame's raw bytes and marks the frame dirty.
func (g *WriteGuard) MutableData() []byte {
	g.dirty = true
	return g.frame.Data()
}

// Drop releases the pin early, unpinning with the accumulated dirty flag.
func (g *WriteGuard) Drop() {
	if g.released {
		return
	}
	g.released = true
	_ = g.pool.UnpinPage(g.frame.PageID(), g.dirty)
}
