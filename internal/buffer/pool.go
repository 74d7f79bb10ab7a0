// Package buffer implements the fixed-capacity buffer pool that fronts
// the disk manager: a frame array, a free list, a page-id to frame-id
// table, and an LRU-K replacer, serving Fetch/New/Unpin/Flush/Delete page
// operations on behalf of the tree.
package buffer

import (
	"sync"

	"github.com/bptreedb/bptreedb/common"
	"github.com/bptreedb/bptreedb/internal/diskmgr"
)

// Frame is a fixed-size in-memory slot holding one page's bytes plus
// bookkeeping. The latch field is constructed but never locked by the
// single-threaded core; it exists only as the hook spec §5 describes for
// a future multi-threaded extension.
type Frame struct {
	id       FrameID
	pageID   diskmgr.PageID
	data     []byte
	pinCount int
	dirty    bool
	latch    sync.RWMutex
}

// PageID returns the page currently resident in the frame.
func (f *Frame) PageID() diskmgr.PageID { return f.pageID }

// Data returns the frame's raw page bytes.
func (f *Frame) Data() []byte { return f.data }

// PinCount returns the frame's current pin count.
func (f *Frame) PinCount() int { return f.pinCount }

// IsDirty reports whether the frame has unflushed modifications.
func (f *Frame) IsDirty() bool { return f.dirty }

// Pool is the fixed-capacity buffer pool manager.
type Pool struct {
	disk *diskmgr.DiskManager

	frames   []Frame
	freeList []FrameID
	pageTbl  map[diskmgr.PageID]FrameID
	replacer *LRUKReplacer
}

// NewPool constructs a pool of the given capacity (number of frames)
// fronting disk, using k as the LRU-K replacer's history depth.
func NewPool(disk *diskmgr.DiskManager, capacity int, k int) *Pool {
	p := &Pool{
		disk:     disk,
		frames:   make([]Frame, capacity),
		freeList: make([]FrameID, capacity),
		pageTbl:  make(map[diskmgr.PageID]FrameID, capacity),
		replacer: NewLRUKReplacer(k),
	}
	for i := range p.frames {
		p.frames[i] = Frame{id: FrameID(i), pageID: diskmgr.InvalidPageID}
		p.freeList[i] = FrameID(i)
	}
	return p
}

// victim picks a frame to reuse: from the free list first, else from the
// replacer. If the chosen frame holds a dirty page, it is flushed before
// being repurposed; a failed flush is fatal and aborts the eviction
// rather than discarding the write (spec §7 treats I/O errors as fatal
// to the current operation). Returns common.ErrBufferPoolExhausted if
// the pool has no evictable frame.
func (p *Pool) victim() (*Frame, error) {
	if n := len(p.freeList); n > 0 {
		id := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return &p.frames[id], nil
	}

	id, ok := p.replacer.Evict()
	if !ok {
		return nil, common.ErrBufferPoolExhausted
	}

	f := &p.frames[id]
	if f.dirty {
		if err := p.disk.WritePage(f.pageID, f.data); err != nil {
			return nil, err
		}
		f.dirty = false
	}
	delete(p.pageTbl, f.pageID)
	return f, nil
}

// NewPage allocates a fresh page on disk and binds it to a frame with
// pin count 1. Returns common.ErrBufferPoolExhausted if every frame is
// pinned.
func (p *Pool) NewPage() (*Frame, error) {
	f, err := p.victim()
	if err != nil {
		return nil, err
	}

	id := p.disk.AllocatePage()
	f.pageID = id
	f.pinCount = 1
	f.dirty = false
	if f.data == nil {
		f.data = make([]byte, diskmgr.PageSize)
	} else {
		clear(f.data)
	}

	p.pageTbl[id] = f.id
	p.replacer.RecordAccess(f.id)
	p.replacer.SetEvictable(f.id, false)

	return f, nil
}

// FetchPage returns the frame holding id, reading it from disk if it is
// not already resident. Returns common.ErrBufferPoolExhausted if a cold
// fetch needs a victim frame and none is available.
func (p *Pool) FetchPage(id diskmgr.PageID) (*Frame, error) {
	if fid, ok := p.pageTbl[id]; ok {
		f := &p.frames[fid]
		f.pinCount++
		p.replacer.RecordAccess(fid)
		p.replacer.SetEvictable(fid, false)
		return f, nil
	}

	f, err := p.victim()
	if err != nil {
		return nil, err
	}

	if f.data == nil {
		f.data = make([]byte, diskmgr.PageSize)
	}
	if err := p.disk.ReadPage(id, f.data); err != nil {
		return nil, err
	}

	f.pageID = id
	f.pinCount = 1
	f.dirty = false
	p.pageTbl[id] = f.id
	p.replacer.RecordAccess(f.id)
	p.replacer.SetEvictable(f.id, false)

	return f, nil
}

// UnpinPage decrements id's pin count, ORing isDirty into the frame's
// dirty flag, and marks the frame evictable once the pin count reaches
// zero. Returns common.ErrPageNotPinned if id is not resident or already
// unpinned.
func (p *Pool) UnpinPage(id diskmgr.PageID, isDirty bool) error {
	fid, ok := p.pageTbl[id]
	if !ok {
		return common.ErrPageNotPinned
	}
	f := &p.frames[fid]
	if f.pinCount <= 0 {
		return common.ErrPageNotPinned
	}

	f.pinCount--
	if isDirty {
		f.dirty = true
	}
	if f.pinCount == 0 {
		p.replacer.SetEvictable(fid, true)
	}
	return nil
}

// FlushPage writes id's frame back to disk regardless of its dirty state
// and clears the dirty flag. It is a no-op for a non-resident id.
func (p *Pool) FlushPage(id diskmgr.PageID) error {
	fid, ok := p.pageTbl[id]
	if !ok {
		return nil
	}
	f := &p.frames[fid]
	if err := p.disk.WritePage(f.pageID, f.data); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// FlushAllPages flushes every resident page.
func (p *Pool) FlushAllPages() error {
	for id := range p.pageTbl {
		if err := p.FlushPage(id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes id from the pool and deallocates it on disk.
// Returns common.ErrPagePinned if the page is still pinned. A page that
// is not resident is only deallocated on disk, and nil is returned.
func (p *Pool) DeletePage(id diskmgr.PageID) error {
	fid, ok := p.pageTbl[id]
	if !ok {
		p.disk.DeallocatePage(id)
		return nil
	}

	f := &p.frames[fid]
	if f.pinCount > 0 {
		return common.ErrPagePinned
	}

	if f.dirty {
		if err := p.disk.WritePage(f.pageID, f.data); err != nil {
			return err
		}
		f.dirty = false
	}

	p.replacer.Remove(fid)
	delete(p.pageTbl, id)
	f.pageID = diskmgr.InvalidPageID
	p.freeList = append(p.freeList, fid)

	p.disk.DeallocatePage(id)
	return nil
}
