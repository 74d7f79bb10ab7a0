package page

import "github.com/bptreedb/bptreedb/internal/diskmgr"

// InternalPage is a typed view over raw frame bytes holding (key, child
// page id) pairs. Slot 0's key is a sentinel standing for -infinity and
// is never read by comparisons; only its child pointer is meaningful.
type InternalPage[K any] struct {
	buf       []byte
	keyCodec  Codec[K]
	entrySize int
}

// WrapInternal views buf as an internal page using keyCodec to size and
// (de)serialize keys. buf must already hold an initialized page (see
// Init) or a page previously initialized this way.
func WrapInternal[K any](buf []byte, keyCodec Codec[K]) *InternalPage[K] {
	return &InternalPage[K]{buf: buf, keyCodec: keyCodec, entrySize: keyCodec.Size() + 4}
}

// MaxInternalSize computes the maximum fan-out for an internal page given
// the page size and the key codec's width: (pageSize - header) / sizeof(Entry).
func MaxInternalSize[K any](pageSizeBytes int, keyCodec Codec[K]) int {
	return (pageSizeBytes - commonHdr) / (keyCodec.Size() + 4)
}

// Init formats buf as a fresh, empty internal page with the given
// max size (fan-out).
func (p *InternalPage[K]) Init(maxSize int) {
	setPageType(p.buf, TypeInternal)
	setPageSize(p.buf, 0)
	setPageMaxSize(p.buf, maxSize)
}

// Size returns the current number of slots in use.
func (p *InternalPage[K]) Size() int { return pageSize(p.buf) }

func (p *InternalPage[K]) setSize(n int) { setPageSize(p.buf, n) }

// MaxSize returns the page's configured fan-out.
func (p *InternalPage[K]) MaxSize() int { return pageMaxSize(p.buf) }

// MinSize is the underflow threshold, ceil(MaxSize/2).
func (p *InternalPage[K]) MinSize() int { return MinSize(p.MaxSize()) }

func (p *InternalPage[K]) slotOffset(i int) int { return commonHdr + i*p.entrySize }

// KeyAt returns the key stored at slot i. Slot 0's key is a sentinel and
// should not be compared against.
func (p *InternalPage[K]) KeyAt(i int) K {
	off := p.slotOffset(i)
	return p.keyCodec.Decode(p.buf[off : off+p.keyCodec.Size()])
}

// SetKeyAt overwrites the key stored at slot i.
func (p *InternalPage[K]) SetKeyAt(i int, k K) {
	off := p.slotOffset(i)
	p.keyCodec.Encode(k, p.buf[off:off+p.keyCodec.Size()])
}

// ValueAt returns the child page id stored at slot i.
func (p *InternalPage[K]) ValueAt(i int) diskmgr.PageID {
	off := p.slotOffset(i) + p.keyCodec.Size()
	return diskmgr.PageID(getI32(p.buf, off))
}

// SetValueAt overwrites the child page id stored at slot i.
func (p *InternalPage[K]) SetValueAt(i int, v diskmgr.PageID) {
	off := p.slotOffset(i) + p.keyCodec.Size()
	putI32(p.buf, off, int32(v))
}

// PairAt returns both the key and child id stored at slot i.
func (p *InternalPage[K]) PairAt(i int) (K, diskmgr.PageID) {
	return p.KeyAt(i), p.ValueAt(i)
}

// ValueIndex returns the slot index whose child id is v, or -1.
func (p *InternalPage[K]) ValueIndex(v diskmgr.PageID) int {
	for i := 0; i < p.Size(); i++ {
		if p.ValueAt(i) == v {
			return i
		}
	}
	return -1
}

// InsertAt shifts slots [i, size) right by one and writes (k, v) at i,
// growing size by one. Callers must ensure the page has room.
func (p *InternalPage[K]) InsertAt(i int, k K, v diskmgr.PageID) {
	n := p.Size()
	for j := n; j > i; j-- {
		ko, vo := p.PairAt(j - 1)
		p.SetKeyAt(j, ko)
		p.SetValueAt(j, vo)
	}
	p.SetKeyAt(i, k)
	p.SetValueAt(i, v)
	p.setSize(n + 1)
}

// RemoveAt shifts slots (i, size) left by one, shrinking size by one.
func (p *InternalPage[K]) RemoveAt(i int) {
	n := p.Size()
	for j := i; j < n-1; j++ {
		ko, vo := p.PairAt(j + 1)
		p.SetKeyAt(j, ko)
		p.SetValueAt(j, vo)
	}
	p.setSize(n - 1)
}

// LowerBound returns the first slot in [1, size) whose key is >= k under
// cmp, or Size() if none. Slot 0 (the sentinel) is never a candidate.
func (p *InternalPage[K]) LowerBound(cmp Comparator[K], k K) int {
	n := p.Size()
	lo, hi := 1, n
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(p.KeyAt(mid), k) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// UpperBound returns the first slot in [1, size) whose key is > k under
// cmp, or Size() if none.
func (p *InternalPage[K]) UpperBound(cmp Comparator[K], k K) int {
	n := p.Size()
	lo, hi := 1, n
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(p.KeyAt(mid), k) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
