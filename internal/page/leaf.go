package page

import "github.com/bptreedb/bptreedb/internal/diskmgr"

// LeafPage is a typed view over raw frame bytes holding (key, value)
// pairs in ascending key order, plus the next-leaf page id that threads
// every leaf into a singly linked list.
type LeafPage[K, V any] struct {
	buf       []byte
	keyCodec  Codec[K]
	valCodec  Codec[V]
	entrySize int
}

// WrapLeaf views buf as a leaf page using keyCodec/valCodec to size and
// (de)serialize entries.
func WrapLeaf[K, V any](buf []byte, keyCodec Codec[K], valCodec Codec[V]) *LeafPage[K, V] {
	return &LeafPage[K, V]{buf: buf, keyCodec: keyCodec, valCodec: valCodec, entrySize: keyCodec.Size() + valCodec.Size()}
}

// MaxLeafSize computes the maximum fan-out for a leaf page given the page
// size and the key/value codec widths.
func MaxLeafSize[K, V any](pageSizeBytes int, keyCodec Codec[K], valCodec Codec[V]) int {
	return (pageSizeBytes - leafHdr) / (keyCodec.Size() + valCodec.Size())
}

// Init formats buf as a fresh, empty leaf page with the given max size.
func (p *LeafPage[K, V]) Init(maxSize int) {
	setPageType(p.buf, TypeLeaf)
	setPageSize(p.buf, 0)
	setPageMaxSize(p.buf, maxSize)
	setNextPageID(p.buf, diskmgr.InvalidPageID)
}

// Size returns the current number of slots in use.
func (p *LeafPage[K, V]) Size() int { return pageSize(p.buf) }

func (p *LeafPage[K, V]) setSize(n int) { setPageSize(p.buf, n) }

// MaxSize returns the page's configured capacity.
func (p *LeafPage[K, V]) MaxSize() int { return pageMaxSize(p.buf) }

// MinSize is the underflow threshold, ceil(MaxSize/2).
func (p *LeafPage[K, V]) MinSize() int { return MinSize(p.MaxSize()) }

// NextPageID returns the id of the next leaf in ascending key order, or
// diskmgr.InvalidPageID if this is the last leaf.
func (p *LeafPage[K, V]) NextPageID() diskmgr.PageID { return nextPageID(p.buf) }

// SetNextPageID updates the next-leaf pointer.
func (p *LeafPage[K, V]) SetNextPageID(id diskmgr.PageID) { setNextPageID(p.buf, id) }

func (p *LeafPage[K, V]) slotOffset(i int) int { return leafHdr + i*p.entrySize }

// KeyAt returns the key stored at slot i.
func (p *LeafPage[K, V]) KeyAt(i int) K {
	off := p.slotOffset(i)
	return p.keyCodec.Decode(p.buf[off : off+p.keyCodec.Size()])
}

// SetKeyAt overwrites the key stored at slot i.
func (p *LeafPage[K, V]) SetKeyAt(i int, k K) {
	off := p.slotOffset(i)
	p.keyCodec.Encode(k, p.buf[off:off+p.keyCodec.Size()])
}

// ValueAt returns the value stored at slot i.
func (p *LeafPage[K, V]) ValueAt(i int) V {
	off := p.slotOffset(i) + p.keyCodec.Size()
	return p.valCodec.Decode(p.buf[off : off+p.valCodec.Size()])
}

// SetValueAt overwrites the value stored at slot i.
func (p *LeafPage[K, V]) SetValueAt(i int, v V) {
	off := p.slotOffset(i) + p.keyCodec.Size()
	p.valCodec.Encode(v, p.buf[off:off+p.valCodec.Size()])
}

// PairAt returns both the key and value stored at slot i.
func (p *LeafPage[K, V]) PairAt(i int) (K, V) {
	return p.KeyAt(i), p.ValueAt(i)
}

// InsertAt shifts slots [i, size) right by one and writes (k, v) at i.
func (p *LeafPage[K, V]) InsertAt(i int, k K, v V) {
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

// Truncate shrinks the page to hold only its first n slots, discarding
// the rest without touching their bytes. The split counterpart to
// InsertAt/RemoveAt, matching the original implementation's
// SetSize(size>>1) in SplitLeafPage.
func (p *LeafPage[K, V]) Truncate(n int) { p.setSize(n) }

// RemoveAt shifts slots (i, size) left by one.
func (p *LeafPage[K, V]) RemoveAt(i int) {
	n := p.Size()
	for j := i; j < n-1; j++ {
		ko, vo := p.PairAt(j + 1)
		p.SetKeyAt(j, ko)
		p.SetValueAt(j, vo)
	}
	p.setSize(n - 1)
}

// BinarySearch returns the slot holding key under cmp, or -1.
func (p *LeafPage[K, V]) BinarySearch(cmp Comparator[K], key K) int {
	lo, hi := 0, p.Size()
	for lo < hi {
		mid := (lo + hi) / 2
		c := cmp(p.KeyAt(mid), key)
		switch {
		case c == 0:
			return mid
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -1
}

// LowerBound returns the first slot in [0, size) whose key is >= key
// under cmp, or Size() if none.
func (p *LeafPage[K, V]) LowerBound(cmp Comparator[K], key K) int {
	lo, hi := 0, p.Size()
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(p.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// UpperBound returns the first slot in [0, size) whose key is > key
// under cmp, or Size() if none.
func (p *LeafPage[K, V]) UpperBound(cmp Comparator[K], key K) int {
	lo, hi := 0, p.Size()
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(p.KeyAt(mid), key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
