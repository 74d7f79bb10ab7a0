// Package bptree implements the disk-backed B+ tree: point lookup,
// exact-key find, two-phase (optimistic→pessimistic)
// insert and delete, and forward iteration, all orchestrated through the
// buffer pool and scoped page guards.
package bptree

import (
	"github.com/bptreedb/bptreedb/internal/buffer"
	"github.com/bptreedb/bptreedb/internal/diskmgr"
	"github.com/bptreedb/bptreedb/internal/page"
)

// Options configures a Tree. KeyCodec/ValCodec/Cmp are the Go rendering
// of the original template's key/value type parameters and comparator.
type Options[K, V any] struct {
	DataFile    string
	GarbageFile string

	// HeaderPageID is the page id holding the root pointer. Conventionally
	// 0; only meaningful as a caller-supplied value when GarbageFile already
	// exists (without one, Open allocates a new header page).
	HeaderPageID diskmgr.PageID

	PoolSize  int // number of frames in the buffer pool
	ReplacerK int // LRU-K history depth

	KeyCodec page.Codec[K]
	ValCodec page.Codec[V]
	Cmp      page.Comparator[K]

	// LeafMaxSize/InternalMaxSize override the fan-out computed from
	// diskmgr.PageSize/sizeof(Entry); zero means "compute from page size".
	LeafMaxSize     int
	InternalMaxSize int

	// CleanOnClose, when true, makes Close walk the whole tree and
	// deallocate every page back to the disk manager's free-page pool
	// before closing, mirroring the original implementation's
	// destructor teardown.
	CleanOnClose bool
}

// Tree is the disk-backed B+ tree. It is not safe for concurrent use: the
// optimistic/pessimistic protocol is a latch-coupling idiom for a
// single-threaded caller, not a concurrency primitive (see package doc
// and spec §5).
type Tree[K, V any] struct {
	disk *diskmgr.DiskManager
	pool *buffer.Pool

	headerPageID diskmgr.PageID

	keyCodec page.Codec[K]
	valCodec page.Codec[V]
	cmp      page.Comparator[K]

	leafMax     int
	internalMax int

	cleanOnClose bool
}

// Open opens (or creates) a tree backed by the files named in opts.
func Open[K, V any](opts Options[K, V]) (*Tree[K, V], error) {
	disk, err := diskmgr.Open(opts.DataFile, opts.GarbageFile)
	if err != nil {
		return nil, err
	}

	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 64
	}
	replacerK := opts.ReplacerK
	if replacerK <= 0 {
		replacerK = 2
	}

	leafMax := opts.LeafMaxSize
	if leafMax <= 0 {
		leafMax = page.MaxLeafSize(diskmgr.PageSize, opts.KeyCodec, opts.ValCodec)
	}
	internalMax := opts.InternalMaxSize
	if internalMax <= 0 {
		internalMax = page.MaxInternalSize(diskmgr.PageSize, opts.KeyCodec)
	}

	t := &Tree[K, V]{
		disk:         disk,
		pool:         buffer.NewPool(disk, poolSize, replacerK),
		keyCodec:     opts.KeyCodec,
		valCodec:     opts.ValCodec,
		cmp:          opts.Cmp,
		leafMax:      leafMax,
		internalMax:  internalMax,
		cleanOnClose: opts.CleanOnClose,
	}

	if disk.IsNew() {
		f, err := t.pool.NewPage()
		if err != nil {
			return nil, err
		}
		hdr := page.WrapHeader(f.Data())
		hdr.SetRootPageID(diskmgr.InvalidPageID)
		t.headerPageID = f.PageID()
		if err := t.pool.UnpinPage(f.PageID(), true); err != nil {
			return nil, err
		}
	} else {
		t.headerPageID = opts.HeaderPageID
	}

	return t, nil
}

// Close flushes every resident page and persists the disk manager's
// free-page pool. When Options.CleanOnClose was set at Open, the whole
// tree is additionally walked and every page deallocated back to the
// free-page pool before closing, mirroring the original implementation's
// full-tree teardown.
func (t *Tree[K, V]) Close() error {
	if t.cleanOnClose {
		if err := t.dropAll(); err != nil {
			return err
		}
	}
	if err := t.pool.FlushAllPages(); err != nil {
		return err
	}
	return t.disk.Close()
}

// RootPageID returns the tree's current root page id, or
// diskmgr.InvalidPageID for an empty tree.
func (t *Tree[K, V]) RootPageID() diskmgr.PageID {
	f, err := t.pool.FetchPage(t.headerPageID)
	if err != nil {
		return diskmgr.InvalidPageID
	}
	defer t.pool.UnpinPage(t.headerPageID, false)
	return page.WrapHeader(f.Data()).RootPageID()
}

// IsEmpty reports whether the tree holds no keys.
func (t *Tree[K, V]) IsEmpty() bool {
	return t.RootPageID() == diskmgr.InvalidPageID
}

func (t *Tree[K, V]) fetchRead(id diskmgr.PageID) (*page.ReadGuard, error) {
	f, err := t.pool.FetchPage(id)
	if err != nil {
		return nil, err
	}
	return page.NewReadGuard(t.pool, f), nil
}

func (t *Tree[K, V]) fetchWrite(id diskmgr.PageID) (*page.WriteGuard, error) {
	f, err := t.pool.FetchPage(id)
	if err != nil {
		return nil, err
	}
	return page.NewWriteGuard(t.pool, f), nil
}

func (t *Tree[K, V]) newPage() (*page.WriteGuard, diskmgr.PageID, error) {
	f, err := t.pool.NewPage()
	if err != nil {
		return nil, diskmgr.InvalidPageID, err
	}
	return page.NewWriteGuard(t.pool, f), f.PageID(), nil
}

func (t *Tree[K, V]) internalView(buf []byte) *page.InternalPage[K] {
	return page.WrapInternal[K](buf, t.keyCodec)
}

func (t *Tree[K, V]) leafView(buf []byte) *page.LeafPage[K, V] {
	return page.WrapLeaf[K, V](buf, t.keyCodec, t.valCodec)
}

// Get is a point-lookup convenience recovered from the original
// implementation's GetValue: it returns the single value stored for key,
// or false if absent.
func (t *Tree[K, V]) Get(key K) (V, bool) {
	var zero V
	rg, err := t.descendToLeaf(key)
	if err != nil || rg == nil {
		return zero, false
	}
	defer rg.Drop()

	leaf := t.leafView(rg.Data())
	idx := leaf.BinarySearch(t.cmp, key)
	if idx < 0 {
		return zero, false
	}
	return leaf.ValueAt(idx), true
}

// descendToLeaf performs a read-crabbed descent from the root to the leaf
// that would hold key, returning nil (no error) for an empty tree.
func (t *Tree[K, V]) descendToLeaf(key K) (*page.ReadGuard, error) {
	hg, err := t.fetchRead(t.headerPageID)
	if err != nil {
		return nil, err
	}
	root := page.WrapHeader(hg.Data()).RootPageID()
	hg.Drop()

	if root == diskmgr.InvalidPageID {
		return nil, nil
	}

	cur, err := t.fetchRead(root)
	if err != nil {
		return nil, err
	}
	for page.Kind(cur.Data()) == page.TypeInternal {
		ip := t.internalView(cur.Data())
		idx := ip.UpperBound(t.cmp, key) - 1
		child := ip.ValueAt(idx)
		next, err := t.fetchRead(child)
		cur.Drop()
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// dropAll deallocates every page in the tree, including the header page's
// root pointer (reset, not removed — the header page itself stays live so
// the file can be reused). It is a teardown convenience recovered from
// the original implementation's destructor semantics.
func (t *Tree[K, V]) dropAll() error {
	root := t.RootPageID()
	if root != diskmgr.InvalidPageID {
		if err := t.dropSubtree(root); err != nil {
			return err
		}
	}

	hg, err := t.fetchWrite(t.headerPageID)
	if err != nil {
		return err
	}
	page.WrapHeader(hg.MutableData()).SetRootPageID(diskmgr.InvalidPageID)
	hg.Drop()
	return nil
}

func (t *Tree[K, V]) dropSubtree(id diskmgr.PageID) error {
	g, err := t.fetchRead(id)
	if err != nil {
		return err
	}
	var children []diskmgr.PageID
	if page.Kind(g.Data()) == page.TypeInternal {
		ip := t.internalView(g.Data())
		for i := 0; i < ip.Size(); i++ {
			children = append(children, ip.ValueAt(i))
		}
	}
	g.Drop()

	for _, c := range children {
		if err := t.dropSubtree(c); err != nil {
			return err
		}
	}
	return t.pool.DeletePage(id)
}
