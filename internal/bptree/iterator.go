package bptree

import (
	"github.com/bptreedb/bptreedb/internal/diskmgr"
	"github.com/bptreedb/bptreedb/internal/page"
)

// Iterator walks leaves in ascending key order via the next-leaf chain.
// A zero Iterator (End() true) denotes an empty tree or exhausted range.
type Iterator[K, V any] struct {
	tree  *Tree[K, V]
	leafG *page.ReadGuard
	idx   int
}

// Begin returns an iterator positioned at the tree's first key, or an
// already-exhausted iterator for an empty tree.
func (t *Tree[K, V]) Begin() (*Iterator[K, V], error) {
	root := t.RootPageID()
	if root == diskmgr.InvalidPageID {
		return &Iterator[K, V]{tree: t}, nil
	}

	cur, err := t.fetchRead(root)
	if err != nil {
		return nil, err
	}
	for page.Kind(cur.Data()) == page.TypeInternal {
		ip := t.internalView(cur.Data())
		next, err := t.fetchRead(ip.ValueAt(0))
		cur.Drop()
		if err != nil {
			return nil, err
		}
		cur = next
	}
	it := &Iterator[K, V]{tree: t, leafG: cur, idx: 0}
	if err := it.skipToNonEmpty(); err != nil {
		return nil, err
	}
	return it, nil
}

// BeginAt returns an iterator positioned at the first slot whose key is
// >= key (the insertion point key would occupy), or an exhausted
// iterator for an empty tree.
func (t *Tree[K, V]) BeginAt(key K) (*Iterator[K, V], error) {
	rg, err := t.descendToLeaf(key)
	if err != nil {
		return nil, err
	}
	if rg == nil {
		return &Iterator[K, V]{tree: t}, nil
	}
	leaf := t.leafView(rg.Data())
	it := &Iterator[K, V]{tree: t, leafG: rg, idx: leaf.LowerBound(t.cmp, key)}
	if err := it.skipToNonEmpty(); err != nil {
		return nil, err
	}
	return it, nil
}

// skipToNonEmpty crosses into the next leaf (repeatedly, in case of an
// empty leaf left behind by a deletion) when the current position has
// run off the end of its leaf, so End()/Pair() never observe an
// out-of-range idx.
func (it *Iterator[K, V]) skipToNonEmpty() error {
	for it.leafG != nil {
		leaf := it.tree.leafView(it.leafG.Data())
		if it.idx < leaf.Size() {
			return nil
		}

		nextID := leaf.NextPageID()
		it.leafG.Drop()
		it.leafG = nil
		if nextID == diskmgr.InvalidPageID {
			return nil
		}

		ng, err := it.tree.fetchRead(nextID)
		if err != nil {
			return err
		}
		it.leafG = ng
		it.idx = 0
	}
	return nil
}

// End reports whether the iterator has been exhausted.
func (it *Iterator[K, V]) End() bool {
	return it.leafG == nil
}

// Pair returns the (key, value) at the iterator's current position.
// Must not be called once End() is true.
func (it *Iterator[K, V]) Pair() (K, V) {
	leaf := it.tree.leafView(it.leafG.Data())
	return leaf.PairAt(it.idx)
}

// Next advances the iterator by one slot, crossing into the next leaf
// (and releasing the previous one) when the current leaf is exhausted.
func (it *Iterator[K, V]) Next() error {
	if it.leafG == nil {
		return nil
	}
	it.idx++
	return it.skipToNonEmpty()
}

// Close releases the iterator's pinned leaf, if any. Safe to call on an
// already-exhausted iterator.
func (it *Iterator[K, V]) Close() {
	if it.leafG != nil {
		it.leafG.Drop()
		it.leafG = nil
	}
}

// Find returns the values whose key compares equal to key under the
// tree's own comparator. Insert rejects keys that compare equal, so the
// result holds at most one value. Find takes no separate comparator, so
// it does not match a prefix of a composite key; such a scan starts at
// BeginAt and stops where the prefix changes.
func (t *Tree[K, V]) Find(key K) ([]V, error) {
	it, err := t.BeginAt(key)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []V
	for !it.End() {
		k, v := it.Pair()
		if t.cmp(k, key) != 0 {
			break
		}
		out = append(out, v)
		if err := it.Next(); err != nil {
			return out, err
		}
	}
	return out, nil
}
