package bptree

import (
	"fmt"

	"github.com/bptreedb/bptreedb/internal/diskmgr"
	"github.com/bptreedb/bptreedb/internal/page"
)

// checkInvariants walks the whole tree verifying that every child's keys
// fall within the half-open interval its parent's separators describe,
// that each page's size stays within its mandated bounds, and that each
// leaf's own keys are in strictly ascending order. Mirrors an
// IsBalanced-style consistency checker, used only from tests.
func (t *Tree[K, V]) checkInvariants() error {
	root := t.RootPageID()
	if root == diskmgr.InvalidPageID {
		return nil
	}
	return t.checkSubtree(root, nil, nil, true)
}

func (t *Tree[K, V]) checkSubtree(id diskmgr.PageID, lo, hi *K, isRoot bool) error {
	g, err := t.fetchRead(id)
	if err != nil {
		return err
	}
	defer g.Drop()

	if page.Kind(g.Data()) == page.TypeLeaf {
		leaf := t.leafView(g.Data())
		if !isRoot && leaf.Size() < leaf.MinSize() {
			return fmt.Errorf("page %d: leaf size %d below min %d", id, leaf.Size(), leaf.MinSize())
		}
		if leaf.Size() > leaf.MaxSize()-1 {
			return fmt.Errorf("page %d: leaf size %d above max %d", id, leaf.Size(), leaf.MaxSize()-1)
		}
		for i := 0; i < leaf.Size(); i++ {
			k := leaf.KeyAt(i)
			if lo != nil && t.cmp(k, *lo) < 0 {
				return fmt.Errorf("page %d: key %v below lower bound", id, k)
			}
			if hi != nil && t.cmp(k, *hi) >= 0 {
				return fmt.Errorf("page %d: key %v at or above upper bound", id, k)
			}
			if i > 0 && t.cmp(leaf.KeyAt(i-1), k) >= 0 {
				return fmt.Errorf("page %d: keys out of order at slot %d", id, i)
			}
		}
		return nil
	}

	ip := t.internalView(g.Data())
	if !isRoot && ip.Size() < ip.MinSize() {
		return fmt.Errorf("page %d: internal size %d below min %d", id, ip.Size(), ip.MinSize())
	}
	if ip.Size() > ip.MaxSize() {
		return fmt.Errorf("page %d: internal size %d above max %d", id, ip.Size(), ip.MaxSize())
	}
	for i := 0; i < ip.Size(); i++ {
		var childLo, childHi *K
		if i > 0 {
			k := ip.KeyAt(i)
			childLo = &k
		} else {
			childLo = lo
		}
		if i+1 < ip.Size() {
			k := ip.KeyAt(i + 1)
			childHi = &k
		} else {
			childHi = hi
		}
		if err := t.checkSubtree(ip.ValueAt(i), childLo, childHi, false); err != nil {
			return err
		}
	}
	return nil
}
