package bptree

import (
	"github.com/bptreedb/bptreedb/internal/diskmgr"
	"github.com/bptreedb/bptreedb/internal/page"
)

// frame is one level of the write-guard path held during a pessimistic
// delete, paired with the slot index the node occupies inside its own
// parent (-1 for the header frame and the root).
type frame struct {
	guard *page.WriteGuard
	idx   int
}

func releaseFrames(fs []frame) {
	for _, f := range fs {
		if f.guard != nil {
			f.guard.Drop()
		}
	}
}

// Remove deletes key from the tree, reporting false, nil if it was not
// present. Like Insert, it tries a cheap optimistic pass first and only
// falls back to a full write-guarded descent (with adopt/merge
// rebalancing) when the target leaf risks underflowing, or when it is
// the root leaf and would be left empty.
func (t *Tree[K, V]) Remove(key K) (bool, error) {
	if ok, handled, err := t.tryOptimisticRemove(key); handled {
		return ok, err
	}
	return t.pessimisticRemove(key)
}

func (t *Tree[K, V]) tryOptimisticRemove(key K) (ok bool, handled bool, err error) {
	hg, err := t.fetchRead(t.headerPageID)
	if err != nil {
		return false, true, err
	}
	root := page.WrapHeader(hg.Data()).RootPageID()
	hg.Drop()

	if root == diskmgr.InvalidPageID {
		return false, true, nil
	}

	cur, err := t.fetchRead(root)
	if err != nil {
		return false, true, err
	}
	for page.Kind(cur.Data()) == page.TypeInternal {
		ip := t.internalView(cur.Data())
		idx := ip.UpperBound(t.cmp, key) - 1
		child := ip.ValueAt(idx)
		next, err := t.fetchRead(child)
		cur.Drop()
		if err != nil {
			return false, true, err
		}
		cur = next
	}
	leafID := cur.PageID()
	isRoot := leafID == root
	cur.Drop()

	wg, err := t.fetchWrite(leafID)
	if err != nil {
		return false, true, err
	}
	leaf := t.leafView(wg.Data())

	pos := leaf.BinarySearch(t.cmp, key)
	if pos < 0 {
		wg.Drop()
		return false, true, nil
	}
	remaining := leaf.Size() - 1
	if (isRoot && remaining == 0) || (!isRoot && remaining < leaf.MinSize()) {
		wg.Drop()
		return false, false, nil
	}

	wg.MutableData()
	leaf.RemoveAt(pos)
	wg.Drop()
	return true, true, nil
}

func (t *Tree[K, V]) pessimisticRemove(key K) (bool, error) {
	hg, err := t.fetchWrite(t.headerPageID)
	if err != nil {
		return false, err
	}
	root := page.WrapHeader(hg.Data()).RootPageID()
	if root == diskmgr.InvalidPageID {
		hg.Drop()
		return false, nil
	}

	stack := []frame{{guard: hg, idx: -1}}
	curID := root
	parentIdx := -1
	for {
		g, err := t.fetchWrite(curID)
		if err != nil {
			releaseFrames(stack)
			return false, err
		}
		stack = append(stack, frame{guard: g, idx: parentIdx})

		if page.Kind(g.Data()) != page.TypeInternal {
			break
		}
		ip := t.internalView(g.Data())
		childIdx := ip.UpperBound(t.cmp, key) - 1
		curID = ip.ValueAt(childIdx)
		parentIdx = childIdx
	}

	leafFrame := stack[len(stack)-1]
	leaf := t.leafView(leafFrame.guard.Data())
	pos := leaf.BinarySearch(t.cmp, key)
	if pos < 0 {
		releaseFrames(stack)
		return false, nil
	}
	leafFrame.guard.MutableData()
	leaf.RemoveAt(pos)

	return true, t.rebalance(stack)
}

// rebalance walks stack from the just-modified node up toward the root,
// fixing any underflow by adopting from a sibling with spare capacity or
// else merging with one, and collapsing the root when it is left with a
// single child (internal) or no entries (leaf).
func (t *Tree[K, V]) rebalance(stack []frame) error {
	for len(stack) >= 2 {
		node := stack[len(stack)-1]
		parentFrame := stack[len(stack)-2]
		atRoot := len(stack) == 2
		kind := page.Kind(node.guard.Data())

		if atRoot {
			err := t.fixRoot(parentFrame.guard, node.guard, kind)
			releaseFrames(stack[:len(stack)-2])
			return err
		}

		var underflow bool
		if kind == page.TypeLeaf {
			leaf := t.leafView(node.guard.Data())
			underflow = leaf.Size() < leaf.MinSize()
		} else {
			ip := t.internalView(node.guard.Data())
			underflow = ip.Size() < ip.MinSize()
		}

		if !underflow {
			node.guard.Drop()
			releaseFrames(stack[:len(stack)-1])
			return nil
		}

		parent := t.internalView(parentFrame.guard.Data())
		merged, err := t.fixUnderflow(parentFrame.guard, parent, node.idx, node.guard, kind)
		if err != nil {
			releaseFrames(stack[:len(stack)-1])
			return err
		}
		if !merged {
			releaseFrames(stack[:len(stack)-1])
			return nil
		}
		// the merge removed one slot from parent; parent itself may now
		// be underflowing, so loop with parent as the node under test.
		stack = stack[:len(stack)-1]
	}
	return nil
}

func (t *Tree[K, V]) fixRoot(headerG, rootG *page.WriteGuard, kind page.Type) error {
	collapse := false
	newRoot := diskmgr.InvalidPageID

	if kind == page.TypeInternal {
		ip := t.internalView(rootG.Data())
		if ip.Size() == 1 {
			collapse = true
			newRoot = ip.ValueAt(0)
		}
	} else {
		leaf := t.leafView(rootG.Data())
		if leaf.Size() == 0 {
			collapse = true
		}
	}

	if !collapse {
		rootG.Drop()
		headerG.Drop()
		return nil
	}

	page.WrapHeader(headerG.MutableData()).SetRootPageID(newRoot)
	oldID := rootG.PageID()
	rootG.Drop()
	err := t.pool.DeletePage(oldID)
	headerG.Drop()
	return err
}

// fixUnderflow adopts a spare entry from a sibling of node (preferring
// the right sibling), or else merges node with a sibling, consuming
// node's guard (and the sibling's) in every case. It reports whether a
// merge happened, since only a merge removes a slot from parent and
// requires the caller to re-check parent for underflow in turn.
func (t *Tree[K, V]) fixUnderflow(parentG *page.WriteGuard, parent *page.InternalPage[K], childIdx int, nodeG *page.WriteGuard, kind page.Type) (bool, error) {
	if childIdx+1 < parent.Size() {
		rightID := parent.ValueAt(childIdx + 1)
		rightG, err := t.fetchWrite(rightID)
		if err != nil {
			nodeG.Drop()
			return false, err
		}
		return t.rebalanceWithRight(parentG, parent, childIdx, nodeG, rightG, kind)
	}
	if childIdx > 0 {
		leftID := parent.ValueAt(childIdx - 1)
		leftG, err := t.fetchWrite(leftID)
		if err != nil {
			nodeG.Drop()
			return false, err
		}
		return t.rebalanceWithLeft(parentG, parent, childIdx, nodeG, leftG, kind)
	}
	nodeG.Drop()
	return false, nil
}

func (t *Tree[K, V]) rebalanceWithRight(parentG *page.WriteGuard, parent *page.InternalPage[K], childIdx int, nodeG, rightG *page.WriteGuard, kind page.Type) (bool, error) {
	if kind == page.TypeLeaf {
		node := t.leafView(nodeG.Data())
		right := t.leafView(rightG.Data())

		if right.Size() > right.MinSize() {
			k, v := right.PairAt(0)
			nodeG.MutableData()
			node.InsertAt(node.Size(), k, v)
			rightG.MutableData()
			right.RemoveAt(0)
			parentG.MutableData()
			parent.SetKeyAt(childIdx+1, right.KeyAt(0))
			nodeG.Drop()
			rightG.Drop()
			return false, nil
		}

		nodeG.MutableData()
		for i := 0; i < right.Size(); i++ {
			k, v := right.PairAt(i)
			node.InsertAt(node.Size(), k, v)
		}
		node.SetNextPageID(right.NextPageID())
		rightID := rightG.PageID()
		rightG.Drop()
		if err := t.pool.DeletePage(rightID); err != nil {
			nodeG.Drop()
			return false, err
		}

		parentG.MutableData()
		parent.RemoveAt(childIdx + 1)
		nodeG.Drop()
		return true, nil
	}

	node := t.internalView(nodeG.Data())
	right := t.internalView(rightG.Data())

	if right.Size() > right.MinSize() {
		movedChild := right.ValueAt(0)
		newSep := right.KeyAt(1)
		oldSep := parent.KeyAt(childIdx + 1)

		nodeG.MutableData()
		node.InsertAt(node.Size(), oldSep, movedChild)
		rightG.MutableData()
		right.RemoveAt(0)
		parentG.MutableData()
		parent.SetKeyAt(childIdx+1, newSep)

		nodeG.Drop()
		rightG.Drop()
		return false, nil
	}

	sep := parent.KeyAt(childIdx + 1)
	nodeG.MutableData()
	node.InsertAt(node.Size(), sep, right.ValueAt(0))
	for i := 1; i < right.Size(); i++ {
		k, v := right.PairAt(i)
		node.InsertAt(node.Size(), k, v)
	}
	rightID := rightG.PageID()
	rightG.Drop()
	if err := t.pool.DeletePage(rightID); err != nil {
		nodeG.Drop()
		return false, err
	}

	parentG.MutableData()
	parent.RemoveAt(childIdx + 1)
	nodeG.Drop()
	return true, nil
}

func (t *Tree[K, V]) rebalanceWithLeft(parentG *page.WriteGuard, parent *page.InternalPage[K], childIdx int, nodeG, leftG *page.WriteGuard, kind page.Type) (bool, error) {
	if kind == page.TypeLeaf {
		node := t.leafView(nodeG.Data())
		left := t.leafView(leftG.Data())

		if left.Size() > left.MinSize() {
			k, v := left.PairAt(left.Size() - 1)
			leftG.MutableData()
			left.RemoveAt(left.Size() - 1)
			nodeG.MutableData()
			node.InsertAt(0, k, v)
			parentG.MutableData()
			parent.SetKeyAt(childIdx, k)
			nodeG.Drop()
			leftG.Drop()
			return false, nil
		}

		leftG.MutableData()
		for i := 0; i < node.Size(); i++ {
			k, v := node.PairAt(i)
			left.InsertAt(left.Size(), k, v)
		}
		left.SetNextPageID(node.NextPageID())
		nodeID := nodeG.PageID()
		nodeG.Drop()
		if err := t.pool.DeletePage(nodeID); err != nil {
			leftG.Drop()
			return false, err
		}

		parentG.MutableData()
		parent.RemoveAt(childIdx)
		leftG.Drop()
		return true, nil
	}

	node := t.internalView(nodeG.Data())
	left := t.internalView(leftG.Data())

	if left.Size() > left.MinSize() {
		leftLastKey := left.KeyAt(left.Size() - 1)
		movedChild := left.ValueAt(left.Size() - 1)
		oldSep := parent.KeyAt(childIdx)
		var zeroKey K

		nodeG.MutableData()
		node.InsertAt(0, zeroKey, movedChild)
		node.SetKeyAt(1, oldSep)
		leftG.MutableData()
		left.RemoveAt(left.Size() - 1)
		parentG.MutableData()
		parent.SetKeyAt(childIdx, leftLastKey)

		nodeG.Drop()
		leftG.Drop()
		return false, nil
	}

	sep := parent.KeyAt(childIdx)
	leftG.MutableData()
	left.InsertAt(left.Size(), sep, node.ValueAt(0))
	for i := 1; i < node.Size(); i++ {
		k, v := node.PairAt(i)
		left.InsertAt(left.Size(), k, v)
	}
	nodeID := nodeG.PageID()
	nodeG.Drop()
	if err := t.pool.DeletePage(nodeID); err != nil {
		leftG.Drop()
		return false, err
	}

	parentG.MutableData()
	parent.RemoveAt(childIdx)
	leftG.Drop()
	return true, nil
}
