package page

import "github.com/bptreedb/bptreedb/internal/diskmgr"

// HeaderPage is the trivial single-page view that stores the tree's root
// page id. By convention it lives at page 0.
type HeaderPage struct {
	buf []byte
}

// WrapHeader views buf (exactly diskmgr.PageSize bytes) as a header page.
func WrapHeader(buf []byte) HeaderPage {
	return HeaderPage{buf: buf}
}

// RootPageID returns the tree's current root page id.
func (h HeaderPage) RootPageID() diskmgr.PageID {
	return diskmgr.PageID(getI32(h.buf, 0))
}

// SetRootPageID updates the tree's root page id.
func (h HeaderPage) SetRootPageID(id diskmgr.PageID) {
	putI32(h.buf, 0, int32(id))
}
