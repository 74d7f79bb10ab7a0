package page

import "github.com/bptreedb/bptreedb/internal/diskmgr"

// Type tags the kind of page a frame currently holds.
type Type int32

const (
	TypeInvalid Type = iota
	TypeLeaf
	TypeInternal
)

// Common header layout shared by internal and leaf pages:
//
//	[ pageType int32 | size int32 | maxSize int32 ]
//
// Leaf pages append a fourth int32 (nextPageID) for a 16-byte header;
// internal pages stop at the 12-byte common block.
const (
	offType    = 0
	offSize    = 4
	offMaxSize = 8
	commonHdr  = 12

	offNextPageID = commonHdr
	leafHdr       = commonHdr + 4
)

func getI32(buf []byte, off int) int32 {
	return int32(buf[off]) | int32(buf[off+1])<<8 | int32(buf[off+2])<<16 | int32(buf[off+3])<<24
}

func putI32(buf []byte, off int, v int32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

func pageType(buf []byte) Type       { return Type(getI32(buf, offType)) }
func setPageType(buf []byte, t Type) { putI32(buf, offType, int32(t)) }

// Kind reports whether buf currently holds a leaf or internal page.
func Kind(buf []byte) Type { return pageType(buf) }

func pageSize(buf []byte) int       { return int(getI32(buf, offSize)) }
func setPageSize(buf []byte, n int) { putI32(buf, offSize, int32(n)) }

func pageMaxSize(buf []byte) int       { return int(getI32(buf, offMaxSize)) }
func setPageMaxSize(buf []byte, n int) { putI32(buf, offMaxSize, int32(n)) }

// MinSize is ceil(maxSize/2), the underflow threshold shared by internal
// and leaf pages.
func MinSize(maxSize int) int {
	return (maxSize + 1) / 2
}

func nextPageID(buf []byte) diskmgr.PageID {
	return diskmgr.PageID(getI32(buf, offNextPageID))
}

func setNextPageID(buf []byte, id diskmgr.PageID) {
	putI32(buf, offNextPageID, int32(id))
}
