package page_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bptreedb/bptreedb/internal/diskmgr"
	"github.com/bptreedb/bptreedb/internal/page"
)

func newBuf() []byte { return make([]byte, diskmgr.PageSize) }

func TestInt32CodecRoundTrips(t *testing.T) {
	var c page.Int32Codec
	buf := make([]byte, c.Size())
	c.Encode(-12345, buf)
	assert.Equal(t, int32(-12345), c.Decode(buf))
}

func TestFixedStringCodecTruncatesAndPads(t *testing.T) {
	c := page.FixedStringCodec{Width: 4}
	buf := make([]byte, c.Size())

	c.Encode("ab", buf)
	assert.Equal(t, "ab", c.Decode(buf))

	c.Encode("abcdef", buf)
	assert.Equal(t, "abcd", c.Decode(buf))
}

func TestHeaderPageRootPageID(t *testing.T) {
	buf := newBuf()
	h := page.WrapHeader(buf)
	assert.Equal(t, diskmgr.PageID(0), h.RootPageID())

	h.SetRootPageID(diskmgr.InvalidPageID)
	assert.Equal(t, diskmgr.InvalidPageID, h.RootPageID())
}

func TestLeafPageInsertAndLookup(t *testing.T) {
	var kc, vc page.Int32Codec
	buf := newBuf()
	leaf := page.WrapLeaf[int32, int32](buf, kc, vc)
	leaf.Init(4)

	leaf.InsertAt(0, 10, 100)
	leaf.InsertAt(1, 30, 300)
	leaf.InsertAt(1, 20, 200) // insert in the middle

	require.Equal(t, 3, leaf.Size())
	k, v := leaf.PairAt(1)
	assert.Equal(t, int32(20), k)
	assert.Equal(t, int32(200), v)

	assert.Equal(t, 1, leaf.BinarySearch(page.CompareInt32, 20))
	assert.Equal(t, -1, leaf.BinarySearch(page.CompareInt32, 99))
}

func TestLeafPageRemoveAtShifts(t *testing.T) {
	var kc, vc page.Int32Codec
	buf := newBuf()
	leaf := page.WrapLeaf[int32, int32](buf, kc, vc)
	leaf.Init(4)
	leaf.InsertAt(0, 1, 10)
	leaf.InsertAt(1, 2, 20)
	leaf.InsertAt(2, 3, 30)

	leaf.RemoveAt(1)
	require.Equal(t, 2, leaf.Size())
	k0, _ := leaf.PairAt(0)
	k1, _ := leaf.PairAt(1)
	assert.Equal(t, int32(1), k0)
	assert.Equal(t, int32(3), k1)
}

func TestLeafPageNextPageIDDefaultsInvalid(t *testing.T) {
	var kc, vc page.Int32Codec
	buf := newBuf()
	leaf := page.WrapLeaf[int32, int32](buf, kc, vc)
	leaf.Init(4)
	assert.Equal(t, diskmgr.InvalidPageID, leaf.NextPageID())

	leaf.SetNextPageID(7)
	assert.Equal(t, diskmgr.PageID(7), leaf.NextPageID())
}

func TestInternalPageBoundsExcludeSentinelSlot(t *testing.T) {
	var kc page.Int32Codec
	buf := newBuf()
	ip := page.WrapInternal[int32](buf, kc)
	ip.Init(4)

	ip.InsertAt(0, 0, 100) // sentinel slot, key never compared
	ip.InsertAt(1, 20, 200)
	ip.InsertAt(2, 40, 300)

	// key 10 falls in child 100's range: upper_bound - 1 should land on slot 0
	assert.Equal(t, 1, ip.LowerBound(page.CompareInt32, 20))
	assert.Equal(t, 2, ip.UpperBound(page.CompareInt32, 20))
	assert.Equal(t, 1, ip.UpperBound(page.CompareInt32, 10)-0) // still before slot 1
}

func TestInternalPageValueIndex(t *testing.T) {
	var kc page.Int32Codec
	buf := newBuf()
	ip := page.WrapInternal[int32](buf, kc)
	ip.Init(4)
	ip.InsertAt(0, 0, 100)
	ip.InsertAt(1, 5, 200)

	assert.Equal(t, 1, ip.ValueIndex(200))
	assert.Equal(t, -1, ip.ValueIndex(999))
}

func TestMaxSizesAreComputedFromPageSize(t *testing.T) {
	var kc, vc page.Int32Codec
	leafMax := page.MaxLeafSize[int32, int32](diskmgr.PageSize, kc, vc)
	internalMax := page.MaxInternalSize[int32](diskmgr.PageSize, kc)

	assert.Greater(t, leafMax, 100)
	assert.Greater(t, internalMax, 100)
}

func TestMinSizeIsCeilHalf(t *testing.T) {
	assert.Equal(t, 2, page.MinSize(4))
	assert.Equal(t, 3, page.MinSize(5))
}
