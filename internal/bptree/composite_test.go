package bptree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bptreedb/bptreedb/common/testutil"
	"github.com/bptreedb/bptreedb/internal/page"
)

// compositeKey pairs a short string prefix with an int32 disambiguator,
// the pattern the original implementation uses to store several values
// under what looks, to a caller, like one duplicate-tolerant key.
type compositeKey struct {
	prefix string
	disc   int32
}

type compositeCodec struct{ width int }

func (c compositeCodec) Size() int { return c.width + 4 }

func (c compositeCodec) Encode(v compositeKey, buf []byte) {
	page.FixedStringCodec{Width: c.width}.Encode(v.prefix, buf[:c.width])
	page.Int32Codec{}.Encode(v.disc, buf[c.width:])
}

func (c compositeCodec) Decode(buf []byte) compositeKey {
	prefix := page.FixedStringCodec{Width: c.width}.Decode(buf[:c.width])
	disc := page.Int32Codec{}.Decode(buf[c.width:])
	return compositeKey{prefix: prefix, disc: disc}
}

func compareComposite(a, b compositeKey) int {
	if a.prefix != b.prefix {
		if a.prefix < b.prefix {
			return -1
		}
		return 1
	}
	switch {
	case a.disc < b.disc:
		return -1
	case a.disc > b.disc:
		return 1
	default:
		return 0
	}
}

// Scenario 6: duplicate-key composite. Three entries share the prefix
// "abc" and differ only by disambiguator; querying with disambiguator 0
// (below any real one) positions the iterator at the first of the three,
// and scanning while the prefix matches recovers all three in ascending
// disambiguator order.
func TestDuplicateKeyCompositeRangeScan(t *testing.T) {
	dir := testutil.TempDir(t)
	codec := compositeCodec{width: 8}

	tr, err := Open(Options[compositeKey, int32]{
		DataFile:    filepath.Join(dir, "t.db"),
		GarbageFile: filepath.Join(dir, "t.garbage"),
		PoolSize:    16,
		ReplacerK:   2,
		KeyCodec:    codec,
		ValCodec:    page.Int32Codec{},
		Cmp:         compareComposite,
	})
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })

	_, err = tr.Insert(compositeKey{"abc", 1}, 0)
	require.NoError(t, err)
	_, err = tr.Insert(compositeKey{"abc", 2}, 0)
	require.NoError(t, err)
	_, err = tr.Insert(compositeKey{"abc", 3}, 0)
	require.NoError(t, err)
	_, err = tr.Insert(compositeKey{"zzz", 1}, 0)
	require.NoError(t, err)

	it, err := tr.BeginAt(compositeKey{"abc", 0})
	require.NoError(t, err)
	defer it.Close()

	var discs []int32
	for !it.End() {
		k, _ := it.Pair()
		if k.prefix != "abc" {
			break
		}
		discs = append(discs, k.disc)
		require.NoError(t, it.Next())
	}

	assert.Equal(t, []int32{1, 2, 3}, discs)
}
