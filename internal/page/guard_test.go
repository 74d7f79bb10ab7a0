package page_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bptreedb/bptreedb/common/testutil"
	"github.com/bptreedb/bptreedb/internal/buffer"
	"github.com/bptreedb/bptreedb/internal/diskmgr"
	"github.com/bptreedb/bptreedb/internal/page"
)

func newPool(t *testing.T) *buffer.Pool {
	dir := testutil.TempDir(t)
	dm, err := diskmgr.Open(filepath.Join(dir, "g.db"), filepath.Join(dir, "g.garbage"))
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	return buffer.NewPool(dm, 4, 2)
}

func TestReadGuardAlwaysUnpinsClean(t *testing.T) {
	pool := newPool(t)
	f, err := pool.NewPage()
	require.NoError(t, err)
	require.NoError(t, pool.UnpinPage(f.PageID(), false))

	f2, err := pool.FetchPage(f.PageID())
	require.NoError(t, err)
	rg := page.NewReadGuard(pool, f2)
	_ = rg.Data()
	rg.Drop()
	assert.False(t, f2.IsDirty())

	// unpinned with dirty=false: deleting should succeed with no pending writeback
	assert.NoError(t, pool.DeletePage(f.PageID()))
}

func TestWriteGuardMutableDataMarksDirty(t *testing.T) {
	pool := newPool(t)
	f, err := pool.NewPage()
	require.NoError(t, err)

	wg := page.NewWriteGuard(pool, f)
	copy(wg.MutableData(), []byte("dirty"))
	wg.Drop()
	assert.True(t, f.IsDirty())

	require.NoError(t, pool.FlushAllPages())
}

func TestGuardDropIsIdempotent(t *testing.T) {
	pool := newPool(t)
	f, err := pool.NewPage()
	require.NoError(t, err)

	wg := page.NewWriteGuard(pool, f)
	wg.Drop()
	assert.NotPanics(t, func() { wg.Drop() })
}

func TestBasicGuardSetDirtyControlsUnpinFlag(t *testing.T) {
	pool := newPool(t)
	f, err := pool.NewPage()
	require.NoError(t, err)

	bg := page.NewBasicGuard(pool, f)
	bg.SetDirty(true)
	bg.Drop()

	// the dirty flag set on the guard is carried into the frame by the unpin
	assert.True(t, f.IsDirty())
	require.NoError(t, pool.FlushAllPages())
}
