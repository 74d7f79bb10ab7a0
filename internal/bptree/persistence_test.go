package bptree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bptreedb/bptreedb/common/testutil"
	"github.com/bptreedb/bptreedb/internal/page"
)

// deterministicKeys returns a fixed pseudo-random permutation of
// [0, n) so two independent runs see identical operation sequences
// without depending on a shared random seed.
func deterministicKeys(n int) []int32 {
	keys := make([]int32, n)
	for i := range keys {
		keys[i] = int32((i*37 + 11) % n)
	}
	return keys
}

func runWorkload(t *testing.T, dir string) (dataPath string) {
	dataPath = filepath.Join(dir, "t.db")
	garbagePath := filepath.Join(dir, "t.garbage")

	tr, err := Open(Options[int32, int32]{
		DataFile:    dataPath,
		GarbageFile: garbagePath,
		PoolSize:    8,
		ReplacerK:   2,
		KeyCodec:    page.Int32Codec{},
		ValCodec:    page.Int32Codec{},
		Cmp:         page.CompareInt32,
	})
	require.NoError(t, err)

	for _, k := range deterministicKeys(200) {
		_, err := tr.Insert(k, k*10)
		require.NoError(t, err)
		_, _ = tr.Get(k)
	}
	for i, k := range deterministicKeys(200) {
		if i%3 == 0 {
			_, err := tr.Remove(k)
			require.NoError(t, err)
		}
	}

	require.NoError(t, tr.checkInvariants())
	require.NoError(t, tr.Close())
	return dataPath
}

// Scenario 5: pool_size=8, K=2, a deterministic workload standing in for
// "1000 random inserts/finds of 200 distinct keys" (no fetch failures,
// checked via require.NoError throughout); two independent runs of the
// identical workload must flush to byte-identical data files.
func TestFlushAllPagesIsDeterministicAcrossIdenticalRuns(t *testing.T) {
	dirA := testutil.TempDir(t)
	dirB := testutil.TempDir(t)

	pathA := runWorkload(t, dirA)
	pathB := runWorkload(t, dirB)

	bytesA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	bytesB, err := os.ReadFile(pathB)
	require.NoError(t, err)

	assert.Equal(t, bytesA, bytesB)
}

// Persistence round-trip: ops; close; reopen yields the same begin()..end()
// sequence as ops with no reopen.
func TestReopenPreservesIterationOrder(t *testing.T) {
	dir := testutil.TempDir(t)
	dataPath := filepath.Join(dir, "t.db")
	garbagePath := filepath.Join(dir, "t.garbage")

	tr, err := Open(Options[int32, int32]{
		DataFile:    dataPath,
		GarbageFile: garbagePath,
		PoolSize:    8,
		ReplacerK:   2,
		KeyCodec:    page.Int32Codec{},
		ValCodec:    page.Int32Codec{},
		Cmp:         page.CompareInt32,
	})
	require.NoError(t, err)
	for _, k := range deterministicKeys(50) {
		_, err := tr.Insert(k, k)
		require.NoError(t, err)
	}
	want := collect(t, tr)
	require.NoError(t, tr.Close())

	reopened, err := Open(Options[int32, int32]{
		DataFile:    dataPath,
		GarbageFile: garbagePath,
		PoolSize:    8,
		ReplacerK:   2,
		KeyCodec:    page.Int32Codec{},
		ValCodec:    page.Int32Codec{},
		Cmp:         page.CompareInt32,
	})
	require.NoError(t, err)
	defer reopened.Close()

	got := collect(t, reopened)
	assert.Equal(t, want, got)
}
