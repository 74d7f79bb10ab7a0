package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictPrefersFramesWithFewerThanKAccesses(t *testing.T) {
	r := NewLRUKReplacer(2)

	r.RecordAccess(1)
	r.RecordAccess(1)
	r.RecordAccess(2) // only one access: infinite backward distance
	r.SetEvictable(1, true)
	r.SetEvictable(2, true)

	victim, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(2), victim)
}

func TestEvictPicksOldestKthAccessAmongFullyTracked(t *testing.T) {
	r := NewLRUKReplacer(2)

	r.RecordAccess(1)
	r.RecordAccess(1)
	r.RecordAccess(2)
	r.RecordAccess(2)
	r.RecordAccess(1) // frame 1 is most recent, but its 2nd-most-recent access (t=2) is still older than frame 2's (t=3)

	r.SetEvictable(1, true)
	r.SetEvictable(2, true)

	victim, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(1), victim)
}

func TestNonEvictableFrameIsNeverChosen(t *testing.T) {
	r := NewLRUKReplacer(2)
	r.RecordAccess(1)
	r.SetEvictable(1, false)

	_, ok := r.Evict()
	assert.False(t, ok)
}

func TestRemoveDropsBookkeeping(t *testing.T) {
	r := NewLRUKReplacer(2)
	r.RecordAccess(1)
	r.SetEvictable(1, true)
	assert.Equal(t, 1, r.Size())

	r.Remove(1)
	assert.Equal(t, 0, r.Size())
	_, ok := r.Evict()
	assert.False(t, ok)
}

func TestSetEvictableIgnoresUntrackedFrame(t *testing.T) {
	r := NewLRUKReplacer(2)
	r.SetEvictable(99, true) // no RecordAccess yet: should be a no-op
	assert.Equal(t, 0, r.Size())
}
