package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetBasics(t *testing.T) {
	st := New(map[string]any{"seed": "value"})

	v, ok := st.Get("seed")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = st.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, "fallback", st.GetOr("missing", "fallback"))

	require.NoError(t, st.Set("k", 42))
	assert.Equal(t, 42, st.GetOr("k", nil))
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, []string{"k", "seed"}, st.Keys())
}

func TestGetReturnsDefensiveCopy(t *testing.T) {
	st := New(nil)
	require.NoError(t, st.Set("nested", map[string]any{"inner": []any{1, 2}}))

	v, ok := st.Get("nested")
	require.True(t, ok)
	m := v.(map[string]any)
	m["inner"] = "mutated"
	m["added"] = true

	again, _ := st.Get("nested")
	assert.Equal(t, map[string]any{"inner": []any{1, 2}}, again)
}

func TestNewCopiesInitialMap(t *testing.T) {
	seed := map[string]any{"a": 1}
	st := New(seed)
	seed["a"] = 99
	seed["b"] = 2

	assert.Equal(t, 1, st.GetOr("a", nil))
	_, ok := st.Get("b")
	assert.False(t, ok)
}

func TestLockBlocksWrites(t *testing.T) {
	st := New(map[string]any{"k": "original"})
	st.Lock("k")
	assert.True(t, st.IsLocked("k"))

	err := st.Set("k", "overwrite")
	require.ErrorIs(t, err, ErrKeyLocked)
	assert.Equal(t, "original", st.GetOr("k", nil))

	err = st.Update(map[string]any{"k": "overwrite", "other": 1})
	require.ErrorIs(t, err, ErrKeyLocked)
	assert.Equal(t, "original", st.GetOr("k", nil))
	_, ok := st.Get("other")
	assert.False(t, ok, "atomic update must not partially apply")

	st.Unlock("k")
	assert.False(t, st.IsLocked("k"))
	require.NoError(t, st.Set("k", "overwrite"))
	assert.Equal(t, "overwrite", st.GetOr("k", nil))
}

func TestHistoryLengthTracksSnapshotsOnly(t *testing.T) {
	st := New(nil)
	require.NoError(t, st.Set("a", 1))
	require.NoError(t, st.Update(map[string]any{"b": 2, "c": 3}))
	assert.Equal(t, 0, st.HistoryLen(), "writes are not history events")

	seq := st.Snapshot("first")
	assert.Equal(t, 0, seq)
	require.NoError(t, st.Set("a", 10))
	require.NoError(t, st.Set("a", 11))
	seq = st.Snapshot("second")
	assert.Equal(t, 1, seq)

	assert.Equal(t, 2, st.HistoryLen())
}

func TestHistoryIteratorIsLazyAndRestartable(t *testing.T) {
	st := New(nil)
	require.NoError(t, st.Set("x", 1))
	st.Snapshot("one")
	require.NoError(t, st.Set("x", 2))
	st.Snapshot("two")

	history := st.History()

	var labels []string
	for snap := range history {
		labels = append(labels, snap.Label)
	}
	assert.Equal(t, []string{"one", "two"}, labels)

	// Restartable: the same sequence can be ranged again.
	labels = nil
	for snap := range history {
		labels = append(labels, snap.Label)
	}
	assert.Equal(t, []string{"one", "two"}, labels)

	// Early break is supported.
	count := 0
	for range history {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestSnapshotDataIsImmutable(t *testing.T) {
	st := New(nil)
	require.NoError(t, st.Set("k", "v1"))
	st.Snapshot("snap")

	for snap := range st.History() {
		snap.Data["k"] = "tampered"
	}
	snap, err := st.SnapshotAt(0)
	require.NoError(t, err)
	assert.Equal(t, "v1", snap.Data["k"])
}

func TestRollback(t *testing.T) {
	st := New(nil)
	require.NoError(t, st.Set("k", "v1"))
	st.Snapshot("first")
	require.NoError(t, st.Set("k", "v2"))
	st.Snapshot("second")
	require.NoError(t, st.Set("k", "v3"))

	require.NoError(t, st.RollbackTo(0))
	assert.Equal(t, "v1", st.GetOr("k", nil))

	// Idempotent: rolling back twice yields the same mapping.
	require.NoError(t, st.RollbackTo(0))
	assert.Equal(t, "v1", st.GetOr("k", nil))

	// History is an audit trail, not an undo stack: later snapshots remain
	// valid rollback targets.
	assert.Equal(t, 2, st.HistoryLen())
	require.NoError(t, st.RollbackTo(1))
	assert.Equal(t, "v2", st.GetOr("k", nil))
}

func TestRollbackUnknownSnapshot(t *testing.T) {
	st := New(nil)
	require.ErrorIs(t, st.RollbackTo(0), ErrUnknownSnapshot)
	st.Snapshot("only")
	require.ErrorIs(t, st.RollbackTo(1), ErrUnknownSnapshot)
	require.ErrorIs(t, st.RollbackTo(-1), ErrUnknownSnapshot)
}

func TestMergeLastWriterWinsByBranchOrder(t *testing.T) {
	st := New(nil)
	require.NoError(t, st.Merge([]Branch{
		{Name: "A", Values: map[string]any{"x": 1}},
		{Name: "B", Values: map[string]any{"x": 2}},
	}))
	assert.Equal(t, 2, st.GetOr("x", nil))

	st = New(nil)
	require.NoError(t, st.Merge([]Branch{
		{Name: "B", Values: map[string]any{"x": 2}},
		{Name: "A", Values: map[string]any{"x": 1}},
	}))
	assert.Equal(t, 1, st.GetOr("x", nil))
}

func TestMergeAddsAbsentKeysAndHonorsLocks(t *testing.T) {
	st := New(map[string]any{"existing": "kept"})
	require.NoError(t, st.Merge([]Branch{
		{Name: "A", Values: map[string]any{"fresh": true}},
	}))
	assert.Equal(t, "kept", st.GetOr("existing", nil))
	assert.Equal(t, true, st.GetOr("fresh", nil))

	st.Lock("guarded")
	err := st.Merge([]Branch{
		{Name: "A", Values: map[string]any{"ok": 1}},
		{Name: "B", Values: map[string]any{"guarded": 2}},
	})
	require.ErrorIs(t, err, ErrKeyLocked)
	_, ok := st.Get("ok")
	assert.False(t, ok, "merge must be all-or-nothing")
}

func TestCloneIsIndependent(t *testing.T) {
	st := New(map[string]any{"k": "v"})
	st.Lock("frozen")
	st.Snapshot("base")

	clone := st.Clone()
	require.NoError(t, clone.Set("k", "changed"))
	clone.Snapshot("extra")
	clone.Unlock("frozen")

	assert.Equal(t, "v", st.GetOr("k", nil))
	assert.Equal(t, 1, st.HistoryLen())
	assert.True(t, st.IsLocked("frozen"))
	assert.Equal(t, 2, clone.HistoryLen())
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	st := New(map[string]any{"counter": 0})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = st.Set("counter", i*100+j)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = st.Get("counter")
				_ = st.Map()
			}
		}()
	}
	wg.Wait()
	_, ok := st.Get("counter")
	assert.True(t, ok)
}

func TestSetOnLockedWrappedError(t *testing.T) {
	st := New(nil)
	st.Lock("k")
	err := st.Set("k", 1)
	assert.True(t, errors.Is(err, ErrKeyLocked))
	assert.Contains(t, err.Error(), `"k"`)
}
