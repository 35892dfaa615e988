package history_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codr1/lottiecolor/internal/history"
	"github.com/codr1/lottiecolor/internal/lottie"
)

func doc(t *testing.T, n int) *lottie.Node {
	t.Helper()
	d, err := lottie.Parse([]byte(fmt.Sprintf(`{"v":%d}`, n)))
	require.NoError(t, err)
	return d
}

func TestTimeline_UndoRedo(t *testing.T) {
	t.Parallel()

	tl := history.NewTimeline(10)
	assert.Nil(t, tl.Current())
	assert.False(t, tl.CanUndo())
	assert.False(t, tl.CanRedo())

	require.True(t, tl.Push(doc(t, 1)))
	require.True(t, tl.Push(doc(t, 2)))
	require.True(t, tl.Push(doc(t, 3)))

	got, ok := tl.Undo()
	require.True(t, ok)
	assert.True(t, got.Equal(doc(t, 2)))

	got, ok = tl.Undo()
	require.True(t, ok)
	assert.True(t, got.Equal(doc(t, 1)))

	_, ok = tl.Undo()
	assert.False(t, ok)

	got, ok = tl.Redo()
	require.True(t, ok)
	assert.True(t, got.Equal(doc(t, 2)))
	assert.True(t, tl.CanRedo())
}

func TestTimeline_PushTruncatesRedo(t *testing.T) {
	t.Parallel()

	tl := history.NewTimeline(10)
	tl.Push(doc(t, 1))
	tl.Push(doc(t, 2))
	tl.Undo()

	require.True(t, tl.Push(doc(t, 9)))
	assert.False(t, tl.CanRedo())
	assert.Equal(t, 2, tl.Len())
	assert.True(t, tl.Current().Equal(doc(t, 9)))
}

func TestTimeline_IgnoresDuplicateSnapshot(t *testing.T) {
	t.Parallel()

	tl := history.NewTimeline(10)
	require.True(t, tl.Push(doc(t, 1)))
	assert.False(t, tl.Push(doc(t, 1)))
	assert.False(t, tl.Push(nil))
	assert.Equal(t, 1, tl.Len())
}

func TestTimeline_CapacityDropsOldest(t *testing.T) {
	t.Parallel()

	tl := history.NewTimeline(3)
	for i := 1; i <= 5; i++ {
		tl.Push(doc(t, i))
	}
	assert.Equal(t, 3, tl.Len())
	assert.Equal(t, 2, tl.Position())

	tl.Undo()
	got, ok := tl.Undo()
	require.True(t, ok)
	assert.True(t, got.Equal(doc(t, 3)))
	assert.False(t, tl.CanUndo())
}

func TestStore_PerProjectTimelines(t *testing.T) {
	t.Parallel()

	s := history.NewStore(5)
	s.Ensure(1, doc(t, 10))
	s.Ensure(1, doc(t, 99))
	state := s.Push(1, doc(t, 11))
	assert.Equal(t, history.State{CanUndo: true, CanRedo: false, Versions: 2, Position: 1}, state)

	s.Push(2, doc(t, 20))
	assert.False(t, s.State(2).CanUndo)

	got, state, ok := s.Undo(1)
	require.True(t, ok)
	assert.True(t, got.Equal(doc(t, 10)))
	assert.True(t, state.CanRedo)

	got, _, ok = s.Redo(1)
	require.True(t, ok)
	assert.True(t, got.Equal(doc(t, 11)))

	_, state, ok = s.Undo(42)
	assert.False(t, ok)
	assert.Equal(t, -1, state.Position)

	s.Forget(1)
	assert.Equal(t, 0, s.State(1).Versions)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := history.NewStore(20)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			d, _ := lottie.Parse([]byte(fmt.Sprintf(`{"v":%d}`, n)))
			s.Push(1, d)
			s.Undo(1)
			s.Redo(1)
			s.State(1)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.State(1).Versions, 20)
}
