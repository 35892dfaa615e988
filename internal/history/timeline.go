// Package history keeps bounded undo/redo timelines of document snapshots.
package history

import (
	"github.com/codr1/lottiecolor/internal/lottie"
)

// DefaultCapacity bounds a timeline when no capacity is configured.
const DefaultCapacity = 50

// Timeline is a linear undo/redo history of document snapshots. Snapshots are
// stored as given; callers must not mutate a document after pushing it.
// A Timeline is not safe for concurrent use; Store guards its timelines.
type Timeline struct {
	snapshots []*lottie.Node
	cursor    int
	capacity  int
}

// NewTimeline returns an empty timeline holding at most capacity snapshots.
func NewTimeline(capacity int) *Timeline {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Timeline{cursor: -1, capacity: capacity}
}

// Push records doc as the new current snapshot and discards any redo
// history. A snapshot equal to the current one is ignored. When the timeline
// is full the oldest snapshot is dropped. It reports whether doc was recorded.
func (t *Timeline) Push(doc *lottie.Node) bool {
	if doc == nil {
		return false
	}
	if cur := t.Current(); cur != nil && cur.Equal(doc) {
		return false
	}
	t.snapshots = append(t.snapshots[:t.cursor+1], doc)
	if len(t.snapshots) > t.capacity {
		drop := len(t.snapshots) - t.capacity
		t.snapshots = append([]*lottie.Node(nil), t.snapshots[drop:]...)
	}
	t.cursor = len(t.snapshots) - 1
	return true
}

// Current returns the current snapshot, or nil for an empty timeline.
func (t *Timeline) Current() *lottie.Node {
	if t.cursor < 0 {
		return nil
	}
	return t.snapshots[t.cursor]
}

func (t *Timeline) CanUndo() bool { return t.cursor > 0 }

func (t *Timeline) CanRedo() bool { return t.cursor >= 0 && t.cursor < len(t.snapshots)-1 }

// Undo steps back one snapshot and returns it.
func (t *Timeline) Undo() (*lottie.Node, bool) {
	if !t.CanUndo() {
		return nil, false
	}
	t.cursor--
	return t.snapshots[t.cursor], true
}

// Redo steps forward one snapshot and returns it.
func (t *Timeline) Redo() (*lottie.Node, bool) {
	if !t.CanRedo() {
		return nil, false
	}
	t.cursor++
	return t.snapshots[t.cursor], true
}

// Len returns the number of stored snapshots.
func (t *Timeline) Len() int { return len(t.snapshots) }

// Position returns the zero-based index of the current snapshot, or -1.
func (t *Timeline) Position() int { return t.cursor }
