// internal/history/store.go
package history

import (
	"sync"

	"github.com/codr1/lottiecolor/internal/lottie"
)

// State describes a project's position in its timeline.
type State struct {
	CanUndo  bool `json:"canUndo"`
	CanRedo  bool `json:"canRedo"`
	Versions int  `json:"versions"`
	Position int  `json:"position"`
}

// Store keeps one timeline per project. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	capacity  int
	timelines map[int64]*Timeline
}

func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, timelines: make(map[int64]*Timeline)}
}

// Ensure seeds a project's timeline with doc when it has none yet, so the
// first edit can be undone back to the loaded document.
func (s *Store) Ensure(projectID int64, doc *lottie.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.timelines[projectID]; ok {
		return
	}
	tl := NewTimeline(s.capacity)
	tl.Push(doc)
	s.timelines[projectID] = tl
}

// Push records a new snapshot for the project.
func (s *Store) Push(projectID int64, doc *lottie.Node) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	tl := s.timeline(projectID)
	tl.Push(doc)
	return stateOf(tl)
}

// Undo moves the project's timeline back one step.
func (s *Store) Undo(projectID int64) (*lottie.Node, State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tl, ok := s.timelines[projectID]
	if !ok {
		return nil, State{Position: -1}, false
	}
	doc, moved := tl.Undo()
	return doc, stateOf(tl), moved
}

// Redo moves the project's timeline forward one step.
func (s *Store) Redo(projectID int64) (*lottie.Node, State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tl, ok := s.timelines[projectID]
	if !ok {
		return nil, State{Position: -1}, false
	}
	doc, moved := tl.Redo()
	return doc, stateOf(tl), moved
}

// State reports the project's timeline position without changing it.
func (s *Store) State(projectID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	tl, ok := s.timelines[projectID]
	if !ok {
		return State{Position: -1}
	}
	return stateOf(tl)
}

// Forget drops the project's timeline.
func (s *Store) Forget(projectID int64) {
	s.mu.Lock()
	delete(s.timelines, projectID)
	s.mu.Unlock()
}

func (s *Store) timeline(projectID int64) *Timeline {
	tl, ok := s.timelines[projectID]
	if !ok {
		tl = NewTimeline(s.capacity)
		s.timelines[projectID] = tl
	}
	return tl
}

func stateOf(tl *Timeline) State {
	return State{
		CanUndo:  tl.CanUndo(),
		CanRedo:  tl.CanRedo(),
		Versions: tl.Len(),
		Position: tl.Position(),
	}
}
