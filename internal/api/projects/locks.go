package projects

import "sync"

// projectLocks serializes edits per project. Entries are dropped once no
// request holds or waits on them.
type projectLocks struct {
	mu    sync.Mutex
	locks map[int64]*projectLock
}

type projectLock struct {
	mu   sync.Mutex
	refs int
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: make(map[int64]*projectLock)}
}

// lock blocks until the project's lock is held and returns its release func.
func (l *projectLocks) lock(projectID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[projectID]
	if !ok {
		entry = &projectLock{}
		l.locks[projectID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, projectID)
		}
		l.mu.Unlock()
	}
}

func (l *projectLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
