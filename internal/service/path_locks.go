package service

import "sync"

// PathLocks provides per-path mutual exclusion. Entries are dropped once no
// goroutine holds or waits for them.
type PathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// NewPathLocks creates an empty lock table
func NewPathLocks() *PathLocks {
	return &PathLocks{locks: make(map[string]*pathLock)}
}

// Lock blocks until path is free and returns the matching unlock func.
func (pl *PathLocks) Lock(path string) func() {
	pl.mu.Lock()
	l, ok := pl.locks[path]
	if !ok {
		l = &pathLock{}
		pl.locks[path] = l
	}
	l.refs++
	pl.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			pl.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(pl.locks, path)
			}
			pl.mu.Unlock()
		})
	}
}
