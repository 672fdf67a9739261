package service

import "sync"

// FileLocks serializes mutations per file ID so a concurrent
// share-then-delete can't leave an orphaned grant or let a delete proceed
// mid-share. One instance is shared between the file store and the
// sharing engine
type FileLocks struct {
	mu    sync.Mutex
	locks map[uint]*entryLock
}

type entryLock struct {
	sync.Mutex
	refs int
}

func NewFileLocks() *FileLocks {
	return &FileLocks{locks: make(map[uint]*entryLock)}
}

// lock blocks until the per-key lock is held and returns the matching
// unlock function. Entries are reference counted so the map doesn't grow
// with every file ever touched
func (k *FileLocks) lock(key uint) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entryLock{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.Lock()

	return func() {
		e.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
