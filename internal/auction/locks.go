package auction

import "sync"

// lockTable hands out one mutex per auction id. Acquisition never waits: a
// held lock is reported as busy.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// tryAcquire returns the release func and true if the lock for id was free.
func (t *lockTable) tryAcquire(id string) (func(), bool) {
	t.mu.Lock()
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	t.mu.Unlock()

	if !l.TryLock() {
		return nil, false
	}
	return l.Unlock, true
}
