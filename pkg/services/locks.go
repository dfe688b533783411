package services

import "sync"

// keyedLocks provides one mutex per source id. The same lock covers
// registry edits (Update/Delete) and sync completion writes, so a sync
// in progress blocks concurrent edits to the same record and vice
// versa. Cross-id operations never contend.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewSourceLocks creates the shared per-source lock table. One instance
// is shared between the source service and the sync orchestrator.
func NewSourceLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for the given source id, creating it on
// first use. Locks are never reclaimed; the registry is small and ids
// are monotonic, so the table stays bounded by the number of sources
// ever created in this process.
func (k *keyedLocks) Lock(id int64) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()

	l.Lock()
}

// Unlock releases the mutex for the given source id.
func (k *keyedLocks) Unlock(id int64) {
	k.mu.Lock()
	l := k.locks[id]
	k.mu.Unlock()

	if l != nil {
		l.Unlock()
	}
}
