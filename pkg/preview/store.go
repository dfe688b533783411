package preview

import (
	"sync"
)

// Store holds preview snapshots in memory, one per source id.
// Snapshots are ephemeral by design: they never survive a restart and
// are evicted when their source is deleted.
type Store struct {
	mu        sync.RWMutex
	snapshots map[int64]*Snapshot
	maxRows   int
}

// NewStore creates a snapshot store. maxRows caps how many rows a
// stored snapshot may carry; longer snapshots are truncated on Put.
func NewStore(maxRows int) *Store {
	return &Store{
		snapshots: make(map[int64]*Snapshot),
		maxRows:   maxRows,
	}
}

// Put stores a snapshot for its source id, replacing any previous one.
func (s *Store) Put(snap *Snapshot) {
	if s.maxRows > 0 && len(snap.Rows) > s.maxRows {
		snap.Rows = snap.Rows[:s.maxRows]
	}

	s.mu.Lock()
	s.snapshots[snap.SourceID] = snap
	s.mu.Unlock()
}

// Get returns the snapshot for a source id, or false when none is
// cached.
func (s *Store) Get(sourceID int64) (*Snapshot, bool) {
	s.mu.RLock()
	snap, ok := s.snapshots[sourceID]
	s.mu.RUnlock()
	return snap, ok
}

// Evict drops the snapshot for a source id, if any.
func (s *Store) Evict(sourceID int64) {
	s.mu.Lock()
	delete(s.snapshots, sourceID)
	s.mu.Unlock()
}
