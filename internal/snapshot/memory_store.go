package snapshot

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-process slot. It survives
// reloads of the session store but not process restarts; tests use it to
// exercise the reload path without touching the filesystem.
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewMemoryStore creates a new in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores a deep copy of the snapshot so later mutation by the caller
// cannot leak into the persisted state.
func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = copySnapshot(snap)
	return nil
}

// Load returns a deep copy of the stored snapshot, or nil.
func (s *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copySnapshot(s.snap), nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func copySnapshot(snap *Snapshot) *Snapshot {
	if snap == nil {
		return nil
	}
	cp := *snap
	cp.User = snap.User.Clone()
	return &cp
}

var _ Store = (*MemoryStore)(nil)
