package memory

import (
	"context"
	"sync"

	"loom-backend/domain/core/aggregates"
	pkgerrors "loom-backend/pkg/errors"
)

// SnapshotStore keeps snapshots in memory, for development and tests
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]aggregates.TreeSnapshot
}

// NewSnapshotStore creates an empty in-memory snapshot store
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]aggregates.TreeSnapshot)}
}

// Save stores the snapshot for a workspace
func (s *SnapshotStore) Save(ctx context.Context, workspaceID string, snapshot aggregates.TreeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[workspaceID] = snapshot
	return nil
}

// Load returns the snapshot for a workspace
func (s *SnapshotStore) Load(ctx context.Context, workspaceID string) (aggregates.TreeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[workspaceID]
	if !ok {
		return aggregates.TreeSnapshot{}, pkgerrors.NewNotFoundError("snapshot for workspace", workspaceID)
	}
	return snapshot, nil
}

// Delete removes the snapshot for a workspace
func (s *SnapshotStore) Delete(ctx context.Context, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, workspaceID)
	return nil
}
