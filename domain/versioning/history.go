package versioning

import (
	"sync"

	"loom-backend/domain/branching"
	"loom-backend/domain/core/valueobjects"
)

// History is the append-only record of branch creations. Entries are
// never modified or removed; repeated edits of the same original simply
// append further entries.
type History struct {
	mu      sync.RWMutex
	entries []branching.BranchMetadata
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{}
}

// Append records a branch creation
func (h *History) Append(meta branching.BranchMetadata) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, meta)
}

// List returns all entries in append order
func (h *History) List() []branching.BranchMetadata {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]branching.BranchMetadata, len(h.entries))
	copy(out, h.entries)
	return out
}

// ListByOriginal returns entries whose original node matches, in
// append order. Every edit of the same node shows up separately.
func (h *History) ListByOriginal(originalID valueobjects.NodeID) []branching.BranchMetadata {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []branching.BranchMetadata
	for _, entry := range h.entries {
		if entry.OriginalNodeID.Equals(originalID) {
			out = append(out, entry)
		}
	}
	return out
}

// Len returns the number of recorded branches
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Restore replaces the history contents, used when loading a snapshot
func (h *History) Restore(entries []branching.BranchMetadata) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make([]branching.BranchMetadata, len(entries))
	copy(h.entries, entries)
}
