package memory

import (
	"context"
	"sync"

	"loom-backend/domain/core/aggregates"
	pkgerrors "loom-backend/pkg/errors"
)

// TreeRepository holds the live tree aggregate behind a readers-writer
// lock. Mutations are serialized: exactly one Mutate closure runs at a
// time, which is what makes validate-then-commit sound without any
// per-node locking in the domain.
type TreeRepository struct {
	mu   sync.RWMutex
	tree *aggregates.Tree
}

// NewTreeRepository creates a repository around an initial tree
func NewTreeRepository(tree *aggregates.Tree) *TreeRepository {
	return &TreeRepository{tree: tree}
}

// View runs fn with shared read access
func (r *TreeRepository) View(ctx context.Context, fn func(tree *aggregates.Tree) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTimeoutError("tree view")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(r.tree)
}

// Mutate runs fn with exclusive access
func (r *TreeRepository) Mutate(ctx context.Context, fn func(tree *aggregates.Tree) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTimeoutError("tree mutation")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.tree)
}

// Replace swaps the live tree for another
func (r *TreeRepository) Replace(ctx context.Context, tree *aggregates.Tree) error {
	if tree == nil {
		return pkgerrors.NewValidationError("replacement tree cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTimeoutError("tree replace")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree = tree
	return nil
}
