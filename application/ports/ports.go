package ports

import (
	"context"

	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/events"
)

// TreeRepository provides serialized access to the live tree aggregate.
// All mutations go through Mutate, which guarantees a single writer: the
// closure runs with exclusive access and its error aborts the mutation.
type TreeRepository interface {
	// View runs fn with shared read access to the tree.
	View(ctx context.Context, fn func(tree *aggregates.Tree) error) error

	// Mutate runs fn with exclusive access to the tree.
	Mutate(ctx context.Context, fn func(tree *aggregates.Tree) error) error

	// Replace swaps the live tree for another, used by import.
	Replace(ctx context.Context, tree *aggregates.Tree) error
}

// SnapshotStore persists serialized tree snapshots keyed by workspace
type SnapshotStore interface {
	Save(ctx context.Context, workspaceID string, snapshot aggregates.TreeSnapshot) error
	Load(ctx context.Context, workspaceID string) (aggregates.TreeSnapshot, error)
	Delete(ctx context.Context, workspaceID string) error
}

// EventBus distributes domain events to in-process subscribers
type EventBus interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	Subscribe(eventType string, handler func(ctx context.Context, event events.DomainEvent))
}

// CompletionChunk is one streamed fragment of a model response
type CompletionChunk struct {
	Content string
	Done    bool
}

// CompletionMessage is one turn handed to the completion provider
type CompletionMessage struct {
	Role    string
	Content string
}

// CompletionProvider streams a model response for a conversation.
// Implementations send chunks on the returned channel and close it when
// the stream ends; a mid-stream failure is delivered on the error
// channel after the chunk channel closes.
type CompletionProvider interface {
	Stream(ctx context.Context, messages []CompletionMessage) (<-chan CompletionChunk, <-chan error)
}
