package commands

import (
	"context"

	"go.uber.org/zap"

	"loom-backend/application/ports"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/events"
	"loom-backend/domain/layout"
)

// treeMutator bundles the machinery every structural command shares:
// run a mutation under the repository's single-writer lock, recompute
// the layout when the structure changed, then publish the events the
// aggregate accumulated. Events publish only after the mutation has
// committed, so subscribers never observe a rolled-back change.
type treeMutator struct {
	repo     ports.TreeRepository
	layout   *layout.Engine
	eventBus ports.EventBus
	logger   *zap.Logger
}

func newTreeMutator(repo ports.TreeRepository, layoutEngine *layout.Engine, eventBus ports.EventBus, logger *zap.Logger) *treeMutator {
	return &treeMutator{repo: repo, layout: layoutEngine, eventBus: eventBus, logger: logger}
}

// mutate applies fn to the tree. With relayout set, positions are
// recomputed and applied inside the same critical section.
func (m *treeMutator) mutate(ctx context.Context, relayout bool, fn func(tree *aggregates.Tree) error) error {
	var pending []events.DomainEvent

	err := m.repo.Mutate(ctx, func(tree *aggregates.Tree) error {
		if err := fn(tree); err != nil {
			return err
		}
		if relayout {
			tree.ApplyLayout(m.layout.ComputeLayout(tree))
		}
		pending = tree.GetUncommittedEvents()
		tree.MarkEventsAsCommitted()
		return nil
	})
	if err != nil {
		return err
	}

	for _, event := range pending {
		if pubErr := m.eventBus.Publish(ctx, event); pubErr != nil {
			m.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.GetEventType()),
				zap.Error(pubErr))
		}
	}
	return nil
}
