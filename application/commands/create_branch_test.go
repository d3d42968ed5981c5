package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loom-backend/application/ports"
	"loom-backend/domain/branching"
	"loom-backend/domain/config"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/validators"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/domain/events"
	"loom-backend/domain/layout"
	"loom-backend/domain/versioning"
	"loom-backend/infrastructure/messaging"
	"loom-backend/infrastructure/persistence/memory"
	pkgerrors "loom-backend/pkg/errors"
)

type fixture struct {
	repo     ports.TreeRepository
	bus      ports.EventBus
	history  *versioning.History
	received []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DefaultTreeConfig()
	f := &fixture{
		repo:    memory.NewTreeRepository(aggregates.NewTree(cfg)),
		bus:     messaging.NewEventBus(zap.NewNop()),
		history: versioning.NewHistory(),
	}
	f.bus.Subscribe("*", func(ctx context.Context, event events.DomainEvent) {
		f.received = append(f.received, event.GetEventType())
	})
	return f
}

func (f *fixture) createNodeHandler() *CreateNodeHandler {
	cfg := config.DefaultTreeConfig()
	return NewCreateNodeHandler(f.repo, layout.NewEngine(cfg), validators.NewBlockValidator(cfg), f.bus, zap.NewNop())
}

func (f *fixture) createBranchHandler() *CreateBranchHandler {
	cfg := config.DefaultTreeConfig()
	return NewCreateBranchHandler(f.repo, layout.NewEngine(cfg), branching.NewEngine(), f.history, f.bus, zap.NewNop())
}

func (f *fixture) seedNode(t *testing.T) (nodeID string, blockID string) {
	t.Helper()
	result, err := f.createNodeHandler().Handle(context.Background(), CreateNodeCommand{})
	require.NoError(t, err)
	err = f.repo.View(context.Background(), func(tree *aggregates.Tree) error {
		id, err := valueobjects.NewNodeIDFromString(result.NodeID)
		require.NoError(t, err)
		node, err := tree.GetNode(id)
		require.NoError(t, err)
		blockID = node.Blocks()[0].ID().String()
		return nil
	})
	require.NoError(t, err)
	return result.NodeID, blockID
}

func TestCreateBranchHandler_CommitsAndRecords(t *testing.T) {
	f := newFixture(t)
	nodeID, blockID := f.seedNode(t)
	f.received = nil

	result, err := f.createBranchHandler().Handle(context.Background(), CreateBranchCommand{
		NodeID:  nodeID,
		BlockID: blockID,
		Content: "alternate phrasing",
		Source:  "inline-edit",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.BranchID)
	assert.NotEmpty(t, result.BranchNodeID)

	// The history carries exactly one entry for the edited original.
	original, _ := valueobjects.NewNodeIDFromString(nodeID)
	entries := f.history.ListByOriginal(original)
	require.Len(t, entries, 1)
	assert.Equal(t, result.BranchID, entries[0].BranchID.String())
	assert.Equal(t, result.BranchNodeID, entries[0].BranchNodeID.String())

	// Subscribers hear about the fork after commit.
	assert.Contains(t, f.received, "branch.created")

	// The branch node exists with the edit applied and a fresh layout.
	err = f.repo.View(context.Background(), func(tree *aggregates.Tree) error {
		branchID, err := valueobjects.NewNodeIDFromString(result.BranchNodeID)
		require.NoError(t, err)
		node, err := tree.GetNode(branchID)
		require.NoError(t, err)
		assert.Equal(t, "alternate phrasing", node.Blocks()[0].Content())
		return nil
	})
	require.NoError(t, err)
}

func TestCreateBranchHandler_FailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	nodeID, _ := f.seedNode(t)
	f.received = nil

	_, err := f.createBranchHandler().Handle(context.Background(), CreateBranchCommand{
		NodeID:  nodeID,
		BlockID: valueobjects.NewBlockID().String(),
		Content: "x",
		Source:  "inline-edit",
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsBlockNotFound(err))
	assert.Equal(t, 0, f.history.Len())
	assert.Empty(t, f.received)
}

func TestCreateBranchCommand_Validation(t *testing.T) {
	cmd := CreateBranchCommand{NodeID: "nope", BlockID: "b", Source: "drag"}
	assert.True(t, pkgerrors.IsValidation(cmd.Validate()))

	cmd = CreateBranchCommand{
		NodeID:  valueobjects.NewNodeID().String(),
		BlockID: valueobjects.NewBlockID().String(),
		Source:  "chat-interface-edit",
	}
	assert.NoError(t, cmd.Validate())
}

func TestCreateNodeHandler_PublishesAndPlaces(t *testing.T) {
	f := newFixture(t)

	result, err := f.createNodeHandler().Handle(context.Background(), CreateNodeCommand{
		Blocks: []BlockInput{{Kind: "prompt", Content: "q"}, {Kind: "response", Content: "a"}, {Kind: "note", Content: "aside"}},
	})
	require.NoError(t, err)
	assert.Contains(t, f.received, "node.created")

	err = f.repo.View(context.Background(), func(tree *aggregates.Tree) error {
		id, err := valueobjects.NewNodeIDFromString(result.NodeID)
		require.NoError(t, err)
		node, err := tree.GetNode(id)
		require.NoError(t, err)
		require.Len(t, node.Blocks(), 3)
		assert.Equal(t, valueobjects.KindNote, node.Blocks()[2].Kind())
		// Layout ran inside the same mutation.
		assert.Equal(t, 40.0, node.Position().X())
		assert.Equal(t, 40.0, node.Position().Y())
		return nil
	})
	require.NoError(t, err)
}

func TestCreateNodeHandler_RejectsBadBlockKind(t *testing.T) {
	f := newFixture(t)

	cmd := CreateNodeCommand{Blocks: []BlockInput{{Kind: "sidebar", Content: "x"}}}
	assert.True(t, pkgerrors.IsValidation(cmd.Validate()))

	// The handler rejects it independently of request validation, and
	// nothing is committed or published.
	_, err := f.createNodeHandler().Handle(context.Background(), cmd)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Empty(t, f.received)

	err = f.repo.View(context.Background(), func(tree *aggregates.Tree) error {
		assert.Equal(t, 0, tree.NodeCount())
		return nil
	})
	require.NoError(t, err)
}
