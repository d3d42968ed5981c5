package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loom-backend/application/ports"
	"loom-backend/domain/config"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/validators"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/domain/layout"
	"loom-backend/domain/thread"
	"loom-backend/infrastructure/completion"
	"loom-backend/infrastructure/messaging"
	"loom-backend/infrastructure/persistence/memory"
	pkgerrors "loom-backend/pkg/errors"
)

// failingProvider streams a few chunks and then fails mid-stream.
type failingProvider struct{}

func (p *failingProvider) Stream(ctx context.Context, messages []ports.CompletionMessage) (<-chan ports.CompletionChunk, <-chan error) {
	chunks := make(chan ports.CompletionChunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		chunks <- ports.CompletionChunk{Content: "partial "}
		errs <- errors.New("upstream connection reset")
	}()
	return chunks, errs
}

func newService(t *testing.T, provider ports.CompletionProvider) (*CompletionService, ports.TreeRepository) {
	t.Helper()
	cfg := config.DefaultTreeConfig()
	repo := memory.NewTreeRepository(aggregates.NewTree(cfg))
	svc := NewCompletionService(
		repo,
		provider,
		thread.NewBuilder(),
		layout.NewEngine(cfg),
		validators.NewBlockValidator(cfg),
		messaging.NewEventBus(zap.NewNop()),
		zap.NewNop(),
	)
	return svc, repo
}

func TestComplete_CommitsPromptResponsePair(t *testing.T) {
	svc, repo := newService(t, completion.NewStubProvider())

	var streamed strings.Builder
	result, err := svc.Complete(context.Background(), CompletionRequest{Prompt: "hello there"}, func(chunk string) {
		streamed.WriteString(chunk)
	})
	require.NoError(t, err)

	assert.Equal(t, "echo: hello there", result.Response)
	assert.Equal(t, result.Response, streamed.String())

	err = repo.View(context.Background(), func(tree *aggregates.Tree) error {
		require.Equal(t, 1, tree.NodeCount())
		node := tree.Roots()[0]
		blocks := node.Blocks()
		require.Len(t, blocks, 2)
		assert.Equal(t, valueobjects.KindPrompt, blocks[0].Kind())
		assert.Equal(t, "hello there", blocks[0].Content())
		assert.Equal(t, valueobjects.KindResponse, blocks[1].Kind())
		assert.Equal(t, "echo: hello there", blocks[1].Content())
		assert.Equal(t, result.NodeID, node.ID().String())
		return nil
	})
	require.NoError(t, err)
}

func TestComplete_ContinuesFromParent(t *testing.T) {
	svc, repo := newService(t, completion.NewStubProvider())

	var parentID string
	err := repo.Mutate(context.Background(), func(tree *aggregates.Tree) error {
		node, err := tree.CreateNode(valueobjects.NodeID{}, nil)
		if err != nil {
			return err
		}
		parentID = node.ID().String()
		tree.MarkEventsAsCommitted()
		return nil
	})
	require.NoError(t, err)

	result, err := svc.Complete(context.Background(), CompletionRequest{ParentID: parentID, Prompt: "follow up"}, nil)
	require.NoError(t, err)

	err = repo.View(context.Background(), func(tree *aggregates.Tree) error {
		assert.Equal(t, 2, tree.NodeCount())
		nodeID, err := valueobjects.NewNodeIDFromString(result.NodeID)
		require.NoError(t, err)
		node, err := tree.GetNode(nodeID)
		require.NoError(t, err)
		assert.Equal(t, parentID, node.ParentID().String())
		assert.Equal(t, 1, node.Depth())
		return nil
	})
	require.NoError(t, err)
}

func TestComplete_StreamFailureCommitsNothing(t *testing.T) {
	svc, repo := newService(t, &failingProvider{})

	_, err := svc.Complete(context.Background(), CompletionRequest{Prompt: "doomed"}, nil)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal))

	err = repo.View(context.Background(), func(tree *aggregates.Tree) error {
		assert.Equal(t, 0, tree.NodeCount())
		return nil
	})
	require.NoError(t, err)
}

func TestComplete_ValidatesRequest(t *testing.T) {
	svc, _ := newService(t, completion.NewStubProvider())

	_, err := svc.Complete(context.Background(), CompletionRequest{Prompt: ""}, nil)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = svc.Complete(context.Background(), CompletionRequest{ParentID: "not-a-uuid", Prompt: "hi"}, nil)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestComplete_UnknownParent(t *testing.T) {
	svc, _ := newService(t, completion.NewStubProvider())

	_, err := svc.Complete(context.Background(), CompletionRequest{
		ParentID: valueobjects.NewNodeID().String(),
		Prompt:   "hi",
	}, nil)

	assert.True(t, pkgerrors.IsNodeNotFound(err))
}
