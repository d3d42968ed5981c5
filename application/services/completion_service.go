package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"loom-backend/application/ports"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/validators"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/domain/layout"
	"loom-backend/domain/thread"
	pkgerrors "loom-backend/pkg/errors"
	"loom-backend/pkg/utils"
)

// CompletionRequest asks for a model response to a prompt continued
// from an existing node (or from the root when ParentID is empty).
type CompletionRequest struct {
	ParentID string `json:"parent_id" validate:"omitempty,uuid"`
	Prompt   string `json:"prompt" validate:"required,max=50000"`
}

// Validate checks the request shape
func (r CompletionRequest) Validate() error {
	return utils.ValidateStruct(r)
}

// CompletionResult reports the node committed after a successful stream
type CompletionResult struct {
	NodeID   string `json:"node_id"`
	Response string `json:"response"`
}

// ChunkSink receives streamed response fragments as they arrive, for
// live display. It must not block for long; the stream stalls while it
// runs.
type ChunkSink func(chunk string)

// CompletionService drives a model completion for a new conversation
// turn. The new node is committed to the tree only after the stream
// finishes successfully; a mid-stream failure leaves the tree unchanged.
type CompletionService struct {
	repo      ports.TreeRepository
	provider  ports.CompletionProvider
	builder   *thread.Builder
	layout    *layout.Engine
	validator *validators.BlockValidator
	eventBus  ports.EventBus
	logger    *zap.Logger
}

// NewCompletionService creates a completion service
func NewCompletionService(
	repo ports.TreeRepository,
	provider ports.CompletionProvider,
	builder *thread.Builder,
	layoutEngine *layout.Engine,
	blockValidator *validators.BlockValidator,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *CompletionService {
	return &CompletionService{
		repo:      repo,
		provider:  provider,
		builder:   builder,
		layout:    layoutEngine,
		validator: blockValidator,
		eventBus:  eventBus,
		logger:    logger,
	}
}

// Complete builds the conversation context for the parent node, streams
// the model response through sink, and commits a prompt/response child
// node once the stream completes.
func (s *CompletionService) Complete(ctx context.Context, req CompletionRequest, sink ChunkSink) (*CompletionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	messages, parentID, err := s.buildContext(ctx, req)
	if err != nil {
		return nil, err
	}

	chunks, errs := s.provider.Stream(ctx, messages)

	var response strings.Builder
	for chunk := range chunks {
		if chunk.Content != "" {
			response.WriteString(chunk.Content)
			if sink != nil {
				sink(chunk.Content)
			}
		}
	}
	if streamErr := <-errs; streamErr != nil {
		return nil, pkgerrors.NewExternalError("completion", streamErr)
	}

	result := &CompletionResult{Response: response.String()}
	err = s.repo.Mutate(ctx, func(tree *aggregates.Tree) error {
		blocks, err := s.validator.ToBlocks([]validators.BlockInput{
			{Kind: string(valueobjects.KindPrompt), Content: req.Prompt},
			{Kind: string(valueobjects.KindResponse), Content: result.Response},
		})
		if err != nil {
			return err
		}
		node, err := tree.CreateNode(parentID, blocks)
		if err != nil {
			return err
		}
		tree.ApplyLayout(s.layout.ComputeLayout(tree))
		result.NodeID = node.ID().String()

		for _, event := range tree.GetUncommittedEvents() {
			if pubErr := s.eventBus.Publish(ctx, event); pubErr != nil {
				s.logger.Warn("failed to publish completion event", zap.Error(pubErr))
			}
		}
		tree.MarkEventsAsCommitted()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("completion committed",
		zap.String("node_id", result.NodeID),
		zap.Int("response_chars", len(result.Response)))
	return result, nil
}

// buildContext flattens the parent's thread into provider messages and
// appends the new prompt as the final user turn.
func (s *CompletionService) buildContext(ctx context.Context, req CompletionRequest) ([]ports.CompletionMessage, valueobjects.NodeID, error) {
	var parentID valueobjects.NodeID
	messages := []ports.CompletionMessage{}

	if req.ParentID != "" {
		var err error
		parentID, err = valueobjects.NewNodeIDFromString(req.ParentID)
		if err != nil {
			return nil, parentID, err
		}
		err = s.repo.View(ctx, func(tree *aggregates.Tree) error {
			threadMessages, err := s.builder.BuildThread(tree, parentID)
			if err != nil {
				return err
			}
			for _, m := range threadMessages {
				role := roleForKind(m.Kind)
				if role == "" {
					continue // notes are annotations, not conversation turns
				}
				messages = append(messages, ports.CompletionMessage{Role: role, Content: m.Content})
			}
			return nil
		})
		if err != nil {
			return nil, parentID, err
		}
	}

	messages = append(messages, ports.CompletionMessage{Role: "user", Content: req.Prompt})
	return messages, parentID, nil
}

func roleForKind(kind valueobjects.BlockKind) string {
	switch kind {
	case valueobjects.KindPrompt:
		return "user"
	case valueobjects.KindResponse:
		return "assistant"
	default:
		return ""
	}
}
