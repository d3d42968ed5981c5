package branching

import (
	"time"

	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/domain/events"
	pkgerrors "loom-backend/pkg/errors"
)

// EditSource identifies which surface an edit came from. Both surfaces
// produce identical branch semantics; the source is recorded for history.
type EditSource string

const (
	SourceInlineEdit EditSource = "inline-edit"
	SourceChatEdit   EditSource = "chat-interface-edit"
)

// IsValidEditSource reports whether source is a known surface
func IsValidEditSource(source EditSource) bool {
	return source == SourceInlineEdit || source == SourceChatEdit
}

// BranchMetadata records one branch creation for the version history
type BranchMetadata struct {
	BranchID       valueobjects.BranchID `json:"branch_id"`
	OriginalNodeID valueobjects.NodeID   `json:"original_node_id"`
	BranchNodeID   valueobjects.NodeID   `json:"branch_node_id"`
	EditedBlockID  valueobjects.BlockID  `json:"edited_block_id"`
	Source         EditSource            `json:"source"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Result is what a successful branch creation returns
type Result struct {
	NewNode  valueobjects.NodeID
	Metadata BranchMetadata
}

// Engine creates branches from block edits. Editing a committed block
// never mutates the original node; it forks a sibling carrying the
// edited content, leaving the original and its descendants untouched.
type Engine struct{}

// NewEngine creates a branching engine
func NewEngine() *Engine {
	return &Engine{}
}

// CreateBranchFromEdit forks a sibling of originalID whose blocks mirror
// the original's except for blockID, which carries newContent. The new
// node starts as a leaf: the original's descendants represent the old
// conversation continuation and are deliberately not copied.
//
// The operation is atomic. Any failure leaves the tree exactly as it
// was and surfaces as a BranchCreationError.
func (e *Engine) CreateBranchFromEdit(
	tree *aggregates.Tree,
	originalID valueobjects.NodeID,
	blockID valueobjects.BlockID,
	newContent string,
	source EditSource,
) (*Result, error) {
	if !IsValidEditSource(source) {
		return nil, pkgerrors.NewValidationError("unknown edit source " + string(source))
	}

	original, err := tree.GetNode(originalID)
	if err != nil {
		return nil, err
	}

	blocks, err := original.CloneBlocksWithReplacement(blockID, newContent, tree.Config())
	if err != nil {
		if pkgerrors.IsBlockNotFound(err) {
			return nil, err
		}
		return nil, pkgerrors.NewBranchCreationError(err)
	}

	branchNode, err := tree.AttachSiblingNode(original.ParentID(), originalID, blocks)
	if err != nil {
		return nil, pkgerrors.NewBranchCreationError(err)
	}

	now := time.Now()
	meta := BranchMetadata{
		BranchID:       valueobjects.NewBranchID(),
		OriginalNodeID: originalID,
		BranchNodeID:   branchNode.ID(),
		EditedBlockID:  blockID,
		Source:         source,
		CreatedAt:      now,
	}

	tree.RaiseBranchCreated(events.NewBranchCreated(
		meta.BranchID.String(), originalID, branchNode.ID(), blockID, string(source), now))

	return &Result{NewNode: branchNode.ID(), Metadata: meta}, nil
}
