package events

import (
	"time"

	"loom-backend/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Node events

// NodeCreated is raised when a new node is added to the tree
type NodeCreated struct {
	BaseEvent
	NodeID   valueobjects.NodeID `json:"node_id"`
	ParentID valueobjects.NodeID `json:"parent_id"`
	Depth    int                 `json:"depth"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(nodeID, parentID valueobjects.NodeID, depth int, timestamp time.Time) NodeCreated {
	return NodeCreated{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "node.created",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:   nodeID,
		ParentID: parentID,
		Depth:    depth,
	}
}

// NodeDeleted is raised when a leaf node is removed from the tree
type NodeDeleted struct {
	BaseEvent
	NodeID   valueobjects.NodeID `json:"node_id"`
	ParentID valueobjects.NodeID `json:"parent_id"`
}

// NewNodeDeleted creates a NodeDeleted event
func NewNodeDeleted(nodeID, parentID valueobjects.NodeID, timestamp time.Time) NodeDeleted {
	return NodeDeleted{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "node.deleted",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:   nodeID,
		ParentID: parentID,
	}
}

// BlockContentUpdated is raised when a block's content is replaced in place
type BlockContentUpdated struct {
	BaseEvent
	NodeID  valueobjects.NodeID  `json:"node_id"`
	BlockID valueobjects.BlockID `json:"block_id"`
}

// NewBlockContentUpdated creates a BlockContentUpdated event
func NewBlockContentUpdated(nodeID valueobjects.NodeID, blockID valueobjects.BlockID, timestamp time.Time) BlockContentUpdated {
	return BlockContentUpdated{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "block.content_updated",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:  nodeID,
		BlockID: blockID,
	}
}

// NodeDisplayChanged is raised on rename, collapse toggle, or block
// presentation changes (minimize, resize)
type NodeDisplayChanged struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
}

// NewNodeDisplayChanged creates a NodeDisplayChanged event
func NewNodeDisplayChanged(nodeID valueobjects.NodeID, timestamp time.Time) NodeDisplayChanged {
	return NodeDisplayChanged{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "node.display_changed",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID: nodeID,
	}
}

// Branch events

// BranchCreated is raised when an edit forks a sibling node
type BranchCreated struct {
	BaseEvent
	BranchID       string               `json:"branch_id"`
	OriginalNodeID valueobjects.NodeID  `json:"original_node_id"`
	BranchNodeID   valueobjects.NodeID  `json:"branch_node_id"`
	EditedBlockID  valueobjects.BlockID `json:"edited_block_id"`
	Source         string               `json:"source"`
}

// NewBranchCreated creates a BranchCreated event
func NewBranchCreated(branchID string, originalID, branchNodeID valueobjects.NodeID, blockID valueobjects.BlockID, source string, timestamp time.Time) BranchCreated {
	return BranchCreated{
		BaseEvent: BaseEvent{
			AggregateID: branchNodeID.String(),
			EventType:   "branch.created",
			Timestamp:   timestamp,
			Version:     1,
		},
		BranchID:       branchID,
		OriginalNodeID: originalID,
		BranchNodeID:   branchNodeID,
		EditedBlockID:  blockID,
		Source:         source,
	}
}

// Tree events

// TreeImported is raised when an imported snapshot replaces the live store
type TreeImported struct {
	BaseEvent
	TreeID    string `json:"tree_id"`
	NodeCount int    `json:"node_count"`
}

// NewTreeImported creates a TreeImported event
func NewTreeImported(treeID string, nodeCount int, timestamp time.Time) TreeImported {
	return TreeImported{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "tree.imported",
			Timestamp:   timestamp,
			Version:     1,
		},
		TreeID:    treeID,
		NodeCount: nodeCount,
	}
}

// LayoutRecomputed is raised after positions are reassigned following a
// structural change; the rendering layer re-paints on it
type LayoutRecomputed struct {
	BaseEvent
	TreeID    string `json:"tree_id"`
	NodeCount int    `json:"node_count"`
}

// NewLayoutRecomputed creates a LayoutRecomputed event
func NewLayoutRecomputed(treeID string, nodeCount int, timestamp time.Time) LayoutRecomputed {
	return LayoutRecomputed{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "layout.recomputed",
			Timestamp:   timestamp,
			Version:     1,
		},
		TreeID:    treeID,
		NodeCount: nodeCount,
	}
}
