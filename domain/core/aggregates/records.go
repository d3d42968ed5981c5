package aggregates

import (
	"fmt"
	"sort"
	"time"

	"loom-backend/domain/config"
	"loom-backend/domain/core/entities"
	"loom-backend/domain/core/valueobjects"
	pkgerrors "loom-backend/pkg/errors"
)

// BlockRecord is the serialized form of a block
type BlockRecord struct {
	ID        string  `json:"id" dynamodbav:"id"`
	Kind      string  `json:"kind" dynamodbav:"kind"`
	Content   string  `json:"content" dynamodbav:"content"`
	Order     int     `json:"order" dynamodbav:"order"`
	Minimized bool    `json:"minimized,omitempty" dynamodbav:"minimized"`
	Width     float64 `json:"width,omitempty" dynamodbav:"width"`
	Height    float64 `json:"height,omitempty" dynamodbav:"height"`
}

// NodeRecord is the serialized form of a node, self-contained enough to
// rebuild the full tree from a flat list.
type NodeRecord struct {
	ID        string        `json:"id" dynamodbav:"id"`
	ParentID  string        `json:"parent_id,omitempty" dynamodbav:"parent_id"`
	ChildIDs  []string      `json:"child_ids" dynamodbav:"child_ids"`
	Depth     int           `json:"depth" dynamodbav:"depth"`
	X         float64       `json:"x" dynamodbav:"x"`
	Y         float64       `json:"y" dynamodbav:"y"`
	Blocks    []BlockRecord `json:"blocks" dynamodbav:"blocks"`
	Name      string        `json:"name,omitempty" dynamodbav:"name"`
	Collapsed bool          `json:"collapsed,omitempty" dynamodbav:"collapsed"`
	CreatedAt time.Time     `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" dynamodbav:"updated_at"`
	Version   int           `json:"version" dynamodbav:"version"`
}

// TreeSnapshot is a complete serialized tree
type TreeSnapshot struct {
	TreeID    string       `json:"tree_id" dynamodbav:"tree_id"`
	RootIDs   []string     `json:"root_ids" dynamodbav:"root_ids"`
	Nodes     []NodeRecord `json:"nodes" dynamodbav:"nodes"`
	CreatedAt time.Time    `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" dynamodbav:"updated_at"`
}

// Export serializes the whole tree. Node records are sorted by ID so the
// output is deterministic for a given structure.
func (t *Tree) Export() TreeSnapshot {
	records := make([]NodeRecord, 0, len(t.nodes))
	for _, node := range t.nodes {
		records = append(records, toRecord(node))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	rootIDs := make([]string, 0, len(t.rootIDs))
	for _, id := range t.rootIDs {
		rootIDs = append(rootIDs, id.String())
	}

	return TreeSnapshot{
		TreeID:    t.id,
		RootIDs:   rootIDs,
		Nodes:     records,
		CreatedAt: t.createdAt,
		UpdatedAt: t.updatedAt,
	}
}

// ImportTree rebuilds a tree aggregate from a snapshot. The rebuilt tree
// is fully validated before being returned; a snapshot that encodes an
// inconsistent structure is rejected without side effects.
func ImportTree(snapshot TreeSnapshot, cfg *config.TreeConfig) (*Tree, error) {
	if cfg == nil {
		cfg = config.DefaultTreeConfig()
	}
	if len(snapshot.Nodes) > cfg.MaxNodesPerTree {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("snapshot holds %d nodes, more than the limit of %d",
				len(snapshot.Nodes), cfg.MaxNodesPerTree))
	}

	tree := NewTree(cfg)
	if snapshot.TreeID != "" {
		tree.id = snapshot.TreeID
	}
	if !snapshot.CreatedAt.IsZero() {
		tree.createdAt = snapshot.CreatedAt
	}
	if !snapshot.UpdatedAt.IsZero() {
		tree.updatedAt = snapshot.UpdatedAt
	}

	for _, rec := range snapshot.Nodes {
		node, err := fromRecord(rec, cfg)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "importing node %s", rec.ID)
		}
		if _, exists := tree.nodes[rec.ID]; exists {
			return nil, pkgerrors.NewTreeStructureError(
				fmt.Sprintf("snapshot lists node %s twice", rec.ID))
		}
		tree.nodes[rec.ID] = node
	}

	tree.rootIDs = make([]valueobjects.NodeID, 0, len(snapshot.RootIDs))
	for _, idStr := range snapshot.RootIDs {
		id, err := valueobjects.NewNodeIDFromString(idStr)
		if err != nil {
			return nil, pkgerrors.NewValidationError(
				fmt.Sprintf("invalid root ID %q in snapshot", idStr))
		}
		tree.rootIDs = append(tree.rootIDs, id)
	}

	if err := tree.ValidateIntegrity(); err != nil {
		return nil, err
	}
	return tree, nil
}

func toRecord(node *entities.Node) NodeRecord {
	blocks := node.Blocks()
	blockRecs := make([]BlockRecord, 0, len(blocks))
	for _, b := range blocks {
		blockRecs = append(blockRecs, BlockRecord{
			ID:        b.ID().String(),
			Kind:      string(b.Kind()),
			Content:   b.Content(),
			Order:     b.Order(),
			Minimized: b.Minimized(),
			Width:     b.Width(),
			Height:    b.Height(),
		})
	}

	childIDs := make([]string, 0, node.ChildCount())
	for _, id := range node.ChildIDs() {
		childIDs = append(childIDs, id.String())
	}

	return NodeRecord{
		ID:        node.ID().String(),
		ParentID:  node.ParentID().String(),
		ChildIDs:  childIDs,
		Depth:     node.Depth(),
		X:         node.Position().X(),
		Y:         node.Position().Y(),
		Blocks:    blockRecs,
		Name:      node.Name(),
		Collapsed: node.Collapsed(),
		CreatedAt: node.CreatedAt(),
		UpdatedAt: node.UpdatedAt(),
		Version:   node.Version(),
	}
}

func fromRecord(rec NodeRecord, cfg *config.TreeConfig) (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(rec.ID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid node ID %q", rec.ID))
	}

	var parentID valueobjects.NodeID
	if rec.ParentID != "" {
		parentID, err = valueobjects.NewNodeIDFromString(rec.ParentID)
		if err != nil {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid parent ID %q", rec.ParentID))
		}
	}

	childIDs := make([]valueobjects.NodeID, 0, len(rec.ChildIDs))
	for _, childStr := range rec.ChildIDs {
		childID, err := valueobjects.NewNodeIDFromString(childStr)
		if err != nil {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid child ID %q", childStr))
		}
		childIDs = append(childIDs, childID)
	}

	if len(rec.Blocks) > cfg.MaxBlocksPerNode {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("node holds %d blocks, more than the limit of %d",
				len(rec.Blocks), cfg.MaxBlocksPerNode))
	}
	blocks := make([]valueobjects.Block, 0, len(rec.Blocks))
	for _, br := range rec.Blocks {
		blockID, err := valueobjects.NewBlockIDFromString(br.ID)
		if err != nil {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid block ID %q", br.ID))
		}
		block, err := valueobjects.ReconstructBlock(
			blockID, valueobjects.BlockKind(br.Kind), br.Content, br.Order, br.Minimized, br.Width, br.Height)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	// Snapshot array order is not trusted; the order index is.
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Order() < blocks[j].Order() })

	return entities.ReconstructNode(
		id, parentID, childIDs, rec.Depth,
		valueobjects.NewPosition(rec.X, rec.Y),
		blocks, rec.Name, rec.Collapsed,
		rec.CreatedAt, rec.UpdatedAt, rec.Version,
	)
}
