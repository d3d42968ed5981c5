package validators

import (
	"fmt"
	"strings"

	"loom-backend/domain/config"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/pkg/errors"
)

// BlockValidator validates block-related domain rules before they reach
// the aggregate. The aggregate re-checks structural rules; this catches
// request-shaped problems early with field-level detail.
type BlockValidator struct {
	cfg *config.TreeConfig
}

// NewBlockValidator creates a validator bound to a tree configuration
func NewBlockValidator(cfg *config.TreeConfig) *BlockValidator {
	if cfg == nil {
		cfg = config.DefaultTreeConfig()
	}
	return &BlockValidator{cfg: cfg}
}

// BlockInput is the pre-construction shape of a block as supplied by callers
type BlockInput struct {
	Kind    string
	Content string
}

// ValidateBlockInputs checks a caller-supplied block list as a whole
func (v *BlockValidator) ValidateBlockInputs(inputs []BlockInput) error {
	if len(inputs) > v.cfg.MaxBlocksPerNode {
		return errors.NewValidationError(
			fmt.Sprintf("a node cannot hold more than %d blocks", v.cfg.MaxBlocksPerNode))
	}
	for i, in := range inputs {
		if err := v.validateBlockInput(in); err != nil {
			if appErr := errors.GetAppError(err); appErr != nil {
				return appErr.WithDetails(map[string]interface{}{"block_index": i})
			}
			return err
		}
	}
	return nil
}

func (v *BlockValidator) validateBlockInput(in BlockInput) error {
	kind := valueobjects.BlockKind(strings.TrimSpace(in.Kind))
	if !valueobjects.IsValidBlockKind(kind) {
		return errors.NewValidationError(
			fmt.Sprintf("block kind must be one of prompt, response, note; got %q", in.Kind))
	}
	if !v.cfg.AllowEmptyBlockContent && strings.TrimSpace(in.Content) == "" {
		return errors.NewValidationError("block content cannot be empty")
	}
	return nil
}

// ValidateContent checks a bare content string for in-place updates
func (v *BlockValidator) ValidateContent(content string) error {
	if !v.cfg.AllowEmptyBlockContent && strings.TrimSpace(content) == "" {
		return errors.NewValidationError("block content cannot be empty")
	}
	return nil
}

// ToBlocks converts validated inputs into block value objects with
// sequential order indices.
func (v *BlockValidator) ToBlocks(inputs []BlockInput) ([]valueobjects.Block, error) {
	if err := v.ValidateBlockInputs(inputs); err != nil {
		return nil, err
	}
	blocks := make([]valueobjects.Block, 0, len(inputs))
	for i, in := range inputs {
		b, err := valueobjects.NewBlockWithConfig(
			valueobjects.BlockKind(strings.TrimSpace(in.Kind)), in.Content, i, v.cfg)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
