package valueobjects

import (
	"fmt"
	"html"
	"unicode/utf8"

	"loom-backend/domain/config"
	pkgerrors "loom-backend/pkg/errors"
)

// BlockKind is the closed set of block content types.
// Rendering and validation match on it exhaustively.
type BlockKind string

const (
	KindPrompt   BlockKind = "prompt"
	KindResponse BlockKind = "response"
	KindNote     BlockKind = "note"
)

// Block is a value object for one typed unit of content inside a node.
// Blocks have no existence outside their owning node.
type Block struct {
	id        BlockID
	kind      BlockKind
	content   string
	order     int
	minimized bool
	width     float64 // 0 means auto
	height    float64 // 0 means auto
}

// NewBlock creates a block with validation using default configuration
func NewBlock(kind BlockKind, content string, order int) (Block, error) {
	return NewBlockWithConfig(kind, content, order, config.DefaultTreeConfig())
}

// NewBlockWithConfig creates a block with validation and configuration.
// Content is length-capped and HTML-escaped before storage so the stored
// representation is render-safe.
func NewBlockWithConfig(kind BlockKind, content string, order int, cfg *config.TreeConfig) (Block, error) {
	if cfg == nil {
		cfg = config.DefaultTreeConfig()
	}

	if !IsValidBlockKind(kind) {
		return Block{}, pkgerrors.NewValidationError(fmt.Sprintf("invalid block kind %q", kind))
	}

	if order < 0 {
		return Block{}, pkgerrors.NewValidationError("block order cannot be negative")
	}

	content, err := sanitizeContent(content, cfg)
	if err != nil {
		return Block{}, err
	}

	return Block{
		id:      NewBlockID(),
		kind:    kind,
		content: content,
		order:   order,
	}, nil
}

// ReconstructBlock rebuilds a block from stored data with its original identity
func ReconstructBlock(id BlockID, kind BlockKind, content string, order int, minimized bool, width, height float64) (Block, error) {
	if id.IsZero() {
		return Block{}, pkgerrors.NewValidationError("block ID cannot be empty")
	}
	if !IsValidBlockKind(kind) {
		return Block{}, pkgerrors.NewValidationError(fmt.Sprintf("invalid block kind %q", kind))
	}
	return Block{
		id:        id,
		kind:      kind,
		content:   content,
		order:     order,
		minimized: minimized,
		width:     width,
		height:    height,
	}, nil
}

// ID returns the block identifier
func (b Block) ID() BlockID {
	return b.id
}

// Kind returns the block's content type
func (b Block) Kind() BlockKind {
	return b.kind
}

// Content returns the stored (escaped) content
func (b Block) Content() string {
	return b.content
}

// Order returns the display order index within the owning node
func (b Block) Order() int {
	return b.order
}

// Minimized reports whether the block is presented minimized
func (b Block) Minimized() bool {
	return b.minimized
}

// Width returns the explicit width override, 0 for auto
func (b Block) Width() float64 {
	return b.width
}

// Height returns the explicit height override, 0 for auto
func (b Block) Height() float64 {
	return b.height
}

// IsEmpty checks if the block has no content
func (b Block) IsEmpty() bool {
	return b.content == ""
}

// Equals checks full value equality of two blocks
func (b Block) Equals(other Block) bool {
	return b.id.Equals(other.id) &&
		b.kind == other.kind &&
		b.content == other.content &&
		b.order == other.order &&
		b.minimized == other.minimized &&
		b.width == other.width &&
		b.height == other.height
}

// WithContent returns a copy of the block with replaced content,
// validated against the given configuration.
func (b Block) WithContent(content string, cfg *config.TreeConfig) (Block, error) {
	if cfg == nil {
		cfg = config.DefaultTreeConfig()
	}
	content, err := sanitizeContent(content, cfg)
	if err != nil {
		return Block{}, err
	}
	b.content = content
	return b, nil
}

// WithOrder returns a copy of the block with a new order index
func (b Block) WithOrder(order int) Block {
	b.order = order
	return b
}

// WithMinimized returns a copy of the block with the minimized flag set
func (b Block) WithMinimized(minimized bool) Block {
	b.minimized = minimized
	return b
}

// WithSize returns a copy of the block with explicit size overrides
func (b Block) WithSize(width, height float64) (Block, error) {
	if width < 0 || height < 0 {
		return Block{}, pkgerrors.NewValidationError("block size cannot be negative")
	}
	b.width = width
	b.height = height
	return b, nil
}

// IsValidBlockKind reports whether kind is in the closed set
func IsValidBlockKind(kind BlockKind) bool {
	switch kind {
	case KindPrompt, KindResponse, KindNote:
		return true
	default:
		return false
	}
}

// sanitizeContent caps and escapes content per configuration
func sanitizeContent(content string, cfg *config.TreeConfig) (string, error) {
	if content == "" && !cfg.AllowEmptyBlockContent {
		return "", pkgerrors.NewValidationError("block content cannot be empty")
	}
	if utf8.RuneCountInString(content) > cfg.MaxBlockContentLength {
		return "", pkgerrors.NewValidationError(
			fmt.Sprintf("block content exceeds maximum length of %d characters", cfg.MaxBlockContentLength))
	}
	if cfg.EscapeBlockContent {
		content = html.EscapeString(content)
	}
	return content, nil
}
