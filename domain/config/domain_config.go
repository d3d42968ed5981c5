package config

// TreeConfig holds all configurable business rules and constraints
// for the conversation tree.
type TreeConfig struct {
	// Tree constraints
	MaxNodesPerTree  int
	MaxBlocksPerNode int

	// Block constraints
	MaxBlockContentLength int
	MaxNodeNameLength     int

	// Layout constants. Widths and heights are canvas units; positions
	// computed from these are owned exclusively by the layout engine.
	NodeWidth            float64
	NodeHeaderHeight     float64
	DefaultBlockHeight   float64
	MinimizedBlockHeight float64
	CollapsedNodeHeight  float64
	HSpacing             float64
	VSpacing             float64
	TopMargin            float64
	LeftMargin           float64

	// Validation settings
	AllowEmptyBlockContent bool
	EscapeBlockContent     bool
}

// DefaultTreeConfig returns the default tree configuration
func DefaultTreeConfig() *TreeConfig {
	return &TreeConfig{
		MaxNodesPerTree:  10000,
		MaxBlocksPerNode: 50,

		MaxBlockContentLength: 50000,
		MaxNodeNameLength:     200,

		NodeWidth:            320,
		NodeHeaderHeight:     36,
		DefaultBlockHeight:   120,
		MinimizedBlockHeight: 28,
		CollapsedNodeHeight:  44,
		HSpacing:             60,
		VSpacing:             80,
		TopMargin:            40,
		LeftMargin:           40,

		AllowEmptyBlockContent: true,
		EscapeBlockContent:     true,
	}
}

// ProductionTreeConfig returns production-specific configuration
func ProductionTreeConfig() *TreeConfig {
	cfg := DefaultTreeConfig()
	cfg.MaxNodesPerTree = 5000
	cfg.MaxBlockContentLength = 20000
	return cfg
}

// DevelopmentTreeConfig returns development-specific configuration
func DevelopmentTreeConfig() *TreeConfig {
	cfg := DefaultTreeConfig()
	cfg.MaxNodesPerTree = 100000
	return cfg
}

// LoadTreeConfig loads tree configuration based on environment
func LoadTreeConfig(environment string) *TreeConfig {
	switch environment {
	case "production":
		return ProductionTreeConfig()
	case "development":
		return DevelopmentTreeConfig()
	default:
		return DefaultTreeConfig()
	}
}
