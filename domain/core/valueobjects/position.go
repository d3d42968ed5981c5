package valueobjects

// Position is a value object for a node's canvas coordinates.
// Positions are owned exclusively by the layout engine; callers never
// set them directly.
type Position struct {
	x float64
	y float64
}

// NewPosition creates a position
func NewPosition(x, y float64) Position {
	return Position{x: x, y: y}
}

// X returns the horizontal coordinate (left edge of the node box)
func (p Position) X() float64 {
	return p.x
}

// Y returns the vertical coordinate (top edge of the node box)
func (p Position) Y() float64 {
	return p.y
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	return p.x == other.x && p.y == other.y
}
