package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// NodeID is a value object representing a unique node identifier
// Value objects are immutable and have no identity beyond their value
type NodeID struct {
	value string
}

// NewNodeID creates a new random NodeID
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// NewNodeIDFromString creates a NodeID from an existing string
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return NodeID{}, errors.New("node ID must be a valid UUID")
	}
	return NodeID{value: id}, nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value.
// The zero NodeID is used as the parent of root nodes.
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	if id.value == "" {
		return []byte("null"), nil
	}
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("NodeID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// BlockID identifies a block within its owning node
type BlockID struct {
	value string
}

// NewBlockID creates a new random BlockID
func NewBlockID() BlockID {
	return BlockID{value: uuid.New().String()}
}

// NewBlockIDFromString creates a BlockID from an existing string
func NewBlockIDFromString(id string) (BlockID, error) {
	if id == "" {
		return BlockID{}, errors.New("block ID cannot be empty")
	}
	return BlockID{value: id}, nil
}

// String returns the string representation of the BlockID
func (id BlockID) String() string {
	return id.value
}

// Equals checks if two BlockIDs are equal
func (id BlockID) Equals(other BlockID) bool {
	return id.value == other.value
}

// IsZero checks if the BlockID is the zero value
func (id BlockID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id BlockID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *BlockID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("BlockID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// BranchID identifies a recorded branch in the version history
type BranchID struct {
	value string
}

// NewBranchID creates a new random BranchID
func NewBranchID() BranchID {
	return BranchID{value: uuid.New().String()}
}

// String returns the string representation of the BranchID
func (id BranchID) String() string {
	return id.value
}

// Equals checks if two BranchIDs are equal
func (id BranchID) Equals(other BranchID) bool {
	return id.value == other.value
}
