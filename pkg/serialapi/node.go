package serialapi

import "strconv"

// NodeID is a Z-Wave node address.
type NodeID uint8

const (
	// MinNodeID is the lowest assignable node id.
	MinNodeID NodeID = 1

	// MaxNodeID is the highest assignable node id.
	MaxNodeID NodeID = 232
)

// Valid returns true if the id lies in [MinNodeID, MaxNodeID].
func (n NodeID) Valid() bool {
	return n >= MinNodeID && n <= MaxNodeID
}

// String returns the decimal node id.
func (n NodeID) String() string {
	return strconv.Itoa(int(n))
}
