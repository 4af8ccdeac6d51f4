// Package action encodes controller membership intents into serial API
// command frames.
//
// Encoding is pure: the same action always yields a byte-identical frame,
// and every call allocates a fresh payload.
package action

import "github.com/homenode/zwave-go/pkg/serialapi"

// Mode bytes sent as the first payload byte of a membership request.
const (
	// AddNodeAny asks the controller to accept any node type for inclusion.
	AddNodeAny uint8 = 0x01

	// AddNodeStop ends a running inclusion.
	AddNodeStop uint8 = 0x05

	// RemoveNodeAny asks the controller to remove any node type.
	RemoveNodeAny uint8 = 0x01

	// RemoveNodeStop ends a running exclusion.
	RemoveNodeStop uint8 = 0x05
)

// Option bits OR-ed into the inclusion start mode byte.
const (
	OptionHighPower   uint8 = 0x80
	OptionNetworkWide uint8 = 0x40
)

// Operation is the membership operation an action belongs to.
type Operation uint8

const (
	OperationInclusion Operation = iota
	OperationExclusion
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OperationInclusion:
		return "INCLUSION"
	case OperationExclusion:
		return "EXCLUSION"
	default:
		return "UNKNOWN"
	}
}

// Action is a controller membership intent.
// The set of implementations is closed to this package.
type Action interface {
	// Operation returns the membership operation the action drives.
	Operation() Operation

	// IsStart returns true for actions that begin an operation.
	IsStart() bool

	// String returns the shell verb form of the action.
	String() string

	sealed()
}

// InclusionStart begins adding a device to the network.
type InclusionStart struct {
	// HighPower transmits at full power instead of the low-power default.
	HighPower bool

	// NetworkWide lets nodes join through routing rather than only in direct range.
	NetworkWide bool
}

// InclusionStop ends a running inclusion.
type InclusionStop struct{}

// ExclusionStart begins removing a device from the network.
type ExclusionStart struct{}

// ExclusionStop ends a running exclusion.
type ExclusionStop struct{}

func (InclusionStart) Operation() Operation { return OperationInclusion }
func (InclusionStop) Operation() Operation  { return OperationInclusion }
func (ExclusionStart) Operation() Operation { return OperationExclusion }
func (ExclusionStop) Operation() Operation  { return OperationExclusion }

func (InclusionStart) IsStart() bool { return true }
func (InclusionStop) IsStart() bool  { return false }
func (ExclusionStart) IsStart() bool { return true }
func (ExclusionStop) IsStart() bool  { return false }

func (a InclusionStart) String() string {
	s := VerbInclude
	if a.HighPower {
		s += " " + WordHighPower
	}
	if a.NetworkWide {
		s += " " + WordNetworkWide
	}
	return s
}
func (InclusionStop) String() string  { return VerbIncludeStop }
func (ExclusionStart) String() string { return VerbExclude }
func (ExclusionStop) String() string  { return VerbExcludeStop }

func (InclusionStart) sealed() {}
func (InclusionStop) sealed()  {}
func (ExclusionStart) sealed() {}
func (ExclusionStop) sealed()  {}

// Compile-time interface checks.
var (
	_ Action = InclusionStart{}
	_ Action = InclusionStop{}
	_ Action = ExclusionStart{}
	_ Action = ExclusionStop{}
)

// FunctionFor returns the serial API function that carries an operation.
func FunctionFor(op Operation) serialapi.FunctionID {
	if op == OperationExclusion {
		return serialapi.FuncRemoveNodeFromNetwork
	}
	return serialapi.FuncAddNodeToNetwork
}
