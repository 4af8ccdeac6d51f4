package serialapi

// FunctionID identifies a serial API function.
type FunctionID uint8

const (
	// FuncAddNodeToNetwork starts, stops and reports on inclusion.
	FuncAddNodeToNetwork FunctionID = 0x4A

	// FuncRemoveNodeFromNetwork starts, stops and reports on exclusion.
	FuncRemoveNodeFromNetwork FunctionID = 0x4B
)

// String returns the function name.
func (f FunctionID) String() string {
	switch f {
	case FuncAddNodeToNetwork:
		return "AddNodeToNetwork"
	case FuncRemoveNodeFromNetwork:
		return "RemoveNodeFromNetwork"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the function is one of the membership functions.
func (f FunctionID) IsValid() bool {
	return f == FuncAddNodeToNetwork || f == FuncRemoveNodeFromNetwork
}

// Direction is the serial API frame type.
type Direction uint8

const (
	// DirectionRequest marks a frame sent to, or unsolicited from, the controller.
	DirectionRequest Direction = 0x00

	// DirectionResponse marks the controller's immediate answer to a request.
	DirectionResponse Direction = 0x01
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionRequest:
		return "REQUEST"
	case DirectionResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the direction is a known frame type.
func (d Direction) IsValid() bool {
	return d == DirectionRequest || d == DirectionResponse
}
