package action

import "github.com/homenode/zwave-go/pkg/serialapi"

// Encode converts an action into the command frame the controller expects.
// All membership commands are requests with a single mode byte.
func Encode(a Action) serialapi.CommandFrame {
	var mode uint8

	switch v := a.(type) {
	case InclusionStart:
		mode = AddNodeAny
		if v.HighPower {
			mode |= OptionHighPower
		}
		if v.NetworkWide {
			mode |= OptionNetworkWide
		}
	case InclusionStop:
		mode = AddNodeStop
	case ExclusionStart:
		mode = RemoveNodeAny
	case ExclusionStop:
		mode = RemoveNodeStop
	}

	return serialapi.CommandFrame{
		Function:  FunctionFor(a.Operation()),
		Direction: serialapi.DirectionRequest,
		Payload:   []byte{mode},
	}
}
