package handshake

import "fmt"

// Describe returns a human-readable line for operational logs.
func (o Outcome) Describe() string {
	switch o.Diagnostic {
	case DiagUnhandledFunction:
		return "Unhandled callback function"
	case DiagUnrecognizedStatus:
		return fmt.Sprintf("%s: Unknown request (%d)", o.prefix(), o.Status)
	}

	switch o.To {
	case PhaseLearnReady:
		return o.prefix() + ": Learn ready"
	case PhaseNodeFound:
		if o.Operation == OperationExclusion {
			return o.prefix() + ": Node found for removal"
		}
		return o.prefix() + ": New node found"
	case PhaseAddingSlave:
		return fmt.Sprintf("NODE %d: Adding device", o.NodeID)
	case PhaseAddingController:
		return fmt.Sprintf("NODE %d: Adding controller", o.NodeID)
	case PhaseRemovingSlave:
		return fmt.Sprintf("NODE %d: Removing device", o.NodeID)
	case PhaseRemovingController:
		return fmt.Sprintf("NODE %d: Removing controller", o.NodeID)
	case PhaseProtocolDone:
		return fmt.Sprintf("NODE %d: %s: Protocol done", o.NodeID, o.prefix())
	case PhaseDone:
		if o.Operation == OperationInclusion {
			return "Discovery: Finished"
		}
		return fmt.Sprintf("NODE %d: %s: Done", o.NodeID, o.prefix())
	case PhaseFailed:
		return o.prefix() + ": Failed"
	default:
		return o.prefix() + ": " + o.To.String()
	}
}

func (o Outcome) prefix() string {
	if o.Operation == OperationExclusion {
		return "Remove Node"
	}
	return "Add Node"
}
