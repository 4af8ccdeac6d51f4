package handshake

import (
	"github.com/homenode/zwave-go/pkg/action"
	"github.com/homenode/zwave-go/pkg/serialapi"
)

// Operation identifies the membership operation a frame belongs to.
type Operation = action.Operation

const (
	OperationInclusion = action.OperationInclusion
	OperationExclusion = action.OperationExclusion
)

// OperationFor maps a serial API function to its operation.
func OperationFor(fn serialapi.FunctionID) (Operation, bool) {
	switch fn {
	case serialapi.FuncAddNodeToNetwork:
		return OperationInclusion, true
	case serialapi.FuncRemoveNodeFromNetwork:
		return OperationExclusion, true
	default:
		return 0, false
	}
}

// Phase is the position of an operation within its handshake.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseLearnReady
	PhaseNodeFound
	PhaseAddingSlave
	PhaseAddingController
	PhaseRemovingSlave
	PhaseRemovingController
	PhaseProtocolDone
	PhaseDone
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseLearnReady:
		return "LEARN_READY"
	case PhaseNodeFound:
		return "NODE_FOUND"
	case PhaseAddingSlave:
		return "ADDING_SLAVE"
	case PhaseAddingController:
		return "ADDING_CONTROLLER"
	case PhaseRemovingSlave:
		return "REMOVING_SLAVE"
	case PhaseRemovingController:
		return "REMOVING_CONTROLLER"
	case PhaseProtocolDone:
		return "PROTOCOL_DONE"
	case PhaseDone:
		return "DONE"
	case PhaseFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal returns true for phases that end an attempt.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Controller status bytes for inclusion callbacks.
const (
	AddStatusLearnReady       uint8 = 1
	AddStatusNodeFound        uint8 = 2
	AddStatusAddingSlave      uint8 = 3
	AddStatusAddingController uint8 = 4
	AddStatusProtocolDone     uint8 = 5
	AddStatusDone             uint8 = 6
	AddStatusFailed           uint8 = 7
)

// Controller status bytes for exclusion callbacks. There is no protocol-done
// step; 5 is not a valid exclusion status.
const (
	RemoveStatusLearnReady         uint8 = 1
	RemoveStatusNodeFound          uint8 = 2
	RemoveStatusRemovingSlave      uint8 = 3
	RemoveStatusRemovingController uint8 = 4
	RemoveStatusDone               uint8 = 6
	RemoveStatusFailed             uint8 = 7
)

var inclusionPhases = map[uint8]Phase{
	AddStatusLearnReady:       PhaseLearnReady,
	AddStatusNodeFound:        PhaseNodeFound,
	AddStatusAddingSlave:      PhaseAddingSlave,
	AddStatusAddingController: PhaseAddingController,
	AddStatusProtocolDone:     PhaseProtocolDone,
	AddStatusDone:             PhaseDone,
	AddStatusFailed:           PhaseFailed,
}

var exclusionPhases = map[uint8]Phase{
	RemoveStatusLearnReady:         PhaseLearnReady,
	RemoveStatusNodeFound:          PhaseNodeFound,
	RemoveStatusRemovingSlave:      PhaseRemovingSlave,
	RemoveStatusRemovingController: PhaseRemovingController,
	RemoveStatusDone:               PhaseDone,
	RemoveStatusFailed:             PhaseFailed,
}

// PhaseFor maps a status byte to a phase for op.
func PhaseFor(op Operation, status uint8) (Phase, bool) {
	var p Phase
	var ok bool
	switch op {
	case OperationInclusion:
		p, ok = inclusionPhases[status]
	case OperationExclusion:
		p, ok = exclusionPhases[status]
	}
	return p, ok
}

// carriesNodeID reports whether frames for phase p of op include a node id.
func carriesNodeID(op Operation, p Phase) bool {
	switch op {
	case OperationInclusion:
		return p == PhaseAddingSlave || p == PhaseAddingController || p == PhaseProtocolDone
	case OperationExclusion:
		return p == PhaseRemovingSlave || p == PhaseRemovingController || p == PhaseDone
	default:
		return false
	}
}

// Diagnostic classifies the outcome of processing one frame.
type Diagnostic uint8

const (
	// DiagPhaseChanged indicates a recognized status was applied.
	DiagPhaseChanged Diagnostic = iota

	// DiagUnrecognizedStatus indicates a status byte outside the table; phase unchanged.
	DiagUnrecognizedStatus

	// DiagNodeIDOutOfRange indicates a node-carrying phase with a placeholder id.
	DiagNodeIDOutOfRange

	// DiagUnhandledFunction indicates a frame for a non-membership function.
	DiagUnhandledFunction
)

// String returns the diagnostic name.
func (d Diagnostic) String() string {
	switch d {
	case DiagPhaseChanged:
		return "PHASE_CHANGED"
	case DiagUnrecognizedStatus:
		return "UNRECOGNIZED_STATUS"
	case DiagNodeIDOutOfRange:
		return "NODE_ID_OUT_OF_RANGE"
	case DiagUnhandledFunction:
		return "UNHANDLED_FUNCTION"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies a lifecycle event.
type EventType uint8

const (
	// EventDeviceAdded is emitted at inclusion ProtocolDone with a valid node id.
	EventDeviceAdded EventType = iota + 1

	// EventDeviceRemoved is emitted at exclusion Done with a valid node id.
	EventDeviceRemoved

	// EventHandshakeFailed is emitted when the controller reports Failed.
	EventHandshakeFailed
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventDeviceAdded:
		return "DEVICE_ADDED"
	case EventDeviceRemoved:
		return "DEVICE_REMOVED"
	case EventHandshakeFailed:
		return "HANDSHAKE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event is a lifecycle signal for the caller.
type Event struct {
	Type      EventType
	Operation Operation

	// NodeID is set for DeviceAdded and DeviceRemoved.
	NodeID serialapi.NodeID
}

// Outcome describes what processing one frame did.
type Outcome struct {
	Operation Operation

	// From is the phase before the frame; To is the phase the frame reported.
	// After Done or Failed the tracker itself is back at Idle.
	From Phase
	To   Phase

	// Status is the raw status byte.
	Status uint8

	// NodeID is the id carried by node-carrying phases, valid or not.
	NodeID serialapi.NodeID

	// Event is the lifecycle event, if any.
	Event *Event

	Diagnostic Diagnostic
}

// Changed returns true if the frame moved the operation to a new phase.
func (o Outcome) Changed() bool {
	return o.Diagnostic != DiagUnrecognizedStatus &&
		o.Diagnostic != DiagUnhandledFunction &&
		o.From != o.To
}

// State is the tracked state of one operation.
type State struct {
	Phase Phase

	// LastNodeID is the last valid node id seen in the current attempt.
	LastNodeID serialapi.NodeID
}
