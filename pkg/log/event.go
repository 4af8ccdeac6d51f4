package log

import (
	"time"

	"github.com/homenode/zwave-go/pkg/serialapi"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the controller session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates data flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Port is the serial device name, when known.
	Port string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Control     *ControlEvent     `cbor:"11,keyasint,omitempty"` // ACK/NAK/CAN
	Command     *CommandEvent     `cbor:"12,keyasint,omitempty"` // Outbound serial API command
	Status      *StatusEvent      `cbor:"13,keyasint,omitempty"` // Inbound membership callback
	Handshake   *HandshakeEvent   `cbor:"14,keyasint,omitempty"` // Tracker outcome
	StateChange *StateChangeEvent `cbor:"15,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"16,keyasint,omitempty"`
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates data from the controller.
	DirectionIn Direction = 0
	// DirectionOut indicates data to the controller.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the serial framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerSerialAPI is the decoded command/callback layer.
	LayerSerialAPI Layer = 1
	// LayerHandshake is the membership handshake tracker.
	LayerHandshake Layer = 2
	// LayerSession is the controller session.
	LayerSession Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerSerialAPI:
		return "SERIALAPI"
	case LayerHandshake:
		return "HANDSHAKE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a data frame or a decoded frame.
	CategoryMessage Category = 0
	// CategoryControl indicates a single-byte control frame.
	CategoryControl Category = 1
	// CategoryState indicates a state change or handshake transition.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes including SOF and checksum.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// ControlEvent captures a single-byte control frame.
type ControlEvent struct {
	// Type of control frame.
	Type ControlType `cbor:"1,keyasint"`

	// Attempt is the send attempt the control frame answered (1-based).
	Attempt int `cbor:"2,keyasint,omitempty"`
}

// ControlType indicates the type of control frame.
type ControlType uint8

const (
	// ControlACK acknowledges a data frame.
	ControlACK ControlType = 0
	// ControlNAK rejects a data frame (bad checksum).
	ControlNAK ControlType = 1
	// ControlCAN reports a collision; the frame must be resent.
	ControlCAN ControlType = 2
)

// String returns the control type name.
func (c ControlType) String() string {
	switch c {
	case ControlACK:
		return "ACK"
	case ControlNAK:
		return "NAK"
	case ControlCAN:
		return "CAN"
	default:
		return "UNKNOWN"
	}
}

// CommandEvent captures an outbound serial API command.
type CommandEvent struct {
	// Frame is the encoded command before the callback id is appended.
	Frame serialapi.CommandFrame `cbor:"1,keyasint"`

	// CallbackID is the id appended on the wire (0 if none).
	CallbackID uint8 `cbor:"2,keyasint,omitempty"`

	// Action is the verb form of the action that produced the frame.
	Action string `cbor:"3,keyasint,omitempty"`
}

// StatusEvent captures an inbound membership callback.
type StatusEvent struct {
	Frame serialapi.RawStatusFrame `cbor:"1,keyasint"`
}

// HandshakeEvent captures the outcome of processing one status frame.
type HandshakeEvent struct {
	// Operation is INCLUSION or EXCLUSION.
	Operation string `cbor:"1,keyasint"`

	// From is the phase before the frame.
	From string `cbor:"2,keyasint,omitempty"`

	// To is the phase after the frame.
	To string `cbor:"3,keyasint,omitempty"`

	// Status is the raw controller status byte.
	Status uint8 `cbor:"4,keyasint,omitempty"`

	// NodeID is the node id carried by the frame, if any.
	NodeID uint8 `cbor:"5,keyasint,omitempty"`

	// Diagnostic classifies the outcome (PHASE_CHANGED, UNRECOGNIZED_STATUS, ...).
	Diagnostic string `cbor:"6,keyasint,omitempty"`

	// Lifecycle is the emitted lifecycle event (DEVICE_ADDED, ...), if any.
	Lifecycle string `cbor:"7,keyasint,omitempty"`
}

// StateChangeEvent captures session, port and watchdog state changes.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityPort indicates a serial port state change.
	StateEntityPort StateEntity = 0
	// StateEntitySession indicates a session state change.
	StateEntitySession StateEntity = 1
	// StateEntityWatchdog indicates a handshake watchdog state change.
	StateEntityWatchdog StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityPort:
		return "PORT"
	case StateEntitySession:
		return "SESSION"
	case StateEntityWatchdog:
		return "WATCHDOG"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
