package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/homenode/zwave-go/pkg/handshake"
	"github.com/homenode/zwave-go/pkg/log"
	"github.com/homenode/zwave-go/pkg/persistence"
	"github.com/homenode/zwave-go/pkg/serialapi"
)

// Session errors.
var (
	ErrNotStarted     = errors.New("session not started")
	ErrAlreadyStarted = errors.New("session already started")
	ErrSessionClosed  = errors.New("session closed")
)

// Transport delivers command frames and status callbacks.
// Implemented by *transport.Conn and *connection.Link.
type Transport interface {
	// Send writes cf and waits for the controller to acknowledge it.
	Send(ctx context.Context, cf serialapi.CommandFrame) error

	// Frames returns the ordered stream of membership callbacks.
	Frames() <-chan serialapi.RawStatusFrame

	// Close releases the underlying port.
	Close() error
}

// State represents the session state.
type State uint8

const (
	// StateIdle - session created but not started.
	StateIdle State = iota

	// StateRunning - processing frames.
	StateRunning

	// StateStopped - stopped; the transport is closed.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Session.
type Config struct {
	// SessionID identifies the session in logs. A UUID is generated if empty.
	SessionID string

	// InclusionTimeout and ExclusionTimeout bound each handshake
	// (default: failsafe.DefaultDuration).
	InclusionTimeout time.Duration
	ExclusionTimeout time.Duration

	// StateStore persists the node registry. Optional.
	StateStore *persistence.NetworkStateStore

	// ProtocolLogger receives capture events. Optional.
	ProtocolLogger log.Logger

	// Logger is the operational logger. slog.Default() is used when nil.
	Logger *slog.Logger
}

// EventType identifies a session event.
type EventType uint8

const (
	// EventDeviceAdded - inclusion finished with a valid node id.
	EventDeviceAdded EventType = iota

	// EventDeviceRemoved - exclusion finished with a valid node id.
	EventDeviceRemoved

	// EventHandshakeFailed - the controller reported Failed.
	EventHandshakeFailed

	// EventHandshakeTimeout - the watchdog expired and Stop was sent.
	EventHandshakeTimeout

	// EventPhaseChanged - an operation moved to a new phase.
	EventPhaseChanged

	// EventTransportClosed - the status stream ended.
	EventTransportClosed
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
	case EventHandshakeTimeout:
		return "HANDSHAKE_TIMEOUT"
	case EventPhaseChanged:
		return "PHASE_CHANGED"
	case EventTransportClosed:
		return "TRANSPORT_CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Event represents a session event.
type Event struct {
	Type      EventType
	Operation handshake.Operation

	// NodeID is set for device events and node-carrying phase changes.
	NodeID serialapi.NodeID

	// Kind is the role the node joined with (DeviceAdded only).
	Kind persistence.NodeKind

	// From and To are set for EventPhaseChanged.
	From handshake.Phase
	To   handshake.Phase

	// Error is set when the event reports a failure to act (e.g. Stop not sent).
	Error error

	Time time.Time
}

// EventHandler handles session events. Handlers run on the processing
// goroutine and must not call DoAction synchronously.
type EventHandler func(Event)

// OperationStatus is the status of one operation.
type OperationStatus struct {
	handshake.State

	// Abandoned is true after a watchdog expiry until the next Start.
	Abandoned bool

	// Remaining is the watchdog time left (0 if not armed).
	Remaining time.Duration
}

// Status is a point-in-time view of the session.
type Status struct {
	SessionID  string
	State      State
	Operations map[handshake.Operation]OperationStatus
	NodeCount  int
}
