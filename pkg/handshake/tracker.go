package handshake

import (
	"time"

	"github.com/homenode/zwave-go/pkg/log"
	"github.com/homenode/zwave-go/pkg/serialapi"
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sends a protocol capture event for every processed frame.
func WithLogger(l log.Logger) Option {
	return func(t *Tracker) {
		t.logger = log.OrNoop(l)
	}
}

// WithSessionID stamps capture events with a session id.
func WithSessionID(id string) Option {
	return func(t *Tracker) {
		t.sessionID = id
	}
}

// Tracker follows the inclusion and exclusion handshakes.
type Tracker struct {
	states    [2]State
	logger    log.Logger
	sessionID string
}

// NewTracker creates a Tracker with both operations Idle.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{logger: log.NoopLogger{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Process applies one status frame and reports what happened.
func (t *Tracker) Process(f serialapi.RawStatusFrame) Outcome {
	op, ok := OperationFor(f.Function)
	if !ok {
		out := Outcome{Status: f.Status, Diagnostic: DiagUnhandledFunction}
		t.capture(f, out)
		return out
	}

	st := &t.states[op]
	out := Outcome{
		Operation: op,
		From:      st.Phase,
		To:        st.Phase,
		Status:    f.Status,
	}

	phase, ok := PhaseFor(op, f.Status)
	if !ok {
		out.Diagnostic = DiagUnrecognizedStatus
		t.capture(f, out)
		return out
	}

	out.To = phase
	out.Diagnostic = DiagPhaseChanged

	valid := false
	if carriesNodeID(op, phase) {
		out.NodeID = f.NodeID()
		valid = out.NodeID.Valid()
		if valid {
			st.LastNodeID = out.NodeID
		} else {
			out.Diagnostic = DiagNodeIDOutOfRange
		}
	}

	switch {
	case phase == PhaseFailed:
		out.Event = &Event{Type: EventHandshakeFailed, Operation: op}
	case op == OperationInclusion && phase == PhaseProtocolDone && valid:
		out.Event = &Event{Type: EventDeviceAdded, Operation: op, NodeID: out.NodeID}
	case op == OperationExclusion && phase == PhaseDone && valid:
		out.Event = &Event{Type: EventDeviceRemoved, Operation: op, NodeID: out.NodeID}
	}

	if phase.IsTerminal() {
		*st = State{Phase: PhaseIdle}
	} else {
		st.Phase = phase
	}

	t.capture(f, out)
	return out
}

// Phase returns the current phase of op.
func (t *Tracker) Phase(op Operation) Phase {
	if int(op) >= len(t.states) {
		return PhaseIdle
	}
	return t.states[op].Phase
}

// Reset returns op to Idle. Called when a new Start is issued.
func (t *Tracker) Reset(op Operation) {
	if int(op) >= len(t.states) {
		return
	}
	t.states[op] = State{Phase: PhaseIdle}
}

// Snapshot returns a copy of both operation states.
func (t *Tracker) Snapshot() map[Operation]State {
	return map[Operation]State{
		OperationInclusion: t.states[OperationInclusion],
		OperationExclusion: t.states[OperationExclusion],
	}
}

func (t *Tracker) capture(f serialapi.RawStatusFrame, out Outcome) {
	h := &log.HandshakeEvent{
		Status:     f.Status,
		NodeID:     uint8(out.NodeID),
		Diagnostic: out.Diagnostic.String(),
	}
	if out.Diagnostic == DiagUnhandledFunction {
		h.Operation = f.Function.String()
	} else {
		h.Operation = out.Operation.String()
		h.From = out.From.String()
		h.To = out.To.String()
	}
	if out.Event != nil {
		h.Lifecycle = out.Event.Type.String()
	}

	t.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: t.sessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerHandshake,
		Category:  log.CategoryState,
		Handshake: h,
	})
}
