package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homenode/zwave-go/pkg/action"
	"github.com/homenode/zwave-go/pkg/failsafe"
	"github.com/homenode/zwave-go/pkg/handshake"
	"github.com/homenode/zwave-go/pkg/log"
	"github.com/homenode/zwave-go/pkg/persistence"
	"github.com/homenode/zwave-go/pkg/serialapi"
)

type controlKind uint8

const (
	controlReset controlKind = iota
	controlExpire
)

// controlMsg is handled on the processing goroutine.
type controlMsg struct {
	kind controlKind
	op   handshake.Operation
	done chan struct{}
}

// Session drives inclusion and exclusion over a Transport.
type Session struct {
	mu sync.RWMutex

	config    Config
	transport Transport
	logger    *slog.Logger
	proto     log.Logger
	id        string
	state     State

	// Owned by the processing goroutine.
	tracker   *handshake.Tracker
	abandoned [2]bool
	lastKind  [2]persistence.NodeKind

	// Guarded by mu.
	snapshot   map[handshake.Operation]handshake.State
	gone       [2]bool
	network    *persistence.NetworkState
	handlers   []EventHandler
	callbackID uint8

	watchdogs [2]*failsafe.Timer
	control   chan controlMsg

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a session over t. The session takes ownership of t and
// closes it on Stop.
func New(cfg Config, t Transport) (*Session, error) {
	if t == nil {
		return nil, fmt.Errorf("session: nil transport")
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Session{
		config:    cfg,
		transport: t,
		id:        cfg.SessionID,
		logger:    cfg.Logger.With("session_id", cfg.SessionID),
		proto:     log.OrNoop(cfg.ProtocolLogger),
		state:     StateIdle,
		tracker: handshake.NewTracker(
			handshake.WithLogger(cfg.ProtocolLogger),
			handshake.WithSessionID(cfg.SessionID),
		),
		network: &persistence.NetworkState{Version: persistence.StateVersion},
		control: make(chan controlMsg),
		done:    make(chan struct{}),
	}
	s.snapshot = s.tracker.Snapshot()

	timeouts := [2]time.Duration{
		handshake.OperationInclusion: cfg.InclusionTimeout,
		handshake.OperationExclusion: cfg.ExclusionTimeout,
	}
	for _, op := range []handshake.Operation{handshake.OperationInclusion, handshake.OperationExclusion} {
		w, err := failsafe.NewTimer(op.String(), timeouts[op])
		if err != nil {
			return nil, fmt.Errorf("%s watchdog: %w", op, err)
		}
		w.OnExpire(func() { s.post(controlMsg{kind: controlExpire, op: op}) })
		w.OnStateChange(func(oldState, newState failsafe.State) {
			s.logStateChange(log.StateEntityWatchdog, oldState.String(), newState.String(), op.String())
		})
		s.watchdogs[op] = w
	}

	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnEvent registers an event handler.
func (s *Session) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start loads the node registry and begins processing status frames.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateRunning:
		s.mu.Unlock()
		return ErrAlreadyStarted
	case StateStopped:
		s.mu.Unlock()
		return ErrSessionClosed
	}

	if store := s.config.StateStore; store != nil {
		loaded, err := store.Load()
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("load network state: %w", err)
		}
		if loaded != nil {
			s.network = loaded
		}
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.state = StateRunning
	frames := s.transport.Frames()
	s.mu.Unlock()

	s.logStateChange(log.StateEntitySession, StateIdle.String(), StateRunning.String(), "")
	s.logger.Info("session started", "nodes", len(s.network.Nodes))

	go s.run(frames)
	return nil
}

// Stop stops processing, disarms the watchdogs and closes the transport.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopped
	s.mu.Unlock()

	s.cancel()
	for _, w := range s.watchdogs {
		w.Disarm()
	}
	err := s.transport.Close()
	<-s.done

	s.logStateChange(log.StateEntitySession, StateRunning.String(), StateStopped.String(), "")
	s.logger.Info("session stopped")
	return err
}

// Done is closed when the processing goroutine exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// DoAction encodes a and sends it to the controller. A Start action resets
// its operation and arms the watchdog; a Stop action disarms it. The
// returned frame is the encoded action without the callback id.
func (s *Session) DoAction(ctx context.Context, a action.Action) (serialapi.CommandFrame, error) {
	if s.State() != StateRunning {
		return serialapi.CommandFrame{}, ErrNotStarted
	}

	cf := action.Encode(a)
	op := a.Operation()

	if a.IsStart() {
		done := make(chan struct{})
		if !s.post(controlMsg{kind: controlReset, op: op, done: done}) {
			return cf, ErrNotStarted
		}
		select {
		case <-done:
		case <-ctx.Done():
			return cf, ctx.Err()
		case <-s.done:
			return cf, ErrNotStarted
		}
	}

	if err := s.send(ctx, a, cf); err != nil {
		return cf, err
	}

	w := s.watchdogs[op]
	if a.IsStart() {
		w.Arm()
	} else {
		w.Disarm()
	}
	s.logger.Info("action sent", "action", a.String(), "function", cf.Function.String())
	return cf, nil
}

// Nodes returns the registered nodes, sorted by id.
func (s *Session) Nodes() []persistence.NodeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.network.Nodes)
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		SessionID:  s.id,
		State:      s.state,
		Operations: make(map[handshake.Operation]OperationStatus, len(s.snapshot)),
		NodeCount:  len(s.network.Nodes),
	}
	for op, hs := range s.snapshot {
		st.Operations[op] = OperationStatus{
			State:     hs,
			Abandoned: s.gone[op],
			Remaining: s.watchdogs[op].Remaining(),
		}
	}
	return st
}

// send appends the next callback id to cf and writes it.
func (s *Session) send(ctx context.Context, a action.Action, cf serialapi.CommandFrame) error {
	s.mu.Lock()
	s.callbackID++
	if s.callbackID == 0 {
		s.callbackID = 1
	}
	cbID := s.callbackID
	s.mu.Unlock()

	wire := serialapi.CommandFrame{
		Function:  cf.Function,
		Direction: cf.Direction,
		Payload:   append(slices.Clone(cf.Payload), cbID),
	}

	s.proto.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Direction: log.DirectionOut,
		Layer:     log.LayerSerialAPI,
		Category:  log.CategoryMessage,
		Command: &log.CommandEvent{
			Frame:      cf,
			CallbackID: cbID,
			Action:     a.String(),
		},
	})

	if err := s.transport.Send(ctx, wire); err != nil {
		s.logError(fmt.Sprintf("send %s failed", a), err)
		return fmt.Errorf("send %s: %w", a, err)
	}
	return nil
}

// post delivers a control message unless the session has stopped.
func (s *Session) post(msg controlMsg) bool {
	select {
	case s.control <- msg:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) run(frames <-chan serialapi.RawStatusFrame) {
	defer close(s.done)

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.control:
			s.handleControl(msg)

		case f, ok := <-frames:
			if !ok {
				s.logger.Warn("status stream closed")
				s.emit(Event{Type: EventTransportClosed})
				return
			}
			s.handleFrame(f)
		}
	}
}

func (s *Session) handleControl(msg controlMsg) {
	switch msg.kind {
	case controlReset:
		s.watchdogs[msg.op].Disarm()
		s.tracker.Reset(msg.op)
		s.abandoned[msg.op] = false
		s.lastKind[msg.op] = ""
		s.publish()

	case controlExpire:
		// Disarmed or re-armed since the timer fired.
		if s.watchdogs[msg.op].State() != failsafe.StateExpired {
			break
		}
		s.tracker.Reset(msg.op)
		s.abandoned[msg.op] = true
		s.publish()

		s.logger.Warn("handshake timed out", "operation", msg.op.String())
		ev := Event{Type: EventHandshakeTimeout, Operation: msg.op}

		var stop action.Action = action.InclusionStop{}
		if msg.op == handshake.OperationExclusion {
			stop = action.ExclusionStop{}
		}
		if err := s.send(s.ctx, stop, action.Encode(stop)); err != nil {
			ev.Error = err
		}
		s.emit(ev)
	}

	if msg.done != nil {
		close(msg.done)
	}
}

func (s *Session) handleFrame(f serialapi.RawStatusFrame) {
	if op, ok := handshake.OperationFor(f.Function); ok && s.abandoned[op] {
		s.logger.Debug("dropping callback for abandoned operation",
			"operation", op.String(), "status", f.Status)
		return
	}

	out := s.tracker.Process(f)
	s.logOutcome(out)
	s.publish()

	if out.Diagnostic == handshake.DiagUnhandledFunction {
		return
	}
	op := out.Operation

	switch out.To {
	case handshake.PhaseAddingSlave:
		s.lastKind[op] = persistence.NodeKindSlave
	case handshake.PhaseAddingController:
		s.lastKind[op] = persistence.NodeKindController
	}

	if out.Changed() {
		s.emit(Event{
			Type:      EventPhaseChanged,
			Operation: op,
			NodeID:    out.NodeID,
			From:      out.From,
			To:        out.To,
		})
	}

	if out.To.IsTerminal() && out.Diagnostic != handshake.DiagUnrecognizedStatus {
		s.watchdogs[op].Disarm()
	}

	if out.Event == nil {
		return
	}

	switch out.Event.Type {
	case handshake.EventDeviceAdded:
		kind := s.lastKind[op]
		s.updateNetwork(func(n *persistence.NetworkState) {
			n.AddNode(persistence.NodeRecord{
				NodeID:    uint8(out.Event.NodeID),
				Kind:      kind,
				AddedAt:   time.Now(),
				SessionID: s.id,
			})
		})
		s.emit(Event{Type: EventDeviceAdded, Operation: op, NodeID: out.Event.NodeID, Kind: kind})

	case handshake.EventDeviceRemoved:
		s.updateNetwork(func(n *persistence.NetworkState) {
			n.RemoveNode(uint8(out.Event.NodeID))
		})
		s.emit(Event{Type: EventDeviceRemoved, Operation: op, NodeID: out.Event.NodeID})

	case handshake.EventHandshakeFailed:
		s.emit(Event{Type: EventHandshakeFailed, Operation: op})
	}
}

// publish copies the tracker state for Status.
func (s *Session) publish() {
	snap := s.tracker.Snapshot()
	s.mu.Lock()
	s.snapshot = snap
	s.gone = s.abandoned
	s.mu.Unlock()
}

// updateNetwork applies fn to the registry and saves it if a store is set.
func (s *Session) updateNetwork(fn func(*persistence.NetworkState)) {
	s.mu.Lock()
	fn(s.network)
	snapshot := s.network.Clone()
	s.mu.Unlock()

	store := s.config.StateStore
	if store == nil {
		return
	}
	if err := store.Save(snapshot); err != nil {
		s.logError("save network state failed", err)
	}
}

// emit delivers an event to every handler in registration order.
func (s *Session) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.mu.RLock()
	handlers := slices.Clone(s.handlers)
	s.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

func (s *Session) logOutcome(out handshake.Outcome) {
	attrs := []any{
		"operation", out.Operation.String(),
		"status", out.Status,
		"diagnostic", out.Diagnostic.String(),
	}
	if out.NodeID != 0 {
		attrs = append(attrs, "node_id", uint8(out.NodeID))
	}

	switch out.Diagnostic {
	case handshake.DiagUnrecognizedStatus, handshake.DiagUnhandledFunction:
		s.logger.Warn(out.Describe(), attrs...)
	case handshake.DiagNodeIDOutOfRange:
		s.logger.Debug(out.Describe(), attrs...)
	default:
		s.logger.Info(out.Describe(), attrs...)
	}
}

func (s *Session) logStateChange(entity log.StateEntity, oldState, newState, reason string) {
	s.proto.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Direction: log.DirectionOut,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (s *Session) logError(msg string, err error) {
	s.logger.Error(msg, "error", err)
	s.proto.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Direction: log.DirectionOut,
		Layer:     log.LayerSession,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSession,
			Message: msg,
			Context: err.Error(),
		},
	})
}
