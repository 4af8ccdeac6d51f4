package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/homenode/zwave-go/pkg/log"
	"github.com/homenode/zwave-go/pkg/serialapi"
	"github.com/homenode/zwave-go/pkg/transport"
)

// Link errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrLinkClosed       = errors.New("link closed")
)

// State is the link state.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// OpenFunc opens the serial port.
type OpenFunc func(ctx context.Context) (io.ReadWriteCloser, error)

// Config configures a Link.
type Config struct {
	// Open opens the port. Required.
	Open OpenFunc

	// Port is the device name used in log events.
	Port string

	// Transport configures each transport.Conn.
	Transport transport.Config

	Backoff BackoffConfig

	// AutoReconnect reopens the port after it fails.
	AutoReconnect bool

	// OpenTimeout bounds one reopen attempt (default: 10s).
	OpenTimeout time.Duration

	// Logger receives port state events. Transport.Logger is used when nil.
	Logger log.Logger
}

// Link is a reconnecting serial API connection.
// It satisfies the session's Transport interface.
type Link struct {
	config  Config
	backoff *Backoff
	logger  log.Logger

	mu    sync.RWMutex
	state State
	conn  *transport.Conn

	frames chan serialapi.RawStatusFrame

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onStateChange func(oldState, newState State)
}

// NewLink creates a disconnected Link.
func NewLink(config Config) *Link {
	if config.OpenTimeout == 0 {
		config.OpenTimeout = 10 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = config.Transport.Logger
	}

	buffer := config.Transport.FrameBuffer
	if buffer == 0 {
		buffer = transport.DefaultFrameBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Link{
		config:  config,
		backoff: NewBackoff(config.Backoff),
		logger:  log.OrNoop(logger),
		frames:  make(chan serialapi.RawStatusFrame, buffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnStateChange registers a callback for state transitions.
// Set it before Connect.
func (l *Link) OnStateChange(fn func(oldState, newState State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStateChange = fn
}

// State returns the current state.
func (l *Link) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Connect opens the port once. Reconnection, if enabled, only starts after
// a successful Connect.
func (l *Link) Connect(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case StateConnected, StateConnecting, StateReconnecting:
		l.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		l.mu.Unlock()
		return ErrLinkClosed
	}
	t := l.transitionLocked(StateConnecting, "")
	l.mu.Unlock()
	l.notify(t)

	if err := l.open(ctx); err != nil {
		l.setState(StateDisconnected, err.Error())
		return err
	}
	return nil
}

// Send delivers cf on the current connection.
func (l *Link) Send(ctx context.Context, cf serialapi.CommandFrame) error {
	l.mu.RLock()
	conn, state := l.conn, l.state
	l.mu.RUnlock()

	if state == StateClosed {
		return ErrLinkClosed
	}
	if conn == nil || state != StateConnected {
		return ErrNotConnected
	}
	return conn.Send(ctx, cf)
}

// Frames returns the status frames of every connection, in order.
// The channel is closed by Close.
func (l *Link) Frames() <-chan serialapi.RawStatusFrame {
	return l.frames
}

// Close stops reconnection and closes the port.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return nil
	}
	conn := l.conn
	l.conn = nil
	t := l.transitionLocked(StateClosed, "")
	l.mu.Unlock()

	l.notify(t)
	l.cancel()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	l.wg.Wait()
	close(l.frames)
	return err
}

func (l *Link) open(ctx context.Context) error {
	port, err := l.config.Open(ctx)
	if err != nil {
		return fmt.Errorf("open port: %w", err)
	}

	conn := transport.NewConn(port, l.config.Transport)

	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		conn.Close()
		return ErrLinkClosed
	}
	l.conn = conn
	l.wg.Add(1)
	t := l.transitionLocked(StateConnected, "")
	l.mu.Unlock()

	l.backoff.Reset()
	l.notify(t)

	go l.forward(conn)
	return nil
}

// forward copies frames from conn until it ends, then reconnects.
func (l *Link) forward(conn *transport.Conn) {
	defer l.wg.Done()

	for f := range conn.Frames() {
		select {
		case l.frames <- f:
		case <-l.ctx.Done():
			return
		}
	}

	if l.ctx.Err() != nil {
		return
	}

	reason := "port closed"
	if err := conn.Err(); err != nil {
		reason = err.Error()
	}
	conn.Close()

	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
	}
	l.mu.Unlock()

	if !l.config.AutoReconnect {
		l.setState(StateDisconnected, reason)
		return
	}

	l.setState(StateReconnecting, reason)
	l.reconnect()
}

func (l *Link) reconnect() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-time.After(l.backoff.Next()):
		}

		ctx, cancel := context.WithTimeout(l.ctx, l.config.OpenTimeout)
		err := l.open(ctx)
		cancel()
		if err == nil || errors.Is(err, ErrLinkClosed) {
			return
		}

		l.logger.Log(log.Event{
			Timestamp: time.Now(),
			SessionID: l.config.Transport.SessionID,
			Layer:     log.LayerTransport,
			Category:  log.CategoryError,
			Port:      l.config.Port,
			Error:     &log.ErrorEventData{Layer: log.LayerTransport, Message: err.Error(), Context: "reopen port"},
		})
	}
}

type transition struct {
	from, to State
	reason   string
	fn       func(oldState, newState State)
}

// transitionLocked moves to newState. Closed is final. Caller holds l.mu.
func (l *Link) transitionLocked(newState State, reason string) transition {
	t := transition{from: l.state, to: l.state, reason: reason, fn: l.onStateChange}
	if l.state == StateClosed && newState != StateClosed {
		return t
	}
	l.state = newState
	t.to = newState
	return t
}

func (l *Link) setState(newState State, reason string) {
	l.mu.Lock()
	t := l.transitionLocked(newState, reason)
	l.mu.Unlock()
	l.notify(t)
}

func (l *Link) notify(t transition) {
	if t.from == t.to {
		return
	}

	l.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: l.config.Transport.SessionID,
		Layer:     log.LayerTransport,
		Category:  log.CategoryState,
		Port:      l.config.Port,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityPort,
			OldState: t.from.String(),
			NewState: t.to.String(),
			Reason:   t.reason,
		},
	})

	if t.fn != nil {
		t.fn(t.from, t.to)
	}
}
