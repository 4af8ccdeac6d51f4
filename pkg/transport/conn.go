package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/homenode/zwave-go/pkg/log"
	"github.com/homenode/zwave-go/pkg/serialapi"
)

// Delivery defaults.
const (
	// MaxAttempts is the number of times a data frame is sent before giving up.
	MaxAttempts = 3

	// DefaultAckTimeout is how long to wait for ACK after a data frame.
	DefaultAckTimeout = 1600 * time.Millisecond

	// DefaultRetryBase and DefaultRetryStep give the wait before attempt n+1
	// as RetryBase + n*RetryStep.
	DefaultRetryBase = 100 * time.Millisecond
	DefaultRetryStep = time.Second

	// DefaultFrameBuffer is the capacity of the callback channel.
	DefaultFrameBuffer = 64
)

// Conn errors.
var (
	// ErrNoAck indicates the controller never acknowledged a frame.
	ErrNoAck = errors.New("no ACK from controller")

	// ErrClosed indicates the connection has been closed.
	ErrClosed = errors.New("connection closed")
)

// Config configures a Conn.
type Config struct {
	// AckTimeout is the ACK wait per attempt (default: 1.6s).
	AckTimeout time.Duration

	// MaxAttempts overrides the number of send attempts (default: 3).
	MaxAttempts int

	// RetryBase and RetryStep shape the wait between attempts.
	RetryBase time.Duration
	RetryStep time.Duration

	// FrameBuffer is the capacity of the Frames channel (default: 64).
	FrameBuffer int

	// Logger receives transport and serial API capture events.
	Logger log.Logger

	// SessionID stamps capture events.
	SessionID string

	// OnError is called with read loop errors that end the connection.
	OnError func(error)
}

func (c *Config) applyDefaults() {
	if c.AckTimeout == 0 {
		c.AckTimeout = DefaultAckTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = MaxAttempts
	}
	if c.RetryBase == 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.RetryStep == 0 {
		c.RetryStep = DefaultRetryStep
	}
	if c.FrameBuffer == 0 {
		c.FrameBuffer = DefaultFrameBuffer
	}
	c.Logger = log.OrNoop(c.Logger)
}

// RetryDelay returns the wait before the attempt following attempt n (1-based).
func (c Config) RetryDelay(n int) time.Duration {
	return c.RetryBase + time.Duration(n)*c.RetryStep
}

// Conn is a serial API link over an open port.
type Conn struct {
	config Config
	port   io.ReadWriteCloser
	writer *FrameWriter
	reader *FrameReader

	// One data frame in flight at a time.
	sendMu sync.Mutex
	ackCh  chan byte

	frames chan serialapi.RawStatusFrame

	closeOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// NewConn wraps an open port and starts the read loop.
func NewConn(port io.ReadWriteCloser, config Config) *Conn {
	config.applyDefaults()

	c := &Conn{
		config:  config,
		port:    port,
		writer:  NewFrameWriter(port),
		reader:  NewFrameReader(port),
		ackCh:   make(chan byte, 1),
		frames:  make(chan serialapi.RawStatusFrame, config.FrameBuffer),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	c.writer.SetLogger(config.Logger, config.SessionID)
	c.reader.SetLogger(config.Logger, config.SessionID)

	go c.readLoop()
	return c
}

// Send writes cf as a data frame and waits for the controller's ACK,
// retransmitting on NAK, CAN or timeout.
func (c *Conn) Send(ctx context.Context, cf serialapi.CommandFrame) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		select {
		case <-c.closeCh:
			return ErrClosed
		default:
		}

		// Drop a stale control byte from an earlier attempt.
		select {
		case <-c.ackCh:
		default:
		}

		if err := c.writer.WriteData(cf); err != nil {
			return err
		}

		timer := time.NewTimer(c.config.AckTimeout)
		select {
		case b := <-c.ackCh:
			timer.Stop()
			c.config.Logger.Log(makeControlEvent(c.config.SessionID, b, log.DirectionIn, attempt))
			if b == ACK {
				return nil
			}
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-c.closeCh:
			timer.Stop()
			return ErrClosed
		}

		if attempt == c.config.MaxAttempts {
			break
		}

		wait := time.NewTimer(c.config.RetryDelay(attempt))
		select {
		case <-wait.C:
		case <-ctx.Done():
			wait.Stop()
			return ctx.Err()
		case <-c.closeCh:
			wait.Stop()
			return ErrClosed
		}
	}

	return fmt.Errorf("%w: %s after %d attempts", ErrNoAck, cf.Function, c.config.MaxAttempts)
}

// Frames returns the ordered stream of membership callbacks.
// The channel is closed when the read loop ends.
func (c *Conn) Frames() <-chan serialapi.RawStatusFrame {
	return c.frames
}

// Err returns the error that ended the read loop, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the read loop has exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close closes the port and waits for the read loop to exit.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.port.Close()
		<-c.done
	})
	return err
}

func (c *Conn) closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// readLoop reads frames until the port fails or is closed.
func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.frames)

	for {
		frame, err := c.reader.ReadFrame()
		if err != nil {
			switch {
			case errors.Is(err, ErrChecksum):
				_ = c.writer.WriteControl(NAK)
				continue
			case errors.Is(err, ErrUnexpectedByte), errors.Is(err, ErrInvalidLength):
				continue
			}

			if c.closed() {
				return
			}
			c.fail(err)
			return
		}

		if frame.Kind == KindControl {
			select {
			case c.ackCh <- frame.Control:
			default:
				c.config.Logger.Log(makeControlEvent(c.config.SessionID, frame.Control, log.DirectionIn, 0))
			}
			continue
		}

		if err := c.writer.WriteControl(ACK); err != nil && !c.closed() {
			c.fail(err)
			return
		}

		if !c.dispatch(frame) {
			return
		}
	}
}

// dispatch publishes membership callbacks. It returns false once closed.
func (c *Conn) dispatch(frame Frame) bool {
	if frame.Type != serialapi.DirectionRequest || !frame.Function.IsValid() {
		return true
	}

	status, err := serialapi.ParseStatusFrame(frame.Function, frame.Data)
	if err != nil {
		c.config.Logger.Log(log.Event{
			Timestamp: time.Now(),
			SessionID: c.config.SessionID,
			Direction: log.DirectionIn,
			Layer:     log.LayerSerialAPI,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Layer: log.LayerSerialAPI, Message: err.Error(), Context: "parse callback"},
		})
		return true
	}

	c.config.Logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.config.SessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerSerialAPI,
		Category:  log.CategoryMessage,
		Status:    &log.StatusEvent{Frame: status},
	})

	select {
	case c.frames <- status:
		return true
	case <-c.closeCh:
		return false
	}
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()

	if c.config.OnError != nil {
		c.config.OnError(fmt.Errorf("read error: %w", err))
	}
}
