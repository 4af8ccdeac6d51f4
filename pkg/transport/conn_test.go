package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homenode/zwave-go/pkg/serialapi"
)

// fakeController is the controller end of an in-memory serial link.
type fakeController struct {
	t      *testing.T
	conn   net.Conn
	reader *FrameReader
	writer *FrameWriter
}

func newLink(t *testing.T, cfg Config) (*Conn, *fakeController) {
	t.Helper()
	host, ctrl := net.Pipe()

	c := NewConn(host, cfg)
	t.Cleanup(func() {
		c.Close()
		ctrl.Close()
	})

	return c, &fakeController{
		t:      t,
		conn:   ctrl,
		reader: NewFrameReader(ctrl),
		writer: NewFrameWriter(ctrl),
	}
}

func fastConfig() Config {
	return Config{
		AckTimeout: 200 * time.Millisecond,
		RetryBase:  time.Millisecond,
		RetryStep:  time.Millisecond,
	}
}

var startFrame = serialapi.CommandFrame{
	Function:  serialapi.FuncAddNodeToNetwork,
	Direction: serialapi.DirectionRequest,
	Payload:   []byte{0xC1, 0x01},
}

func (f *fakeController) expectData() Frame {
	f.t.Helper()
	frame, err := f.reader.ReadFrame()
	if err != nil {
		f.t.Errorf("controller read failed: %v", err)
	}
	return frame
}

func (f *fakeController) control(b byte) {
	if err := f.writer.WriteControl(b); err != nil {
		f.t.Errorf("controller write failed: %v", err)
	}
}

func (f *fakeController) callback(fn serialapi.FunctionID, payload ...byte) {
	if err := f.writer.WriteData(serialapi.CommandFrame{Function: fn, Direction: serialapi.DirectionRequest, Payload: payload}); err != nil {
		f.t.Errorf("controller write failed: %v", err)
	}
}

func TestSendAcked(t *testing.T) {
	c, ctrl := newLink(t, fastConfig())

	got := make(chan Frame, 1)
	go func() {
		got <- ctrl.expectData()
		ctrl.control(ACK)
	}()

	require.NoError(t, c.Send(context.Background(), startFrame))

	frame := <-got
	assert.Equal(t, serialapi.FuncAddNodeToNetwork, frame.Function)
	assert.Equal(t, []byte{0xC1, 0x01}, frame.Data)
}

func TestSendRetransmitsOnNAKAndCAN(t *testing.T) {
	c, ctrl := newLink(t, fastConfig())

	attempts := make(chan int, 1)
	go func() {
		ctrl.expectData()
		ctrl.control(NAK)
		ctrl.expectData()
		ctrl.control(CAN)
		ctrl.expectData()
		ctrl.control(ACK)
		attempts <- 3
	}()

	require.NoError(t, c.Send(context.Background(), startFrame))
	assert.Equal(t, 3, <-attempts)
}

func TestSendGivesUpAfterMaxAttempts(t *testing.T) {
	cfg := fastConfig()
	cfg.AckTimeout = 20 * time.Millisecond
	c, ctrl := newLink(t, cfg)

	seen := make(chan int, 1)
	go func() {
		n := 0
		for {
			if _, err := ctrl.reader.ReadFrame(); err != nil {
				seen <- n
				return
			}
			n++
		}
	}()

	err := c.Send(context.Background(), startFrame)
	assert.ErrorIs(t, err, ErrNoAck)

	ctrl.conn.Close()
	assert.Equal(t, MaxAttempts, <-seen)
}

func TestSendContextCancelled(t *testing.T) {
	cfg := fastConfig()
	cfg.AckTimeout = 5 * time.Second
	c, ctrl := newLink(t, cfg)

	go func() {
		ctrl.expectData()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := c.Send(ctx, startFrame)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInboundCallbackPublishedAndAcked(t *testing.T) {
	c, ctrl := newLink(t, fastConfig())

	acked := make(chan Frame, 1)
	go func() {
		ctrl.callback(serialapi.FuncAddNodeToNetwork, 0x01, 0x05, 0x0C, 0x00)
		f, _ := ctrl.reader.ReadFrame()
		acked <- f
	}()

	select {
	case status := <-c.Frames():
		assert.Equal(t, serialapi.FuncAddNodeToNetwork, status.Function)
		assert.Equal(t, uint8(1), status.CallbackID)
		assert.Equal(t, uint8(5), status.Status)
		assert.Equal(t, serialapi.NodeID(12), status.NodeID())
	case <-time.After(time.Second):
		t.Fatal("no status frame delivered")
	}

	f := <-acked
	assert.Equal(t, KindControl, f.Kind)
	assert.Equal(t, ACK, f.Control)
}

func TestInboundFramesKeepOrder(t *testing.T) {
	c, ctrl := newLink(t, fastConfig())

	go func() {
		for status := byte(1); status <= 6; status++ {
			ctrl.callback(serialapi.FuncRemoveNodeFromNetwork, 0x02, status, 0x09)
			ctrl.reader.ReadFrame()
		}
	}()

	for want := uint8(1); want <= 6; want++ {
		select {
		case status := <-c.Frames():
			assert.Equal(t, want, status.Status)
		case <-time.After(time.Second):
			t.Fatalf("status %d not delivered", want)
		}
	}
}

func TestInboundBadChecksumIsNAKed(t *testing.T) {
	c, ctrl := newLink(t, fastConfig())

	reply := make(chan Frame, 1)
	go func() {
		ctrl.conn.Write([]byte{0x01, 0x05, 0x00, 0x4A, 0x01, 0x01, 0x00})
		f, _ := ctrl.reader.ReadFrame()
		reply <- f
	}()

	f := <-reply
	assert.Equal(t, NAK, f.Control)

	select {
	case status := <-c.Frames():
		t.Fatalf("unexpected frame %v", status)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInboundOtherFunctionNotPublished(t *testing.T) {
	c, ctrl := newLink(t, fastConfig())

	go func() {
		ctrl.callback(serialapi.FunctionID(0x15), 0x01)
		ctrl.reader.ReadFrame()
		ctrl.callback(serialapi.FuncAddNodeToNetwork, 0x01, 0x01)
		ctrl.reader.ReadFrame()
	}()

	select {
	case status := <-c.Frames():
		assert.Equal(t, serialapi.FuncAddNodeToNetwork, status.Function)
	case <-time.After(time.Second):
		t.Fatal("membership frame not delivered")
	}
}

func TestReadErrorEndsConn(t *testing.T) {
	errCh := make(chan error, 1)
	cfg := fastConfig()
	cfg.OnError = func(err error) { errCh <- err }
	c, ctrl := newLink(t, cfg)

	ctrl.conn.Close()

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, io.EOF), "got %v", err)
	case <-time.After(time.Second):
		t.Fatal("OnError not called")
	}

	<-c.Done()
	_, open := <-c.Frames()
	assert.False(t, open)
	assert.ErrorIs(t, c.Err(), io.EOF)
}

func TestCloseStopsSend(t *testing.T) {
	c, _ := newLink(t, fastConfig())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, open := <-c.Frames()
	assert.False(t, open)
	assert.ErrorIs(t, c.Send(context.Background(), startFrame), ErrClosed)
}

func TestRetryDelay(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	assert.Equal(t, 1100*time.Millisecond, cfg.RetryDelay(1))
	assert.Equal(t, 2100*time.Millisecond, cfg.RetryDelay(2))
}
