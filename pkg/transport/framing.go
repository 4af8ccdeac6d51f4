package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/homenode/zwave-go/pkg/log"
	"github.com/homenode/zwave-go/pkg/serialapi"
)

// Frame bytes.
const (
	SOF byte = 0x01
	ACK byte = 0x06
	NAK byte = 0x15
	CAN byte = 0x18
)

// Framing constants.
const (
	// MinLength is the smallest LEN value (TYPE, FUNC, CHECKSUM).
	MinLength = 3

	// MaxDataSize is the largest DATA section a one-byte LEN can describe.
	MaxDataSize = 0xFF - MinLength

	// MaxLogFrameDataSize is the maximum frame data size included in logs.
	MaxLogFrameDataSize = 64
)

// Framing errors.
var (
	// ErrChecksum indicates a data frame whose checksum does not match.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrInvalidLength indicates a LEN byte below MinLength.
	ErrInvalidLength = errors.New("invalid frame length")

	// ErrUnexpectedByte indicates a byte that starts no known frame.
	ErrUnexpectedByte = errors.New("unexpected byte")

	// ErrPayloadTooLarge indicates a payload that does not fit one frame.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// FrameKind distinguishes control frames from data frames.
type FrameKind uint8

const (
	KindControl FrameKind = iota
	KindData
)

// Frame is one frame read from the link.
type Frame struct {
	Kind FrameKind

	// Control is ACK, NAK or CAN for control frames.
	Control byte

	// Data frame fields.
	Type     serialapi.Direction
	Function serialapi.FunctionID
	Data     []byte
}

// Checksum computes the data frame checksum over LEN, TYPE, FUNC and DATA.
func Checksum(b []byte) byte {
	sum := byte(0xFF)
	for _, v := range b {
		sum ^= v
	}
	return sum
}

// EncodeDataFrame serializes a command as a complete data frame.
func EncodeDataFrame(cf serialapi.CommandFrame) ([]byte, error) {
	if len(cf.Payload) > MaxDataSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(cf.Payload), MaxDataSize)
	}

	buf := make([]byte, 0, len(cf.Payload)+5)
	buf = append(buf, SOF, byte(MinLength+len(cf.Payload)), byte(cf.Direction), byte(cf.Function))
	buf = append(buf, cf.Payload...)
	buf = append(buf, Checksum(buf[1:]))
	return buf, nil
}

func controlType(b byte) log.ControlType {
	switch b {
	case NAK:
		return log.ControlNAK
	case CAN:
		return log.ControlCAN
	default:
		return log.ControlACK
	}
}

// FrameWriter writes frames to the port.
// Safe for concurrent use: the read loop writes ACK/NAK while Send writes data.
type FrameWriter struct {
	w  io.Writer
	mu sync.Mutex

	// Logging support (optional)
	logger    log.Logger
	sessionID string
}

// NewFrameWriter creates a new frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// SetLogger configures logging for this writer.
// Pass nil to disable logging.
func (fw *FrameWriter) SetLogger(logger log.Logger, sessionID string) {
	fw.logger = logger
	fw.sessionID = sessionID
}

// WriteData writes a command as a data frame.
func (fw *FrameWriter) WriteData(cf serialapi.CommandFrame) error {
	frame, err := EncodeDataFrame(cf)
	if err != nil {
		return err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write data frame: %w", err)
	}

	if fw.logger != nil {
		fw.logger.Log(makeFrameEvent(fw.sessionID, frame, log.DirectionOut))
	}
	return nil
}

// WriteControl writes a single ACK, NAK or CAN byte.
func (fw *FrameWriter) WriteControl(b byte) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write([]byte{b}); err != nil {
		return fmt.Errorf("failed to write control frame: %w", err)
	}

	if fw.logger != nil {
		fw.logger.Log(makeControlEvent(fw.sessionID, b, log.DirectionOut, 0))
	}
	return nil
}

// FrameReader reads frames from the port.
type FrameReader struct {
	r *bufio.Reader

	// Logging support (optional)
	logger    log.Logger
	sessionID string
}

// NewFrameReader creates a new frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// SetLogger configures logging for this reader.
// Pass nil to disable logging.
func (fr *FrameReader) SetLogger(logger log.Logger, sessionID string) {
	fr.logger = logger
	fr.sessionID = sessionID
}

// ReadFrame reads the next control or data frame. Only data frames are
// logged; the consumer of a control byte knows which attempt it answers.
//
// ErrUnexpectedByte and ErrInvalidLength consume only the offending bytes,
// so the caller may keep reading. On ErrChecksum the returned frame still
// carries the decoded fields.
func (fr *FrameReader) ReadFrame() (Frame, error) {
	b, err := fr.r.ReadByte()
	if err != nil {
		return Frame{}, err
	}

	switch b {
	case ACK, NAK, CAN:
		return Frame{Kind: KindControl, Control: b}, nil
	case SOF:
	default:
		return Frame{}, fmt.Errorf("%w: 0x%02X", ErrUnexpectedByte, b)
	}

	length, err := fr.r.ReadByte()
	if err != nil {
		return Frame{}, truncated(err)
	}
	if length < MinLength {
		return Frame{}, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	raw := make([]byte, 2+int(length))
	raw[0], raw[1] = SOF, length
	if _, err := io.ReadFull(fr.r, raw[2:]); err != nil {
		return Frame{}, truncated(err)
	}

	if fr.logger != nil {
		fr.logger.Log(makeFrameEvent(fr.sessionID, raw, log.DirectionIn))
	}

	body := raw[1 : len(raw)-1]
	frame := Frame{
		Kind:     KindData,
		Type:     serialapi.Direction(raw[2]),
		Function: serialapi.FunctionID(raw[3]),
		Data:     raw[4 : len(raw)-1],
	}
	if want, got := Checksum(body), raw[len(raw)-1]; want != got {
		return frame, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksum, got, want)
	}
	return frame, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrFrameTruncated
	}
	return fmt.Errorf("failed to read frame: %w", err)
}

// makeFrameEvent creates a log event for a raw data frame.
func makeFrameEvent(sessionID string, data []byte, direction log.Direction) log.Event {
	frameData := data
	isTruncated := false

	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		isTruncated = true
	}

	return log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: direction,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      len(data),
			Data:      frameData,
			Truncated: isTruncated,
		},
	}
}

// makeControlEvent creates a log event for a control byte.
func makeControlEvent(sessionID string, b byte, direction log.Direction, attempt int) log.Event {
	return log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: direction,
		Layer:     log.LayerTransport,
		Category:  log.CategoryControl,
		Control:   &log.ControlEvent{Type: controlType(b), Attempt: attempt},
	}
}
