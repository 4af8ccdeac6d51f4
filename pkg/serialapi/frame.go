package serialapi

import (
	"bytes"
	"errors"
	"fmt"
)

// NodeIDOffset is the index of the node id within RawStatusFrame.Extra.
const NodeIDOffset = 0

// Status frame errors.
var (
	// ErrShortStatusFrame indicates a callback payload without callback id and status.
	ErrShortStatusFrame = errors.New("status frame too short")

	// ErrUnknownFunction indicates a function outside the membership set.
	ErrUnknownFunction = errors.New("unknown function")
)

// CommandFrame is an encoded controller command ready for framing.
type CommandFrame struct {
	Function  FunctionID `cbor:"1,keyasint"`
	Direction Direction  `cbor:"2,keyasint"`
	Payload   []byte     `cbor:"3,keyasint,omitempty"`
}

// Equal reports whether two command frames are byte-identical.
func (c CommandFrame) Equal(other CommandFrame) bool {
	return c.Function == other.Function &&
		c.Direction == other.Direction &&
		bytes.Equal(c.Payload, other.Payload)
}

// String returns a compact representation for logs.
func (c CommandFrame) String() string {
	return fmt.Sprintf("%s/%s % X", c.Function, c.Direction, c.Payload)
}

// RawStatusFrame is one asynchronous status update from the controller.
type RawStatusFrame struct {
	Function   FunctionID `cbor:"1,keyasint"`
	CallbackID uint8      `cbor:"2,keyasint,omitempty"`
	Status     uint8      `cbor:"3,keyasint"`
	Extra      []byte     `cbor:"4,keyasint,omitempty"`
}

// ExtraByte returns Extra[i] and whether it was present.
func (r RawStatusFrame) ExtraByte(i int) (uint8, bool) {
	if i < 0 || i >= len(r.Extra) {
		return 0, false
	}
	return r.Extra[i], true
}

// NodeID returns the node id carried at NodeIDOffset, or 0 when absent.
func (r RawStatusFrame) NodeID() NodeID {
	b, _ := r.ExtraByte(NodeIDOffset)
	return NodeID(b)
}

// String returns a compact representation for logs.
func (r RawStatusFrame) String() string {
	return fmt.Sprintf("%s cb=%d status=%d extra=% X", r.Function, r.CallbackID, r.Status, r.Extra)
}

// ParseStatusFrame builds a RawStatusFrame from a membership callback payload.
// The payload is copied; the caller keeps ownership of its buffer.
func ParseStatusFrame(fn FunctionID, payload []byte) (RawStatusFrame, error) {
	if !fn.IsValid() {
		return RawStatusFrame{}, fmt.Errorf("%w: 0x%02X", ErrUnknownFunction, uint8(fn))
	}
	if len(payload) < 2 {
		return RawStatusFrame{}, fmt.Errorf("%w: %d bytes", ErrShortStatusFrame, len(payload))
	}

	frame := RawStatusFrame{
		Function:   fn,
		CallbackID: payload[0],
		Status:     payload[1],
	}
	if len(payload) > 2 {
		frame.Extra = make([]byte, len(payload)-2)
		copy(frame.Extra, payload[2:])
	}
	return frame, nil
}
