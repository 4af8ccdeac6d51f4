package transport

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/homenode/zwave-go/pkg/log"
	"github.com/homenode/zwave-go/pkg/serialapi"
)

type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLogger) snapshot() []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]log.Event, len(c.events))
	copy(out, c.events)
	return out
}

func TestEncodeDataFrame(t *testing.T) {
	tests := []struct {
		name string
		cf   serialapi.CommandFrame
		want []byte
	}{
		{
			name: "no payload",
			cf:   serialapi.CommandFrame{Function: 0x15, Direction: serialapi.DirectionRequest},
			want: []byte{0x01, 0x03, 0x00, 0x15, 0xE9},
		},
		{
			name: "inclusion start high power",
			cf:   serialapi.CommandFrame{Function: serialapi.FuncAddNodeToNetwork, Direction: serialapi.DirectionRequest, Payload: []byte{0x81}},
			want: []byte{0x01, 0x04, 0x00, 0x4A, 0x81, 0x30},
		},
		{
			name: "exclusion stop with callback id",
			cf:   serialapi.CommandFrame{Function: serialapi.FuncRemoveNodeFromNetwork, Direction: serialapi.DirectionRequest, Payload: []byte{0x05, 0x02}},
			want: []byte{0x01, 0x05, 0x00, 0x4B, 0x05, 0x02, 0xB6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeDataFrame(tt.cf)
			if err != nil {
				t.Fatalf("EncodeDataFrame failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeDataFrame = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestEncodeDataFramePayloadTooLarge(t *testing.T) {
	_, err := EncodeDataFrame(serialapi.CommandFrame{Payload: make([]byte, MaxDataSize+1)})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestReadFrameDataRoundTrip(t *testing.T) {
	cf := serialapi.CommandFrame{
		Function:  serialapi.FuncAddNodeToNetwork,
		Direction: serialapi.DirectionRequest,
		Payload:   []byte{0x01, 0x05, 0x0C, 0x00},
	}
	raw, err := EncodeDataFrame(cf)
	if err != nil {
		t.Fatalf("EncodeDataFrame failed: %v", err)
	}

	frame, err := NewFrameReader(bytes.NewReader(raw)).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if frame.Kind != KindData {
		t.Fatalf("Kind = %v, want KindData", frame.Kind)
	}
	if frame.Function != cf.Function || frame.Type != cf.Direction {
		t.Errorf("header = %v/%v, want %v/%v", frame.Function, frame.Type, cf.Function, cf.Direction)
	}
	if !bytes.Equal(frame.Data, cf.Payload) {
		t.Errorf("Data = % X, want % X", frame.Data, cf.Payload)
	}
}

func TestReadFrameControl(t *testing.T) {
	fr := NewFrameReader(bytes.NewReader([]byte{ACK, NAK, CAN}))

	for _, want := range []byte{ACK, NAK, CAN} {
		frame, err := fr.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if frame.Kind != KindControl || frame.Control != want {
			t.Errorf("frame = %+v, want control 0x%02X", frame, want)
		}
	}
}

func TestReadFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"bad checksum", []byte{0x01, 0x03, 0x00, 0x15, 0x00}, ErrChecksum},
		{"truncated body", []byte{0x01, 0x05, 0x00, 0x4A}, ErrFrameTruncated},
		{"truncated length", []byte{0x01}, ErrFrameTruncated},
		{"short length", []byte{0x01, 0x02, 0x00, 0x00}, ErrInvalidLength},
		{"garbage", []byte{0x42}, ErrUnexpectedByte},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFrameReader(bytes.NewReader(tt.raw)).ReadFrame()
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadFrameChecksumKeepsFields(t *testing.T) {
	frame, err := NewFrameReader(bytes.NewReader([]byte{0x01, 0x04, 0x00, 0x4A, 0x81, 0xFF})).ReadFrame()
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("err = %v, want ErrChecksum", err)
	}
	if frame.Function != serialapi.FuncAddNodeToNetwork {
		t.Errorf("Function = %v", frame.Function)
	}
}

func TestReadFrameResyncAfterGarbage(t *testing.T) {
	raw := append([]byte{0x42, 0x99}, 0x01, 0x03, 0x00, 0x15, 0xE9)
	fr := NewFrameReader(bytes.NewReader(raw))

	for i := 0; i < 2; i++ {
		if _, err := fr.ReadFrame(); !errors.Is(err, ErrUnexpectedByte) {
			t.Fatalf("byte %d: err = %v, want ErrUnexpectedByte", i, err)
		}
	}

	frame, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame after garbage failed: %v", err)
	}
	if frame.Function != 0x15 {
		t.Errorf("Function = 0x%02X, want 0x15", uint8(frame.Function))
	}
}

func TestFrameWriterLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := &captureLogger{}

	fw := NewFrameWriter(&buf)
	fw.SetLogger(logger, "sess")

	if err := fw.WriteData(serialapi.CommandFrame{Function: serialapi.FuncAddNodeToNetwork, Payload: make([]byte, 100)}); err != nil {
		t.Fatalf("WriteData failed: %v", err)
	}
	if err := fw.WriteControl(ACK); err != nil {
		t.Fatalf("WriteControl failed: %v", err)
	}

	events := logger.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	frame := events[0].Frame
	if frame == nil {
		t.Fatal("first event has no frame")
	}
	if frame.Size != 105 || len(frame.Data) != MaxLogFrameDataSize || !frame.Truncated {
		t.Errorf("frame event = size %d, data %d, truncated %v", frame.Size, len(frame.Data), frame.Truncated)
	}
	if events[0].Direction != log.DirectionOut || events[0].SessionID != "sess" {
		t.Errorf("event = %+v", events[0])
	}

	if events[1].Control == nil || events[1].Control.Type != log.ControlACK {
		t.Errorf("second event = %+v, want ACK control", events[1])
	}

	if buf.Len() != 106 {
		t.Errorf("wrote %d bytes, want 106", buf.Len())
	}
}

func TestChecksum(t *testing.T) {
	if got := Checksum([]byte{0x03, 0x00, 0x15}); got != 0xE9 {
		t.Errorf("Checksum = 0x%02X, want 0xE9", got)
	}
	if got := Checksum(nil); got != 0xFF {
		t.Errorf("Checksum(nil) = 0x%02X, want 0xFF", got)
	}
}
