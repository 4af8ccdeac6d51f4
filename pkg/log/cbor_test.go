package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homenode/zwave-go/pkg/serialapi"
)

func TestEncodeDecodeHandshakeEvent(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	event := Event{
		Timestamp: ts,
		SessionID: "3f2c",
		Direction: DirectionIn,
		Layer:     LayerHandshake,
		Category:  CategoryState,
		Port:      "/dev/ttyACM0",
		Handshake: &HandshakeEvent{
			Operation:  "INCLUSION",
			From:       "ADDING_SLAVE",
			To:         "PROTOCOL_DONE",
			Status:     5,
			NodeID:     12,
			Diagnostic: "PHASE_CHANGED",
			Lifecycle:  "DEVICE_ADDED",
		},
	}

	data, err := EncodeEvent(event)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)

	assert.True(t, decoded.Timestamp.Equal(ts), "nanosecond timestamp preserved")
	assert.Equal(t, event.Port, decoded.Port)
	require.NotNil(t, decoded.Handshake)
	assert.Equal(t, *event.Handshake, *decoded.Handshake)
	assert.Nil(t, decoded.Frame)
	assert.Nil(t, decoded.Status)
}

func TestEncodeStatusEventKeepsFrame(t *testing.T) {
	event := Event{
		Layer:    LayerSerialAPI,
		Category: CategoryMessage,
		Status: &StatusEvent{Frame: serialapi.RawStatusFrame{
			Function:   serialapi.FuncRemoveNodeFromNetwork,
			CallbackID: 3,
			Status:     6,
			Extra:      []byte{0x09, 0x00},
		}},
	}

	data, err := EncodeEvent(event)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	require.NotNil(t, decoded.Status)
	assert.Equal(t, serialapi.FuncRemoveNodeFromNetwork, decoded.Status.Frame.Function)
	assert.Equal(t, serialapi.NodeID(9), decoded.Status.Frame.NodeID())
}

func TestEncodingIsDeterministic(t *testing.T) {
	event := Event{
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Command: &CommandEvent{
			Frame:      serialapi.CommandFrame{Function: serialapi.FuncAddNodeToNetwork, Payload: []byte{0xC1}},
			CallbackID: 1,
		},
	}

	a, err := EncodeEvent(event)
	require.NoError(t, err)
	b, err := EncodeEvent(event)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncoderDecoderStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	for i := 0; i < 3; i++ {
		require.NoError(t, enc.Encode(Event{SessionID: string(rune('a' + i))}))
	}

	dec := NewDecoder(&buf)
	for i := 0; i < 3; i++ {
		var e Event
		require.NoError(t, dec.Decode(&e))
		assert.Equal(t, string(rune('a'+i)), e.SessionID)
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	_, err := DecodeEvent([]byte{0xFF, 0x00})
	assert.Error(t, err)
}
