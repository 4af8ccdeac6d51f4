package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/homenode/zwave-go/pkg/action"
	"github.com/homenode/zwave-go/pkg/handshake"
	"github.com/homenode/zwave-go/pkg/persistence"
	"github.com/homenode/zwave-go/pkg/serialapi"
	"github.com/homenode/zwave-go/pkg/session/mocks"
)

type harness struct {
	session   *Session
	transport *mocks.MockTransport
	frames    chan serialapi.RawStatusFrame
	events    chan Event
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	tr := mocks.NewMockTransport(t)
	h := &harness{
		transport: tr,
		frames:    make(chan serialapi.RawStatusFrame, 16),
		events:    make(chan Event, 64),
	}
	tr.EXPECT().Frames().Return(h.frames).Once()
	tr.EXPECT().Close().Return(nil).Maybe()

	s, err := New(cfg, tr)
	require.NoError(t, err)
	s.OnEvent(func(ev Event) { h.events <- ev })
	h.session = s

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })
	return h
}

func (h *harness) expectSend(fn serialapi.FunctionID, payload ...byte) *mocks.MockTransport_Send_Call {
	return h.transport.EXPECT().Send(mock.Anything, serialapi.CommandFrame{
		Function:  fn,
		Direction: serialapi.DirectionRequest,
		Payload:   payload,
	})
}

func (h *harness) push(fn serialapi.FunctionID, status uint8, nodeID uint8) {
	h.frames <- serialapi.RawStatusFrame{
		Function:   fn,
		CallbackID: 1,
		Status:     status,
		Extra:      []byte{nodeID, 0},
	}
}

func (h *harness) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestDoActionAppendsCallbackID(t *testing.T) {
	h := newHarness(t, Config{})
	h.expectSend(serialapi.FuncAddNodeToNetwork, 0xC1, 0x01).Return(nil).Once()
	h.expectSend(serialapi.FuncAddNodeToNetwork, 0x05, 0x02).Return(nil).Once()

	cf, err := h.session.DoAction(context.Background(), action.InclusionStart{HighPower: true, NetworkWide: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC1}, cf.Payload)
	assert.Greater(t, h.session.Status().Operations[handshake.OperationInclusion].Remaining, time.Duration(0))

	cf, err = h.session.DoAction(context.Background(), action.InclusionStop{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05}, cf.Payload)
	assert.Zero(t, h.session.Status().Operations[handshake.OperationInclusion].Remaining)
}

func TestInclusionAddsDevice(t *testing.T) {
	store := persistence.NewNetworkStateStore(filepath.Join(t.TempDir(), "network.json"))
	h := newHarness(t, Config{StateStore: store})
	h.expectSend(serialapi.FuncAddNodeToNetwork, 0x81, 0x01).Return(nil).Once()

	_, err := h.session.DoAction(context.Background(), action.InclusionStart{HighPower: true})
	require.NoError(t, err)

	fn := serialapi.FuncAddNodeToNetwork
	h.push(fn, handshake.AddStatusLearnReady, 0)
	h.push(fn, handshake.AddStatusNodeFound, 0)
	h.push(fn, handshake.AddStatusAddingSlave, 5)
	h.push(fn, handshake.AddStatusProtocolDone, 5)
	h.push(fn, handshake.AddStatusDone, 0)

	wantPhases := []handshake.Phase{
		handshake.PhaseLearnReady,
		handshake.PhaseNodeFound,
		handshake.PhaseAddingSlave,
		handshake.PhaseProtocolDone,
	}
	for _, want := range wantPhases {
		ev := h.next(t)
		require.Equal(t, EventPhaseChanged, ev.Type)
		assert.Equal(t, want, ev.To)
	}

	added := h.next(t)
	require.Equal(t, EventDeviceAdded, added.Type)
	assert.Equal(t, serialapi.NodeID(5), added.NodeID)
	assert.Equal(t, persistence.NodeKindSlave, added.Kind)

	done := h.next(t)
	require.Equal(t, EventPhaseChanged, done.Type)
	assert.Equal(t, handshake.PhaseProtocolDone, done.From)
	assert.Equal(t, handshake.PhaseDone, done.To)

	nodes := h.session.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, uint8(5), nodes[0].NodeID)
	assert.Equal(t, h.session.ID(), nodes[0].SessionID)

	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	_, ok := saved.Node(5)
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		return h.session.Status().Operations[handshake.OperationInclusion].Remaining == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, handshake.PhaseIdle, h.session.Status().Operations[handshake.OperationInclusion].Phase)
}

func TestInclusionControllerKind(t *testing.T) {
	h := newHarness(t, Config{})

	fn := serialapi.FuncAddNodeToNetwork
	h.push(fn, handshake.AddStatusAddingController, 9)
	h.push(fn, handshake.AddStatusProtocolDone, 9)

	h.next(t)
	h.next(t)
	added := h.next(t)
	require.Equal(t, EventDeviceAdded, added.Type)
	assert.Equal(t, persistence.NodeKindController, added.Kind)
}

func TestPlaceholderNodeIDDoesNotAddDevice(t *testing.T) {
	h := newHarness(t, Config{})

	fn := serialapi.FuncAddNodeToNetwork
	h.push(fn, handshake.AddStatusProtocolDone, 0)
	h.push(fn, handshake.AddStatusFailed, 0)

	ev := h.next(t)
	require.Equal(t, EventPhaseChanged, ev.Type)
	assert.Equal(t, handshake.PhaseProtocolDone, ev.To)

	ev = h.next(t)
	assert.Equal(t, EventPhaseChanged, ev.Type, "no DeviceAdded for node 0")
	assert.Equal(t, handshake.PhaseFailed, ev.To)
	assert.Empty(t, h.session.Nodes())
}

func TestHandshakeFailed(t *testing.T) {
	h := newHarness(t, Config{})
	h.expectSend(serialapi.FuncAddNodeToNetwork, 0x01, 0x01).Return(nil).Once()

	_, err := h.session.DoAction(context.Background(), action.InclusionStart{})
	require.NoError(t, err)

	h.push(serialapi.FuncAddNodeToNetwork, handshake.AddStatusFailed, 0)

	ev := h.next(t)
	assert.Equal(t, EventPhaseChanged, ev.Type)
	ev = h.next(t)
	assert.Equal(t, EventHandshakeFailed, ev.Type)
	assert.Equal(t, handshake.OperationInclusion, ev.Operation)

	require.Eventually(t, func() bool {
		return h.session.Status().Operations[handshake.OperationInclusion].Remaining == 0
	}, time.Second, 5*time.Millisecond)
}

func TestUnrecognizedStatusIgnored(t *testing.T) {
	h := newHarness(t, Config{})

	h.push(serialapi.FuncAddNodeToNetwork, 0x09, 0)
	h.push(serialapi.FuncRemoveNodeFromNetwork, 0x05, 0)
	h.push(serialapi.FuncAddNodeToNetwork, handshake.AddStatusLearnReady, 0)

	ev := h.next(t)
	require.Equal(t, EventPhaseChanged, ev.Type)
	assert.Equal(t, handshake.OperationInclusion, ev.Operation)
	assert.Equal(t, handshake.PhaseIdle, ev.From)
	assert.Equal(t, handshake.PhaseLearnReady, ev.To)
}

func TestExclusionRemovesDevice(t *testing.T) {
	store := persistence.NewNetworkStateStore(filepath.Join(t.TempDir(), "network.json"))
	initial := &persistence.NetworkState{}
	initial.AddNode(persistence.NodeRecord{NodeID: 7, Kind: persistence.NodeKindSlave})
	require.NoError(t, store.Save(initial))

	h := newHarness(t, Config{StateStore: store})
	require.Len(t, h.session.Nodes(), 1)

	fn := serialapi.FuncRemoveNodeFromNetwork
	h.expectSend(fn, 0x01, 0x01).Return(nil).Once()
	_, err := h.session.DoAction(context.Background(), action.ExclusionStart{})
	require.NoError(t, err)

	h.push(fn, handshake.RemoveStatusLearnReady, 0)
	h.push(fn, handshake.RemoveStatusRemovingSlave, 7)
	h.push(fn, handshake.RemoveStatusDone, 7)

	h.next(t)
	h.next(t)
	done := h.next(t)
	require.Equal(t, EventPhaseChanged, done.Type)
	assert.Equal(t, handshake.PhaseDone, done.To)

	removed := h.next(t)
	require.Equal(t, EventDeviceRemoved, removed.Type)
	assert.Equal(t, serialapi.NodeID(7), removed.NodeID)
	assert.Empty(t, h.session.Nodes())

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, saved.Nodes)
	assert.Equal(t, uint8(7), saved.LastRemoved)
}

func TestWatchdogExpirySendsStop(t *testing.T) {
	h := newHarness(t, Config{InclusionTimeout: 50 * time.Millisecond})
	fn := serialapi.FuncAddNodeToNetwork
	h.expectSend(fn, 0x01, 0x01).Return(nil).Once()
	h.expectSend(fn, 0x05, 0x02).Return(nil).Once()

	_, err := h.session.DoAction(context.Background(), action.InclusionStart{})
	require.NoError(t, err)

	ev := h.next(t)
	require.Equal(t, EventHandshakeTimeout, ev.Type)
	assert.Equal(t, handshake.OperationInclusion, ev.Operation)
	assert.NoError(t, ev.Error)
	assert.True(t, h.session.Status().Operations[handshake.OperationInclusion].Abandoned)

	// Late inclusion callbacks are dropped; exclusion still flows.
	h.push(fn, handshake.AddStatusLearnReady, 0)
	h.push(serialapi.FuncRemoveNodeFromNetwork, handshake.RemoveStatusLearnReady, 0)

	ev = h.next(t)
	require.Equal(t, EventPhaseChanged, ev.Type)
	assert.Equal(t, handshake.OperationExclusion, ev.Operation)
	assert.Equal(t, handshake.PhaseIdle, h.session.Status().Operations[handshake.OperationInclusion].Phase)

	// A new Start clears the abandonment.
	h.expectSend(fn, 0x01, 0x03).Return(nil).Once()
	h.expectSend(fn, 0x05, 0x04).Return(nil).Maybe()
	_, err = h.session.DoAction(context.Background(), action.InclusionStart{})
	require.NoError(t, err)
	assert.False(t, h.session.Status().Operations[handshake.OperationInclusion].Abandoned)
}

func TestSendFailureLeavesWatchdogDisarmed(t *testing.T) {
	h := newHarness(t, Config{})
	sendErr := errors.New("no ack")
	h.expectSend(serialapi.FuncRemoveNodeFromNetwork, 0x01, 0x01).Return(sendErr).Once()

	_, err := h.session.DoAction(context.Background(), action.ExclusionStart{})
	require.ErrorIs(t, err, sendErr)
	assert.Zero(t, h.session.Status().Operations[handshake.OperationExclusion].Remaining)
}

func TestTransportClosed(t *testing.T) {
	h := newHarness(t, Config{})
	close(h.frames)

	ev := h.next(t)
	assert.Equal(t, EventTransportClosed, ev.Type)

	select {
	case <-h.session.Done():
	case <-time.After(time.Second):
		t.Fatal("processing goroutine still running")
	}
}

func TestSessionLifecycle(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	frames := make(chan serialapi.RawStatusFrame)
	tr.EXPECT().Frames().Return(frames).Once()
	tr.EXPECT().Close().Return(nil).Once()

	s, err := New(Config{SessionID: "test"}, tr)
	require.NoError(t, err)
	assert.Equal(t, "test", s.ID())
	assert.Equal(t, StateIdle, s.State())

	_, err = s.DoAction(context.Background(), action.InclusionStart{})
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.ErrorIs(t, s.Stop(), ErrNotStarted)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateRunning, s.State())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, s.Stop())
	assert.Equal(t, StateStopped, s.State())
	assert.ErrorIs(t, s.Stop(), ErrNotStarted)
	assert.ErrorIs(t, s.Start(context.Background()), ErrSessionClosed)

	_, err = s.DoAction(context.Background(), action.ExclusionStart{})
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestNewRejectsNilTransport(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestStateAndEventTypeStrings(t *testing.T) {
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
	assert.Equal(t, "DEVICE_ADDED", EventDeviceAdded.String())
	assert.Equal(t, "HANDSHAKE_TIMEOUT", EventHandshakeTimeout.String())
	assert.Equal(t, "UNKNOWN", EventType(42).String())
}
