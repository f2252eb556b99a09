// internal/equipment/listener_test.go
package equipment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lis-service/internal/config"
	"lis-service/internal/model"
)

func testEquipmentConfig() *config.EquipmentConfig {
	return &config.EquipmentConfig{
		ConnectTimeout:      time.Second,
		CommandTimeout:      time.Second,
		ReceiveTimeout:      10 * time.Millisecond,
		DefaultPollInterval: time.Millisecond,
		ErrorBackoff:        time.Millisecond,
		ReadBufferSize:      4096,
	}
}

// wire injects a live fake connection into the registry, bypassing the dial
func wire(r *Registry, eq *model.Equipment, transport *fakeTransport, c *fakeCodec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[eq.ID] = &ActiveConnection{
		Equipment:   eq,
		Transport:   transport,
		Codec:       c,
		ConnectedAt: time.Now(),
	}
}

func TestListener_PersistsDecodedResults(t *testing.T) {
	cfg := testEquipmentConfig()
	events := &fakeEvents{}
	registry := NewRegistry(cfg, events, zap.NewNop())

	eq := &model.Equipment{ID: 1, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationUnidirectional}
	transport := newFakeTransport([]byte("frame-1"))
	store := &fakeStore{}
	seen := &fakeSeen{}
	wire(registry, eq, transport, &fakeCodec{})

	manager := NewListenerManager(registry, store, seen, cfg, events, zap.NewNop())
	require.NoError(t, manager.Start(eq))
	defer manager.Stop(eq.ID)

	require.Eventually(t, func() bool {
		return len(store.savedBatches()) == 1
	}, time.Second, time.Millisecond)

	batch := store.savedBatches()[0]
	require.Len(t, batch, 1)
	row := batch[0]
	assert.Equal(t, int64(1), row.EquipmentID)
	assert.Equal(t, "PT001", row.PatientID)
	assert.Equal(t, "GLU", row.TestCode)
	assert.Equal(t, "105", row.ResultValue)
	assert.Empty(t, row.Flags, "in-range value gets no derived flag")

	require.Eventually(t, func() bool {
		return seen.callCount() > 0
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return len(events.byType(model.EventResultReceived)) == 1
	}, time.Second, time.Millisecond)

	event := events.byType(model.EventResultReceived)[0]
	assert.Equal(t, model.ResultReceivedEventData{
		MessageID:   "frame-1",
		PatientID:   "PT001",
		ResultCount: 1,
	}, event.Data)
}

func TestListener_AcknowledgesWhenRequired(t *testing.T) {
	cfg := testEquipmentConfig()
	events := &fakeEvents{}
	registry := NewRegistry(cfg, events, zap.NewNop())

	eq := &model.Equipment{ID: 2, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationBidirectionalAck}
	transport := newFakeTransport([]byte("frame-1"))
	fc := &fakeCodec{}
	wire(registry, eq, transport, fc)

	manager := NewListenerManager(registry, &fakeStore{}, nil, cfg, events, zap.NewNop())
	require.NoError(t, manager.Start(eq))
	defer manager.Stop(eq.ID)

	require.Eventually(t, func() bool {
		return len(transport.sentFrames()) == 1
	}, time.Second, time.Millisecond)

	assert.Equal(t, []byte("ACK:frame-1"), transport.sentFrames()[0])
}

func TestListener_NoAckForUnidirectional(t *testing.T) {
	cfg := testEquipmentConfig()
	registry := NewRegistry(cfg, nil, zap.NewNop())

	eq := &model.Equipment{ID: 3, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationUnidirectional}
	transport := newFakeTransport([]byte("frame-1"))
	store := &fakeStore{}
	wire(registry, eq, transport, &fakeCodec{})

	manager := NewListenerManager(registry, store, nil, cfg, nil, zap.NewNop())
	require.NoError(t, manager.Start(eq))
	defer manager.Stop(eq.ID)

	require.Eventually(t, func() bool {
		return len(store.savedBatches()) == 1
	}, time.Second, time.Millisecond)

	assert.Empty(t, transport.sentFrames())
}

func TestListener_SurvivesMalformedMessages(t *testing.T) {
	cfg := testEquipmentConfig()
	events := &fakeEvents{}
	registry := NewRegistry(cfg, events, zap.NewNop())

	eq := &model.Equipment{ID: 4, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationUnidirectional}
	transport := newFakeTransport([]byte("bad-frame"), []byte("good-frame"))
	fc := &fakeCodec{decodeErrOn: map[string]error{"bad-frame": errors.New("garbled")}}
	store := &fakeStore{}
	wire(registry, eq, transport, fc)

	manager := NewListenerManager(registry, store, nil, cfg, events, zap.NewNop())
	require.NoError(t, manager.Start(eq))
	defer manager.Stop(eq.ID)

	require.Eventually(t, func() bool {
		return len(store.savedBatches()) == 1
	}, time.Second, time.Millisecond)

	assert.True(t, registry.IsConnected(eq.ID), "decode errors must not tear down the link")
}

func TestListener_TransportErrorIsFatal(t *testing.T) {
	cfg := testEquipmentConfig()
	events := &fakeEvents{}
	registry := NewRegistry(cfg, events, zap.NewNop())

	eq := &model.Equipment{ID: 5, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationUnidirectional}
	transport := newFakeTransport()
	transport.receiveErr = errors.New("connection reset")
	wire(registry, eq, transport, &fakeCodec{})

	manager := NewListenerManager(registry, &fakeStore{}, nil, cfg, events, zap.NewNop())
	require.NoError(t, manager.Start(eq))

	require.Eventually(t, func() bool {
		return !registry.IsConnected(eq.ID)
	}, time.Second, time.Millisecond)

	assert.Equal(t, ListenerIdle, manager.State(eq.ID))
	assert.NotEmpty(t, events.byType(model.EventEquipmentError))
	assert.NotEmpty(t, events.byType(model.EventListenerStopped))
}

func TestListener_StopWaitsForLoopExit(t *testing.T) {
	cfg := testEquipmentConfig()
	registry := NewRegistry(cfg, nil, zap.NewNop())

	eq := &model.Equipment{ID: 6, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationUnidirectional}
	wire(registry, eq, newFakeTransport(), &fakeCodec{})

	manager := NewListenerManager(registry, &fakeStore{}, nil, cfg, nil, zap.NewNop())
	require.NoError(t, manager.Start(eq))
	assert.Equal(t, ListenerListening, manager.State(eq.ID))

	require.NoError(t, manager.Stop(eq.ID))
	assert.Equal(t, ListenerIdle, manager.State(eq.ID))

	// A clean stop leaves the connection for the caller to close
	assert.True(t, registry.IsConnected(eq.ID))

	// Stopping again is a no-op
	require.NoError(t, manager.Stop(eq.ID))
}

func TestListener_StartRequiresConnection(t *testing.T) {
	cfg := testEquipmentConfig()
	registry := NewRegistry(cfg, nil, zap.NewNop())
	manager := NewListenerManager(registry, &fakeStore{}, nil, cfg, nil, zap.NewNop())

	eq := &model.Equipment{ID: 7, Protocol: model.ProtocolHL7}
	err := manager.Start(eq)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestListener_DoubleStartRejected(t *testing.T) {
	cfg := testEquipmentConfig()
	registry := NewRegistry(cfg, nil, zap.NewNop())

	eq := &model.Equipment{ID: 8, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationUnidirectional}
	wire(registry, eq, newFakeTransport(), &fakeCodec{})

	manager := NewListenerManager(registry, &fakeStore{}, nil, cfg, nil, zap.NewNop())
	require.NoError(t, manager.Start(eq))
	defer manager.Stop(eq.ID)

	err := manager.Start(eq)
	assert.ErrorIs(t, err, ErrAlreadyListening)
}

func TestListener_StopAll(t *testing.T) {
	cfg := testEquipmentConfig()
	registry := NewRegistry(cfg, nil, zap.NewNop())
	manager := NewListenerManager(registry, &fakeStore{}, nil, cfg, nil, zap.NewNop())

	for id := int64(10); id < 13; id++ {
		eq := &model.Equipment{ID: id, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationUnidirectional}
		wire(registry, eq, newFakeTransport(), &fakeCodec{})
		require.NoError(t, manager.Start(eq))
	}

	manager.StopAll()

	for id := int64(10); id < 13; id++ {
		assert.Equal(t, ListenerIdle, manager.State(id))
	}
}
