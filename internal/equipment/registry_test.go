// internal/equipment/registry_test.go
package equipment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lis-service/internal/codec"
	"lis-service/internal/model"
	"lis-service/internal/protocol"
)

func TestRegistryConnect_UnsupportedProtocolFailsFast(t *testing.T) {
	registry := NewRegistry(testEquipmentConfig(), nil, zap.NewNop())

	eq := &model.Equipment{
		ID:             1,
		Protocol:       model.ProtocolDICOM,
		ConnectionType: model.ConnectionTypeNetwork,
	}

	_, err := registry.Connect(context.Background(), eq)
	assert.ErrorIs(t, err, codec.ErrUnsupportedProtocol)
	assert.False(t, registry.IsConnected(eq.ID))
}

func TestRegistryConnect_UnsupportedConnectionType(t *testing.T) {
	registry := NewRegistry(testEquipmentConfig(), nil, zap.NewNop())

	eq := &model.Equipment{
		ID:             2,
		Protocol:       model.ProtocolHL7,
		ConnectionType: model.ConnectionTypeBluetooth,
	}

	_, err := registry.Connect(context.Background(), eq)
	assert.ErrorIs(t, err, protocol.ErrUnsupportedConnection)
	assert.False(t, registry.IsConnected(eq.ID))
}

func TestRegistryConnect_DialFailureLeavesNoEntry(t *testing.T) {
	registry := NewRegistry(testEquipmentConfig(), nil, zap.NewNop())

	// Port 1 on loopback refuses connections
	host := "127.0.0.1"
	port := 1
	eq := &model.Equipment{
		ID:             3,
		Protocol:       model.ProtocolHL7,
		ConnectionType: model.ConnectionTypeNetwork,
		IPAddress:      &host,
		Port:           &port,
	}

	_, err := registry.Connect(context.Background(), eq)
	require.Error(t, err)
	assert.False(t, registry.IsConnected(eq.ID))

	// The failed attempt must not leave a pending reservation behind
	_, err = registry.Connect(context.Background(), eq)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyConnected)
}

func TestRegistry_DoubleConnectRejected(t *testing.T) {
	events := &fakeEvents{}
	registry := NewRegistry(testEquipmentConfig(), events, zap.NewNop())

	eq := &model.Equipment{ID: 4, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationBidirectional}
	wire(registry, eq, newFakeTransport(), &fakeCodec{})

	_, err := registry.Connect(context.Background(), eq)
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestRegistry_DisconnectIsIdempotent(t *testing.T) {
	events := &fakeEvents{}
	registry := NewRegistry(testEquipmentConfig(), events, zap.NewNop())

	eq := &model.Equipment{ID: 5, Protocol: model.ProtocolHL7}
	transport := newFakeTransport()
	wire(registry, eq, transport, &fakeCodec{})

	require.NoError(t, registry.Disconnect(eq.ID))
	assert.False(t, registry.IsConnected(eq.ID))
	assert.False(t, transport.IsConnected())
	assert.Len(t, events.byType(model.EventEquipmentDisconnected), 1)

	// Absent entries are a no-op success with no second event
	require.NoError(t, registry.Disconnect(eq.ID))
	assert.Len(t, events.byType(model.EventEquipmentDisconnected), 1)
}

func TestRegistry_SendCommandRoundTrip(t *testing.T) {
	registry := NewRegistry(testEquipmentConfig(), nil, zap.NewNop())

	eq := &model.Equipment{ID: 6, Protocol: model.ProtocolHL7}
	transport := newFakeTransport([]byte("PONG"))
	wire(registry, eq, transport, &fakeCodec{})

	response, err := registry.SendCommand(context.Background(), eq.ID, []byte("PING"))
	require.NoError(t, err)
	assert.Equal(t, []byte("PONG"), response)
	assert.Equal(t, [][]byte{[]byte("PING")}, transport.sentFrames())
}

func TestRegistry_SendCommandRequiresConnection(t *testing.T) {
	registry := NewRegistry(testEquipmentConfig(), nil, zap.NewNop())

	_, err := registry.SendCommand(context.Background(), 99, []byte("PING"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRegistry_RequestResults(t *testing.T) {
	registry := NewRegistry(testEquipmentConfig(), nil, zap.NewNop())

	eq := &model.Equipment{ID: 7, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationBidirectional}
	transport := newFakeTransport()
	wire(registry, eq, transport, &fakeCodec{})

	require.NoError(t, registry.RequestResults(context.Background(), eq.ID, "PT001"))
	assert.Equal(t, [][]byte{[]byte("REQ:PT001")}, transport.sentFrames())
}

func TestRegistry_RequestResultsRejectsUnidirectional(t *testing.T) {
	registry := NewRegistry(testEquipmentConfig(), nil, zap.NewNop())

	eq := &model.Equipment{ID: 8, Protocol: model.ProtocolHL7, CommunicationType: model.CommunicationUnidirectional}
	transport := newFakeTransport()
	wire(registry, eq, transport, &fakeCodec{})

	err := registry.RequestResults(context.Background(), eq.ID, "PT001")
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.Empty(t, transport.sentFrames(), "nothing may be sent to a unidirectional instrument")
}

func TestRegistry_Shutdown(t *testing.T) {
	registry := NewRegistry(testEquipmentConfig(), nil, zap.NewNop())

	transports := make([]*fakeTransport, 0, 3)
	for id := int64(20); id < 23; id++ {
		transport := newFakeTransport()
		transports = append(transports, transport)
		wire(registry, &model.Equipment{ID: id, Protocol: model.ProtocolHL7}, transport, &fakeCodec{})
	}

	registry.Shutdown()

	assert.Empty(t, registry.List())
	for _, transport := range transports {
		assert.False(t, transport.IsConnected())
	}
}
