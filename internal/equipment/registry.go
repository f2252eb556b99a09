// internal/equipment/registry.go
package equipment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"lis-service/internal/codec"
	"lis-service/internal/config"
	"lis-service/internal/model"
	"lis-service/internal/protocol"
)

// EventPublisher receives lifecycle and result events for broadcasting
type EventPublisher interface {
	Publish(event model.EquipmentEvent)
}

// noopPublisher is used when no event bus is wired in
type noopPublisher struct{}

func (noopPublisher) Publish(model.EquipmentEvent) {}

// ActiveConnection owns one Transport and one Codec pair for the lifetime
// of a connect/disconnect cycle
type ActiveConnection struct {
	Equipment   *model.Equipment
	Transport   protocol.Transport
	Codec       codec.Codec
	ConnectedAt time.Time
}

// Registry owns the mapping equipment id -> live connection. At most one
// ActiveConnection exists per equipment id at any time.
type Registry struct {
	mu          sync.RWMutex
	connections map[int64]*ActiveConnection
	pending     map[int64]bool

	cfg    *config.EquipmentConfig
	events EventPublisher
	logger *zap.Logger
}

// NewRegistry creates a connection registry
func NewRegistry(cfg *config.EquipmentConfig, events EventPublisher, logger *zap.Logger) *Registry {
	if events == nil {
		events = noopPublisher{}
	}
	return &Registry{
		connections: make(map[int64]*ActiveConnection),
		pending:     make(map[int64]bool),
		cfg:         cfg,
		events:      events,
		logger:      logger,
	}
}

// Connect opens the physical link for the equipment and registers the
// connection. A second Connect for the same id fails with
// ErrAlreadyConnected while the first is live or still dialing. A transport
// failure leaves no registry entry behind.
func (r *Registry) Connect(ctx context.Context, eq *model.Equipment) (*ActiveConnection, error) {
	r.mu.Lock()
	if _, exists := r.connections[eq.ID]; exists || r.pending[eq.ID] {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: equipment %d", ErrAlreadyConnected, eq.ID)
	}
	r.pending[eq.ID] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, eq.ID)
		r.mu.Unlock()
	}()

	// Codec construction fails fast on unsupported protocols, before any
	// physical connection attempt
	c, err := codec.NewCodec(eq, r.logger)
	if err != nil {
		return nil, err
	}

	transport, err := protocol.NewTransport(eq, r.cfg, r.logger)
	if err != nil {
		return nil, err
	}

	if err := transport.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect equipment %d: %w", eq.ID, err)
	}

	conn := &ActiveConnection{
		Equipment:   eq,
		Transport:   transport,
		Codec:       c,
		ConnectedAt: time.Now(),
	}

	r.mu.Lock()
	r.connections[eq.ID] = conn
	r.mu.Unlock()

	r.logger.Info("Equipment connected",
		zap.Int64("equipment_id", eq.ID),
		zap.String("protocol", string(eq.Protocol)),
		zap.String("connection_type", string(eq.ConnectionType)),
	)
	r.events.Publish(model.NewEquipmentEvent(model.EventEquipmentConnected, eq.ID, "INFO", model.JSONObject{
		"protocol":        string(eq.Protocol),
		"connection_type": string(eq.ConnectionType),
	}))

	return conn, nil
}

// Disconnect closes the equipment link and removes the registry entry.
// Absent entries are a no-op success, and close errors never propagate
// past a logged warning.
func (r *Registry) Disconnect(id int64) error {
	r.mu.Lock()
	conn, exists := r.connections[id]
	delete(r.connections, id)
	r.mu.Unlock()

	if !exists {
		return nil
	}

	if err := conn.Transport.Disconnect(); err != nil {
		r.logger.Warn("Error while disconnecting equipment",
			zap.Int64("equipment_id", id),
			zap.Error(err),
		)
	}

	r.logger.Info("Equipment disconnected", zap.Int64("equipment_id", id))
	r.events.Publish(model.NewEquipmentEvent(model.EventEquipmentDisconnected, id, "INFO", nil))
	return nil
}

// Get returns the live connection for an equipment id
func (r *Registry) Get(id int64) (*ActiveConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, exists := r.connections[id]
	return conn, exists
}

// IsConnected reports whether the equipment has a live connection
func (r *Registry) IsConnected(id int64) bool {
	_, exists := r.Get(id)
	return exists
}

// List returns all live connections
func (r *Registry) List() []*ActiveConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*ActiveConnection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn)
	}
	return conns
}

// SendCommand runs a synchronous raw round trip against the equipment,
// bypassing the codec's structured decode
func (r *Registry) SendCommand(ctx context.Context, id int64, command []byte) ([]byte, error) {
	conn, exists := r.Get(id)
	if !exists {
		return nil, fmt.Errorf("%w: equipment %d", ErrNotConnected, id)
	}

	if err := conn.Transport.Send(ctx, command); err != nil {
		return nil, fmt.Errorf("failed to send command to equipment %d: %w", id, err)
	}

	response, err := conn.Transport.Receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read command response from equipment %d: %w", id, err)
	}

	return response, nil
}

// RequestResults builds and sends a protocol-specific result query.
// Unidirectional equipment fails before any send is attempted.
func (r *Registry) RequestResults(ctx context.Context, id int64, patientID string) error {
	conn, exists := r.Get(id)
	if !exists {
		return fmt.Errorf("%w: equipment %d", ErrNotConnected, id)
	}

	if !conn.Equipment.IsBidirectional() {
		return fmt.Errorf("%w: equipment %d is unidirectional", ErrUnsupportedOperation, id)
	}

	request, err := conn.Codec.EncodeRequest(patientID)
	if err != nil {
		return fmt.Errorf("failed to build result request for equipment %d: %w", id, err)
	}

	if err := conn.Transport.Send(ctx, request); err != nil {
		return fmt.Errorf("failed to send result request to equipment %d: %w", id, err)
	}

	r.logger.Info("Result request sent",
		zap.Int64("equipment_id", id),
		zap.String("patient_id", patientID),
	)
	return nil
}

// Shutdown disconnects every live connection
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.connections))
	for id := range r.connections {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Disconnect(id)
	}
}
