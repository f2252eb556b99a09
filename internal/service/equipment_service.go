// internal/service/equipment_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lis-service/internal/config"
	"lis-service/internal/equipment"
	"lis-service/internal/model"
	"lis-service/internal/repository"
	"lis-service/internal/utils"
)

// EquipmentService handles equipment management and communication lifecycle
type EquipmentService struct {
	equipmentRepo repository.EquipmentRepository
	categoryRepo  repository.CategoryRepository
	registry      *equipment.Registry
	listeners     *equipment.ListenerManager
	config        *config.Config
	logger        *utils.ServiceLogger
	auditLogger   *utils.AuditLogger
}

// NewEquipmentService creates a new equipment service instance
func NewEquipmentService(
	equipmentRepo repository.EquipmentRepository,
	categoryRepo repository.CategoryRepository,
	registry *equipment.Registry,
	listeners *equipment.ListenerManager,
	cfg *config.Config,
	logger *zap.Logger,
) *EquipmentService {
	return &EquipmentService{
		equipmentRepo: equipmentRepo,
		categoryRepo:  categoryRepo,
		registry:      registry,
		listeners:     listeners,
		config:        cfg,
		logger:        utils.NewServiceLogger(logger, "equipment-service"),
		auditLogger:   utils.NewAuditLogger(logger),
	}
}

// RegisterEquipmentRequest carries the fields needed to register an analyzer
type RegisterEquipmentRequest struct {
	Name              string                  `json:"name" binding:"required"`
	Model             string                  `json:"model"`
	SerialNumber      string                  `json:"serial_number"`
	Manufacturer      string                  `json:"manufacturer"`
	CategoryID        int64                   `json:"category_id" binding:"required"`
	Protocol          model.ProtocolType      `json:"protocol" binding:"required"`
	ConnectionType    model.ConnectionType    `json:"connection_type" binding:"required"`
	CommunicationType model.CommunicationType `json:"communication_type"`
	IPAddress         *string                 `json:"ip_address"`
	Port              *int                    `json:"port"`
	ComPort           *string                 `json:"com_port"`
	BaudRate          *int                    `json:"baud_rate"`
	DataBits          *int                    `json:"data_bits"`
	Parity            *string                 `json:"parity"`
	StopBits          *int                    `json:"stop_bits"`
	RequiresAck       bool                    `json:"requires_ack"`
	ResultEndpoint    *string                 `json:"result_endpoint"`
	PollingInterval   *int                    `json:"polling_interval"`
	Configuration     model.JSONObject        `json:"configuration"`
}

// RegisterEquipment registers a new analyzer in the system
func (es *EquipmentService) RegisterEquipment(ctx context.Context, req *RegisterEquipmentRequest) (*model.Equipment, error) {
	if err := es.validateRegisterRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	commType := req.CommunicationType
	if commType == "" {
		commType = model.CommunicationUnidirectional
	}

	eq := &model.Equipment{
		Name:              req.Name,
		Model:             req.Model,
		SerialNumber:      req.SerialNumber,
		Manufacturer:      req.Manufacturer,
		CategoryID:        req.CategoryID,
		Protocol:          req.Protocol,
		ConnectionType:    req.ConnectionType,
		CommunicationType: commType,
		IPAddress:         req.IPAddress,
		Port:              req.Port,
		ComPort:           req.ComPort,
		BaudRate:          req.BaudRate,
		DataBits:          req.DataBits,
		Parity:            req.Parity,
		StopBits:          req.StopBits,
		RequiresAck:       req.RequiresAck,
		ResultEndpoint:    req.ResultEndpoint,
		PollingInterval:   req.PollingInterval,
		Configuration:     req.Configuration,
		Status:            model.ConnectionStatusDisconnected,
	}

	if err := es.equipmentRepo.Create(ctx, eq); err != nil {
		es.logger.Error("Failed to create equipment", zap.Error(err))
		return nil, fmt.Errorf("failed to create equipment: %w", err)
	}

	es.auditLogger.LogEquipmentRegistration(eq.ID, eq.Name, string(eq.Protocol), true)
	es.logger.Info("Equipment registered successfully",
		zap.Int64("equipment_id", eq.ID),
		zap.String("name", eq.Name),
		zap.String("protocol", string(eq.Protocol)),
	)

	return eq, nil
}

// validateRegisterRequest checks protocol/category compatibility and
// connection parameters
func (es *EquipmentService) validateRegisterRequest(ctx context.Context, req *RegisterEquipmentRequest) error {
	category, err := es.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		return fmt.Errorf("category lookup failed: %w", err)
	}
	if !category.SupportsProtocol(req.Protocol) {
		return fmt.Errorf("category %s does not support protocol %s", category.Name, req.Protocol)
	}

	if req.ConnectionType.IsNetwork() {
		if req.IPAddress == nil || *req.IPAddress == "" {
			return fmt.Errorf("ip_address is required for network equipment")
		}
		if req.Port == nil || *req.Port < 1 || *req.Port > 65535 {
			return fmt.Errorf("a valid port is required for network equipment")
		}
	} else if req.ConnectionType.IsSerial() {
		if req.ComPort == nil || *req.ComPort == "" {
			return fmt.Errorf("com_port is required for serial equipment")
		}
	}

	if req.Protocol == model.ProtocolHL7FHIR {
		if req.ResultEndpoint == nil || *req.ResultEndpoint == "" {
			return fmt.Errorf("result_endpoint is required for HL7-FHIR equipment")
		}
	}

	return nil
}

// GetEquipment retrieves one equipment record
func (es *EquipmentService) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	return es.equipmentRepo.GetByID(ctx, id)
}

// ListEquipment retrieves equipment with filters
func (es *EquipmentService) ListEquipment(ctx context.Context, filter *repository.EquipmentFilter) ([]*model.Equipment, int, error) {
	return es.equipmentRepo.List(ctx, filter)
}

// ListCategories retrieves all equipment categories
func (es *EquipmentService) ListCategories(ctx context.Context) ([]*model.EquipmentCategory, error) {
	return es.categoryRepo.List(ctx)
}

// UpdateEquipment updates an equipment record. Connected equipment must be
// disconnected first so a live listener never runs with stale configuration.
func (es *EquipmentService) UpdateEquipment(ctx context.Context, eq *model.Equipment) error {
	if es.registry.IsConnected(eq.ID) {
		return fmt.Errorf("%w: disconnect equipment %d before updating it", equipment.ErrAlreadyConnected, eq.ID)
	}
	return es.equipmentRepo.Update(ctx, eq)
}

// DeleteEquipment removes an equipment record, refusing while connected
func (es *EquipmentService) DeleteEquipment(ctx context.Context, id int64) error {
	if es.registry.IsConnected(id) {
		return fmt.Errorf("%w: disconnect equipment %d before deleting it", equipment.ErrAlreadyConnected, id)
	}
	return es.equipmentRepo.Delete(ctx, id)
}

// Connect opens the equipment link and starts its ingestion loop. The loop
// runs in the background; Connect returns once it is scheduled.
func (es *EquipmentService) Connect(ctx context.Context, id int64) error {
	eq, err := es.equipmentRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("equipment not found: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, es.config.Equipment.ConnectTimeout)
	defer cancel()

	if _, err := es.registry.Connect(connectCtx, eq); err != nil {
		es.auditLogger.LogConnectionAction(id, "connect", false, err.Error())
		// A rejected duplicate connect leaves the live link healthy, so the
		// stored status must not flip to ERROR
		if !errors.Is(err, equipment.ErrAlreadyConnected) {
			es.updateStatus(ctx, id, model.ConnectionStatusError)
		}
		return err
	}

	if err := es.listeners.Start(eq); err != nil {
		es.registry.Disconnect(id)
		es.auditLogger.LogConnectionAction(id, "connect", false, err.Error())
		return fmt.Errorf("failed to start listener: %w", err)
	}

	es.updateStatus(ctx, id, model.ConnectionStatusListening)
	es.auditLogger.LogConnectionAction(id, "connect", true, "")
	return nil
}

// Disconnect stops the equipment's listener, waits for it, then closes the
// link. Stop always precedes Disconnect so a mid-flight receive never races
// a closed transport.
func (es *EquipmentService) Disconnect(ctx context.Context, id int64) error {
	if err := es.listeners.Stop(id); err != nil {
		es.logger.Warn("Listener stop reported an error", zap.Int64("equipment_id", id), zap.Error(err))
	}

	if err := es.registry.Disconnect(id); err != nil {
		es.auditLogger.LogConnectionAction(id, "disconnect", false, err.Error())
		return err
	}

	es.updateStatus(ctx, id, model.ConnectionStatusDisconnected)
	es.auditLogger.LogConnectionAction(id, "disconnect", true, "")
	return nil
}

// SendCommand runs a synchronous raw round trip against the equipment
func (es *EquipmentService) SendCommand(ctx context.Context, id int64, command string) (string, error) {
	commandCtx, cancel := context.WithTimeout(ctx, es.config.Equipment.CommandTimeout)
	defer cancel()

	response, err := es.registry.SendCommand(commandCtx, id, []byte(command))
	if err != nil {
		es.auditLogger.LogConnectionAction(id, "command", false, err.Error())
		return "", err
	}

	es.auditLogger.LogConnectionAction(id, "command", true, "")
	return string(response), nil
}

// RequestResults asks a bidirectional equipment for pending results
func (es *EquipmentService) RequestResults(ctx context.Context, id int64, patientID string) error {
	requestCtx, cancel := context.WithTimeout(ctx, es.config.Equipment.CommandTimeout)
	defer cancel()

	if err := es.registry.RequestResults(requestCtx, id, patientID); err != nil {
		es.auditLogger.LogConnectionAction(id, "request_results", false, err.Error())
		return err
	}

	es.auditLogger.LogConnectionAction(id, "request_results", true, patientID)
	return nil
}

// ConnectionStatus describes the live state of one equipment link
type ConnectionStatus struct {
	EquipmentID   int64                   `json:"equipment_id"`
	Connected     bool                    `json:"connected"`
	ListenerState equipment.ListenerState `json:"listener_state"`
	ConnectedAt   *time.Time              `json:"connected_at,omitempty"`
}

// GetConnectionStatus reports the live link and listener state for one equipment
func (es *EquipmentService) GetConnectionStatus(id int64) ConnectionStatus {
	status := ConnectionStatus{
		EquipmentID:   id,
		ListenerState: es.listeners.State(id),
	}
	if conn, ok := es.registry.Get(id); ok {
		status.Connected = true
		connectedAt := conn.ConnectedAt
		status.ConnectedAt = &connectedAt
	}
	return status
}

// ActiveConnections reports the live state of every connected equipment
func (es *EquipmentService) ActiveConnections() []ConnectionStatus {
	conns := es.registry.List()
	statuses := make([]ConnectionStatus, 0, len(conns))
	for _, conn := range conns {
		statuses = append(statuses, es.GetConnectionStatus(conn.Equipment.ID))
	}
	return statuses
}

// Shutdown stops all listeners, then disconnects every equipment
func (es *EquipmentService) Shutdown(ctx context.Context) {
	conns := es.registry.List()

	es.listeners.StopAll()
	es.registry.Shutdown()

	for _, conn := range conns {
		es.updateStatus(ctx, conn.Equipment.ID, model.ConnectionStatusDisconnected)
	}
}

// updateStatus records the equipment's link state, best-effort
func (es *EquipmentService) updateStatus(ctx context.Context, id int64, status model.ConnectionStatus) {
	if err := es.equipmentRepo.UpdateStatus(ctx, id, status); err != nil {
		es.logger.Warn("Failed to update equipment status",
			zap.Int64("equipment_id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
