// internal/repository/equipment_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lis-service/internal/database"
	"lis-service/internal/model"
)

const equipmentColumns = `id, name, model, serial_number, manufacturer, category_id,
	   protocol, connection_type, communication_type,
	   ip_address, port, com_port, baud_rate, data_bits, parity, stop_bits,
	   requires_ack, result_endpoint, polling_interval, configuration,
	   status, last_seen, created_at, updated_at`

// equipmentRepository implements EquipmentRepository interface
type equipmentRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewEquipmentRepository creates a new equipment repository
func NewEquipmentRepository(db *database.DB, logger *zap.Logger) EquipmentRepository {
	return &equipmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new equipment record
func (r *equipmentRepository) Create(ctx context.Context, equipment *model.Equipment) error {
	query := `
		INSERT INTO equipment (
			name, model, serial_number, manufacturer, category_id,
			protocol, connection_type, communication_type,
			ip_address, port, com_port, baud_rate, data_bits, parity, stop_bits,
			requires_ack, result_endpoint, polling_interval, configuration, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		equipment.Name, equipment.Model, equipment.SerialNumber, equipment.Manufacturer,
		equipment.CategoryID, equipment.Protocol, equipment.ConnectionType,
		equipment.CommunicationType, equipment.IPAddress, equipment.Port,
		equipment.ComPort, equipment.BaudRate, equipment.DataBits, equipment.Parity,
		equipment.StopBits, equipment.RequiresAck, equipment.ResultEndpoint,
		equipment.PollingInterval, equipment.Configuration, model.ConnectionStatusDisconnected,
	).Scan(&equipment.ID, &equipment.CreatedAt, &equipment.UpdatedAt)

	if err != nil {
		r.logger.Error("Failed to create equipment", zap.Error(err), zap.String("name", equipment.Name))
		return fmt.Errorf("failed to create equipment: %w", err)
	}

	equipment.Status = model.ConnectionStatusDisconnected
	r.logger.Info("Equipment created successfully", zap.Int64("equipment_id", equipment.ID))
	return nil
}

// GetByID retrieves equipment by its id
func (r *equipmentRepository) GetByID(ctx context.Context, id int64) (*model.Equipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM equipment WHERE id = $1`, equipmentColumns)

	equipment := &model.Equipment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(scanEquipmentFields(equipment)...)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("equipment not found with id: %d", id)
		}
		r.logger.Error("Failed to get equipment by id", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}

	return equipment, nil
}

// Update updates an existing equipment record
func (r *equipmentRepository) Update(ctx context.Context, equipment *model.Equipment) error {
	query := `
		UPDATE equipment SET
			name = $2, model = $3, serial_number = $4, manufacturer = $5,
			category_id = $6, protocol = $7, connection_type = $8,
			communication_type = $9, ip_address = $10, port = $11, com_port = $12,
			baud_rate = $13, data_bits = $14, parity = $15, stop_bits = $16,
			requires_ack = $17, result_endpoint = $18, polling_interval = $19,
			configuration = $20, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		equipment.ID, equipment.Name, equipment.Model, equipment.SerialNumber,
		equipment.Manufacturer, equipment.CategoryID, equipment.Protocol,
		equipment.ConnectionType, equipment.CommunicationType, equipment.IPAddress,
		equipment.Port, equipment.ComPort, equipment.BaudRate, equipment.DataBits,
		equipment.Parity, equipment.StopBits, equipment.RequiresAck,
		equipment.ResultEndpoint, equipment.PollingInterval, equipment.Configuration,
	)

	if err != nil {
		r.logger.Error("Failed to update equipment", zap.Error(err), zap.Int64("equipment_id", equipment.ID))
		return fmt.Errorf("failed to update equipment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("equipment not found with id: %d", equipment.ID)
	}

	r.logger.Debug("Equipment updated successfully", zap.Int64("equipment_id", equipment.ID))
	return nil
}

// UpdateStatus updates the equipment link state
func (r *equipmentRepository) UpdateStatus(ctx context.Context, id int64, status model.ConnectionStatus) error {
	query := `
		UPDATE equipment SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		r.logger.Error("Failed to update equipment status", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to update equipment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("equipment not found with id: %d", id)
	}

	return nil
}

// UpdateLastSeen records the last time the equipment produced traffic
func (r *equipmentRepository) UpdateLastSeen(ctx context.Context, id int64, seenAt time.Time) error {
	query := `UPDATE equipment SET last_seen = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, seenAt)
	if err != nil {
		r.logger.Error("Failed to update last seen", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to update last seen: %w", err)
	}

	return nil
}

// Delete removes an equipment record
func (r *equipmentRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM equipment WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete equipment", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to delete equipment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("equipment not found with id: %d", id)
	}

	r.logger.Info("Equipment deleted successfully", zap.Int64("equipment_id", id))
	return nil
}

// List retrieves equipment with filtering and pagination
func (r *equipmentRepository) List(ctx context.Context, filter *EquipmentFilter) ([]*model.Equipment, int, error) {
	whereClause, args := r.buildWhereClause(filter)

	countQuery := "SELECT COUNT(*) FROM equipment" + whereClause
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count equipment: %w", err)
	}

	sortBy := "created_at"
	if filter.SortBy != "" {
		sortBy = filter.SortBy
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM equipment%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		equipmentColumns, whereClause, sortBy, sortOrder, len(args)+1, len(args)+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list equipment", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer rows.Close()

	var items []*model.Equipment
	for rows.Next() {
		equipment := &model.Equipment{}
		if err := rows.Scan(scanEquipmentFields(equipment)...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan equipment: %w", err)
		}
		items = append(items, equipment)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration failed: %w", err)
	}

	return items, total, nil
}

// ListByStatus retrieves equipment in a given link state
func (r *equipmentRepository) ListByStatus(ctx context.Context, status model.ConnectionStatus) ([]*model.Equipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM equipment WHERE status = $1 ORDER BY name`, equipmentColumns)

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment by status: %w", err)
	}
	defer rows.Close()

	var items []*model.Equipment
	for rows.Next() {
		equipment := &model.Equipment{}
		if err := rows.Scan(scanEquipmentFields(equipment)...); err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		items = append(items, equipment)
	}

	return items, rows.Err()
}

// buildWhereClause builds the filtering WHERE clause and its arguments
func (r *equipmentRepository) buildWhereClause(filter *EquipmentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Protocol != nil {
		args = append(args, *filter.Protocol)
		conditions = append(conditions, fmt.Sprintf("protocol = $%d", len(args)))
	}
	if filter.ConnectionType != nil {
		args = append(args, *filter.ConnectionType)
		conditions = append(conditions, fmt.Sprintf("connection_type = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		args = append(args, "%"+*filter.SearchTerm+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR model ILIKE $%d OR manufacturer ILIKE $%d)",
			len(args), len(args), len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// scanEquipmentFields returns scan destinations matching equipmentColumns order
func scanEquipmentFields(e *model.Equipment) []interface{} {
	return []interface{}{
		&e.ID, &e.Name, &e.Model, &e.SerialNumber, &e.Manufacturer, &e.CategoryID,
		&e.Protocol, &e.ConnectionType, &e.CommunicationType,
		&e.IPAddress, &e.Port, &e.ComPort, &e.BaudRate, &e.DataBits, &e.Parity, &e.StopBits,
		&e.RequiresAck, &e.ResultEndpoint, &e.PollingInterval, &e.Configuration,
		&e.Status, &e.LastSeen, &e.CreatedAt, &e.UpdatedAt,
	}
}
