// internal/repository/result_repository.go
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

const resultColumns = `id, equipment_id, patient_id, test_code, test_name, result_value,
	   units, reference_range, flags, status, result_datetime, raw_message`

// resultRepository implements ResultRepository interface
type resultRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *database.DB, logger *zap.Logger) ResultRepository {
	return &resultRepository{
		db:     db,
		logger: logger,
	}
}

// SaveBatch persists a batch of results inside one transaction.
// Any insert failure rolls back the whole batch.
func (r *resultRepository) SaveBatch(ctx context.Context, results []*model.TestResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO test_results (
			equipment_id, patient_id, test_code, test_name, result_value,
			units, reference_range, flags, status, result_datetime, raw_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, result := range results {
		err := stmt.QueryRowContext(ctx,
			result.EquipmentID, result.PatientID, result.TestCode, result.TestName,
			result.ResultValue, result.Units, result.ReferenceRange, result.Flags,
			result.Status, result.ResultDatetime, result.RawMessage,
		).Scan(&result.ID)
		if err != nil {
			r.logger.Error("Failed to insert test result",
				zap.Error(err),
				zap.Int64("equipment_id", result.EquipmentID),
				zap.String("test_code", result.TestCode),
			)
			return fmt.Errorf("failed to insert test result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result batch: %w", err)
	}

	r.logger.Info("Result batch saved",
		zap.Int64("equipment_id", results[0].EquipmentID),
		zap.Int("count", len(results)),
	)
	return nil
}

// GetByID retrieves a single result row
func (r *resultRepository) GetByID(ctx context.Context, id int64) (*model.TestResult, error) {
	query := fmt.Sprintf(`SELECT %s FROM test_results WHERE id = $1`, resultColumns)

	result := &model.TestResult{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(scanResultFields(result)...)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("result not found with id: %d", id)
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return result, nil
}

// List retrieves results with filtering and pagination
func (r *resultRepository) List(ctx context.Context, filter *TestResultFilter) ([]*model.TestResult, int, error) {
	whereClause, args := r.buildWhereClause(filter)

	countQuery := "SELECT COUNT(*) FROM test_results" + whereClause
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM test_results%s ORDER BY result_datetime DESC LIMIT $%d OFFSET $%d`,
		resultColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list results", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*model.TestResult
	for rows.Next() {
		result := &model.TestResult{}
		if err := rows.Scan(scanResultFields(result)...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration failed: %w", err)
	}

	return results, total, nil
}

// DeleteOlderThan removes results older than the cutoff, returning the count
func (r *resultRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM test_results WHERE result_datetime < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old results: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		r.logger.Info("Old results deleted", zap.Int64("count", deleted))
	}
	return deleted, nil
}

// buildWhereClause builds the filtering WHERE clause and its arguments
func (r *resultRepository) buildWhereClause(filter *TestResultFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.EquipmentID != nil {
		args = append(args, *filter.EquipmentID)
		conditions = append(conditions, fmt.Sprintf("equipment_id = $%d", len(args)))
	}
	if filter.PatientID != nil && *filter.PatientID != "" {
		args = append(args, *filter.PatientID)
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if filter.TestCode != nil && *filter.TestCode != "" {
		args = append(args, *filter.TestCode)
		conditions = append(conditions, fmt.Sprintf("test_code = $%d", len(args)))
	}
	if filter.Status != nil && *filter.Status != "" {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Flags != nil && *filter.Flags != "" {
		args = append(args, *filter.Flags)
		conditions = append(conditions, fmt.Sprintf("flags = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("result_datetime >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("result_datetime <= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// scanResultFields returns scan destinations matching resultColumns order
func scanResultFields(t *model.TestResult) []interface{} {
	return []interface{}{
		&t.ID, &t.EquipmentID, &t.PatientID, &t.TestCode, &t.TestName, &t.ResultValue,
		&t.Units, &t.ReferenceRange, &t.Flags, &t.Status, &t.ResultDatetime, &t.RawMessage,
	}
}
