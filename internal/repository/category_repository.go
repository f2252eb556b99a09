// internal/repository/category_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"lis-service/internal/database"
	"lis-service/internal/model"
)

// categoryRepository implements CategoryRepository interface
type categoryRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB, logger *zap.Logger) CategoryRepository {
	return &categoryRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a category by its id
func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*model.EquipmentCategory, error) {
	query := `SELECT id, name, description, supported_protocols FROM equipment_categories WHERE id = $1`

	category := &model.EquipmentCategory{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID, &category.Name, &category.Description, &category.SupportedProtocols,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("category not found with id: %d", id)
		}
		r.logger.Error("Failed to get category", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// List retrieves all categories
func (r *categoryRepository) List(ctx context.Context) ([]*model.EquipmentCategory, error) {
	query := `SELECT id, name, description, supported_protocols FROM equipment_categories ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.EquipmentCategory
	for rows.Next() {
		category := &model.EquipmentCategory{}
		if err := rows.Scan(&category.ID, &category.Name, &category.Description, &category.SupportedProtocols); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

// Create creates a new category
func (r *categoryRepository) Create(ctx context.Context, category *model.EquipmentCategory) error {
	query := `
		INSERT INTO equipment_categories (name, description, supported_protocols)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		category.Name, category.Description, category.SupportedProtocols,
	).Scan(&category.ID)

	if err != nil {
		r.logger.Error("Failed to create category", zap.Error(err), zap.String("name", category.Name))
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}
