// internal/repository/interfaces.go
package repository

import (
	"context"
	"time"

	"lis-service/internal/model"
)

// EquipmentRepository defines equipment data access operations
type EquipmentRepository interface {
	// CRUD operations
	Create(ctx context.Context, equipment *model.Equipment) error
	GetByID(ctx context.Context, id int64) (*model.Equipment, error)
	Update(ctx context.Context, equipment *model.Equipment) error
	UpdateStatus(ctx context.Context, id int64, status model.ConnectionStatus) error
	UpdateLastSeen(ctx context.Context, id int64, seenAt time.Time) error
	Delete(ctx context.Context, id int64) error

	// Listing and filtering
	List(ctx context.Context, filter *EquipmentFilter) ([]*model.Equipment, int, error)
	ListByStatus(ctx context.Context, status model.ConnectionStatus) ([]*model.Equipment, error)
}

// CategoryRepository defines equipment category data access operations
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*model.EquipmentCategory, error)
	List(ctx context.Context) ([]*model.EquipmentCategory, error)
	Create(ctx context.Context, category *model.EquipmentCategory) error
}

// ResultRepository defines test result data access operations
type ResultRepository interface {
	// SaveBatch persists all rows inside a single transaction
	SaveBatch(ctx context.Context, results []*model.TestResult) error
	List(ctx context.Context, filter *TestResultFilter) ([]*model.TestResult, int, error)
	GetByID(ctx context.Context, id int64) (*model.TestResult, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Filter structures

// EquipmentFilter represents equipment listing filters
type EquipmentFilter struct {
	CategoryID     *int64                  `json:"category_id,omitempty"`
	Protocol       *model.ProtocolType     `json:"protocol,omitempty"`
	ConnectionType *model.ConnectionType   `json:"connection_type,omitempty"`
	Status         *model.ConnectionStatus `json:"status,omitempty"`
	SearchTerm     *string                 `json:"search_term,omitempty"`
	Page           int                     `json:"page"`
	PerPage        int                     `json:"per_page"`
	SortBy         string                  `json:"sort_by"`
	SortOrder      string                  `json:"sort_order"`
}

// TestResultFilter represents result listing filters
type TestResultFilter struct {
	EquipmentID *int64     `json:"equipment_id,omitempty"`
	PatientID   *string    `json:"patient_id,omitempty"`
	TestCode    *string    `json:"test_code,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Flags       *string    `json:"flags,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Page        int        `json:"page"`
	PerPage     int        `json:"per_page"`
}

// EquipmentStats represents aggregate counts per link state
type EquipmentStats struct {
	TotalEquipment int                            `json:"total_equipment"`
	ByStatus       map[model.ConnectionStatus]int `json:"by_status"`
	ByProtocol     map[model.ProtocolType]int     `json:"by_protocol"`
}
