// internal/service/result_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lis-service/internal/model"
	"lis-service/internal/repository"
	"lis-service/internal/utils"
)

// ResultService handles stored test result queries and retention
type ResultService struct {
	resultRepo repository.ResultRepository
	logger     *utils.ServiceLogger
}

// NewResultService creates a new result service instance
func NewResultService(resultRepo repository.ResultRepository, logger *zap.Logger) *ResultService {
	return &ResultService{
		resultRepo: resultRepo,
		logger:     utils.NewServiceLogger(logger, "result-service"),
	}
}

// ListResults retrieves stored results with filters
func (rs *ResultService) ListResults(ctx context.Context, filter *repository.TestResultFilter) ([]*model.TestResult, int, error) {
	return rs.resultRepo.List(ctx, filter)
}

// GetResult retrieves one stored result row
func (rs *ResultService) GetResult(ctx context.Context, id int64) (*model.TestResult, error) {
	return rs.resultRepo.GetByID(ctx, id)
}

// PurgeOldResults removes results older than the retention window
func (rs *ResultService) PurgeOldResults(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	deleted, err := rs.resultRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		rs.logger.Error("Result purge failed", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		rs.logger.Info("Result purge completed",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}
