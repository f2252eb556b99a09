// internal/repository/result_repository_test.go
package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lis-service/internal/model"
)

func TestResultRepository_SaveBatch(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResultRepository(db, testLogger())

	mock.ExpectBegin()
	insert := mock.ExpectPrepare("INSERT INTO test_results")
	insert.ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100)))
	insert.ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectCommit()

	batch := []*model.TestResult{sampleResult(1), sampleResult(1)}
	batch[1].TestCode = "CRE"

	require.NoError(t, repo.SaveBatch(context.Background(), batch))

	assert.Equal(t, int64(100), batch[0].ID, "generated ids flow back into the batch")
	assert.Equal(t, int64(101), batch[1].ID)
	expectationsMet(t, mock)
}

func TestResultRepository_SaveBatch_RollsBackOnInsertFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResultRepository(db, testLogger())

	mock.ExpectBegin()
	insert := mock.ExpectPrepare("INSERT INTO test_results")
	insert.ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100)))
	insert.ExpectQuery().
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.SaveBatch(context.Background(), []*model.TestResult{sampleResult(1), sampleResult(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert test result")
	expectationsMet(t, mock)
}

func TestResultRepository_SaveBatch_EmptyIsNoOp(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResultRepository(db, testLogger())

	require.NoError(t, repo.SaveBatch(context.Background(), nil))
	expectationsMet(t, mock)
}

func TestResultRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResultRepository(db, testLogger())

	mock.ExpectQuery("SELECT .+ FROM test_results WHERE id =").
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows(resultColumnNames).
			AddRow(resultRow(100, 1)...))

	result, err := repo.GetByID(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, int64(100), result.ID)
	assert.Equal(t, "PT001", result.PatientID)
	assert.Equal(t, "GLU", result.TestCode)
	assert.Equal(t, "105", result.ResultValue)
	expectationsMet(t, mock)
}

func TestResultRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResultRepository(db, testLogger())

	mock.ExpectQuery("SELECT .+ FROM test_results WHERE id =").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(resultColumnNames))

	_, err := repo.GetByID(context.Background(), 404)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "result not found with id: 404")
	expectationsMet(t, mock)
}

func TestResultRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResultRepository(db, testLogger())

	equipmentID := int64(1)
	patientID := "PT001"
	filter := &TestResultFilter{EquipmentID: &equipmentID, PatientID: &patientID, Page: 1, PerPage: 25}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM test_results")).
		WithArgs(equipmentID, patientID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	mock.ExpectQuery("SELECT .+ FROM test_results WHERE equipment_id = .+ ORDER BY result_datetime DESC").
		WithArgs(equipmentID, patientID, 25, 0).
		WillReturnRows(sqlmock.NewRows(resultColumnNames).
			AddRow(resultRow(101, 1)...).
			AddRow(resultRow(100, 1)...))

	results, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 2, total)
	require.Len(t, results, 2)
	assert.Equal(t, int64(101), results[0].ID)
	expectationsMet(t, mock)
}

func TestResultRepository_List_DateWindow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResultRepository(db, testLogger())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	filter := &TestResultFilter{StartDate: &start, EndDate: &end}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM test_results")).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery("SELECT .+ FROM test_results WHERE result_datetime >=").
		WithArgs(start, end, 100, 0).
		WillReturnRows(sqlmock.NewRows(resultColumnNames))

	results, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, results)
	expectationsMet(t, mock)
}

func TestResultRepository_DeleteOlderThan(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResultRepository(db, testLogger())

	cutoff := time.Now().AddDate(0, -3, 0)
	mock.ExpectExec("DELETE FROM test_results WHERE result_datetime <").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 57))

	deleted, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(57), deleted)
	expectationsMet(t, mock)
}
