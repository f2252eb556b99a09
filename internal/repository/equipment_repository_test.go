// internal/repository/equipment_repository_test.go
package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lis-service/internal/model"
)

func TestEquipmentRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	now := time.Now()
	mock.ExpectQuery("INSERT INTO equipment").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(7), now, now))

	eq := sampleEquipment()
	require.NoError(t, repo.Create(context.Background(), eq))

	assert.Equal(t, int64(7), eq.ID)
	assert.Equal(t, model.ConnectionStatusDisconnected, eq.Status)
	assert.WithinDuration(t, now, eq.CreatedAt, time.Second)
	expectationsMet(t, mock)
}

func TestEquipmentRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	mock.ExpectQuery("SELECT .+ FROM equipment WHERE id =").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(equipmentColumnNames).
			AddRow(equipmentRow(1, "Chemistry Analyzer")...))

	eq, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), eq.ID)
	assert.Equal(t, "Chemistry Analyzer", eq.Name)
	assert.Equal(t, model.ProtocolHL7, eq.Protocol)
	require.NotNil(t, eq.IPAddress)
	assert.Equal(t, "10.0.0.5", *eq.IPAddress)
	require.NotNil(t, eq.Port)
	assert.Equal(t, 5100, *eq.Port)
	assert.Nil(t, eq.ComPort)
	expectationsMet(t, mock)
}

func TestEquipmentRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	mock.ExpectQuery("SELECT .+ FROM equipment WHERE id =").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(equipmentColumnNames))

	_, err := repo.GetByID(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equipment not found with id: 42")
	expectationsMet(t, mock)
}

func TestEquipmentRepository_Update(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	mock.ExpectExec("UPDATE equipment SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	eq := sampleEquipment()
	eq.ID = 3
	require.NoError(t, repo.Update(context.Background(), eq))
	expectationsMet(t, mock)
}

func TestEquipmentRepository_Update_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	mock.ExpectExec("UPDATE equipment SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	eq := sampleEquipment()
	eq.ID = 42
	err := repo.Update(context.Background(), eq)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equipment not found with id: 42")
	expectationsMet(t, mock)
}

func TestEquipmentRepository_UpdateStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	mock.ExpectExec("UPDATE equipment SET status =").
		WithArgs(int64(5), model.ConnectionStatusConnected).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), 5, model.ConnectionStatusConnected))
	expectationsMet(t, mock)
}

func TestEquipmentRepository_UpdateStatus_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	mock.ExpectExec("UPDATE equipment SET status =").
		WithArgs(int64(42), model.ConnectionStatusDisconnected).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 42, model.ConnectionStatusDisconnected)
	assert.Error(t, err)
	expectationsMet(t, mock)
}

func TestEquipmentRepository_UpdateLastSeen(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	seenAt := time.Now()
	mock.ExpectExec("UPDATE equipment SET last_seen =").
		WithArgs(int64(5), seenAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateLastSeen(context.Background(), 5, seenAt))
	expectationsMet(t, mock)
}

func TestEquipmentRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	mock.ExpectExec("DELETE FROM equipment WHERE id =").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 9))
	expectationsMet(t, mock)
}

func TestEquipmentRepository_Delete_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	mock.ExpectExec("DELETE FROM equipment WHERE id =").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equipment not found with id: 42")
	expectationsMet(t, mock)
}

func TestEquipmentRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	status := model.ConnectionStatusDisconnected
	filter := &EquipmentFilter{Status: &status, Page: 2, PerPage: 10}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM equipment")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	mock.ExpectQuery("SELECT .+ FROM equipment WHERE status =").
		WithArgs(status, 10, 10).
		WillReturnRows(sqlmock.NewRows(equipmentColumnNames).
			AddRow(equipmentRow(1, "Analyzer A")...).
			AddRow(equipmentRow(2, "Analyzer B")...))

	items, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 12, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Analyzer A", items[0].Name)
	assert.Equal(t, "Analyzer B", items[1].Name)
	expectationsMet(t, mock)
}

func TestEquipmentRepository_List_SearchTerm(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	term := "beckman"
	filter := &EquipmentFilter{SearchTerm: &term}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM equipment")).
		WithArgs("%beckman%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery("SELECT .+ FROM equipment WHERE .*ILIKE").
		WithArgs("%beckman%", 50, 0).
		WillReturnRows(sqlmock.NewRows(equipmentColumnNames).
			AddRow(equipmentRow(1, "Chemistry Analyzer")...))

	items, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	expectationsMet(t, mock)
}

func TestEquipmentRepository_ListByStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEquipmentRepository(db, testLogger())

	mock.ExpectQuery("SELECT .+ FROM equipment WHERE status = .+ ORDER BY name").
		WithArgs(model.ConnectionStatusConnected).
		WillReturnRows(sqlmock.NewRows(equipmentColumnNames).
			AddRow(equipmentRow(3, "Hematology Analyzer")...))

	items, err := repo.ListByStatus(context.Background(), model.ConnectionStatusConnected)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].ID)
	expectationsMet(t, mock)
}
