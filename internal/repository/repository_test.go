// internal/repository/repository_test.go
package repository

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lis-service/internal/database"
	"lis-service/internal/model"
)

// setupMockDB builds a repository-ready DB handle backed by sqlmock
func setupMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return &database.DB{DB: sqlDB}, mock
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

var equipmentColumnNames = []string{
	"id", "name", "model", "serial_number", "manufacturer", "category_id",
	"protocol", "connection_type", "communication_type",
	"ip_address", "port", "com_port", "baud_rate", "data_bits", "parity", "stop_bits",
	"requires_ack", "result_endpoint", "polling_interval", "configuration",
	"status", "last_seen", "created_at", "updated_at",
}

// equipmentRow returns row values in equipmentColumns order
func equipmentRow(id int64, name string) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, name, "AU480", "SN-001", "Beckman", int64(1),
		"HL7", "NETWORK", "BIDIRECTIONAL_WITH_ACK",
		"10.0.0.5", 5100, nil, nil, nil, nil, nil,
		true, nil, nil, nil,
		"DISCONNECTED", nil, now, now,
	}
}

var resultColumnNames = []string{
	"id", "equipment_id", "patient_id", "test_code", "test_name", "result_value",
	"units", "reference_range", "flags", "status", "result_datetime", "raw_message",
}

// resultRow returns row values in resultColumns order
func resultRow(id, equipmentID int64) []driver.Value {
	return []driver.Value{
		id, equipmentID, "PT001", "GLU", "Glucose", "105",
		"mg/dL", "70-110", "", "F", time.Now(), "raw",
	}
}

func sampleEquipment() *model.Equipment {
	host := "10.0.0.5"
	port := 5100
	return &model.Equipment{
		Name:              "Chemistry Analyzer",
		Model:             "AU480",
		SerialNumber:      "SN-001",
		Manufacturer:      "Beckman",
		CategoryID:        1,
		Protocol:          model.ProtocolHL7,
		ConnectionType:    model.ConnectionTypeNetwork,
		CommunicationType: model.CommunicationBidirectionalAck,
		IPAddress:         &host,
		Port:              &port,
		RequiresAck:       true,
	}
}

func sampleResult(equipmentID int64) *model.TestResult {
	return &model.TestResult{
		EquipmentID:    equipmentID,
		PatientID:      "PT001",
		TestCode:       "GLU",
		TestName:       "Glucose",
		ResultValue:    "105",
		Units:          "mg/dL",
		ReferenceRange: "70-110",
		Status:         "F",
		ResultDatetime: time.Now(),
		RawMessage:     "raw",
	}
}

// expectationsMet fails the test when mock expectations are outstanding
func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	require.NoError(t, mock.ExpectationsWereMet())
}
