// internal/model/result.go
package model

import (
	"time"
)

// ResultLine is one test measurement decoded from an instrument message.
// Values stay textual at this layer; numeric interpretation happens downstream.
type ResultLine struct {
	TestCode       string `json:"test_code"`
	TestName       string `json:"test_name"`
	Value          string `json:"value"`
	Units          string `json:"units"`
	ReferenceRange string `json:"reference_range"`
	Flags          string `json:"flags"`
	Status         string `json:"status"`
}

// IncomingResult is the canonical, protocol-independent shape every codec
// produces from one instrument message.
type IncomingResult struct {
	MessageID       string       `json:"message_id"`
	MessageDatetime time.Time    `json:"message_datetime"`
	PatientID       string       `json:"patient_id"`
	PatientName     string       `json:"patient_name"`
	Results         []ResultLine `json:"results"`
	RawMessage      string       `json:"raw_message"`
}

// TestResult is one persisted result row, the wire contract with the result store
type TestResult struct {
	ID             int64     `json:"id" db:"id"`
	EquipmentID    int64     `json:"equipment_id" db:"equipment_id"`
	PatientID      string    `json:"patient_id" db:"patient_id"`
	TestCode       string    `json:"test_code" db:"test_code"`
	TestName       string    `json:"test_name" db:"test_name"`
	ResultValue    string    `json:"result_value" db:"result_value"`
	Units          string    `json:"units" db:"units"`
	ReferenceRange string    `json:"reference_range" db:"reference_range"`
	Flags          string    `json:"flags" db:"flags"`
	Status         string    `json:"status" db:"status"`
	ResultDatetime time.Time `json:"result_datetime" db:"result_datetime"`
	RawMessage     string    `json:"raw_message" db:"raw_message"`
}
