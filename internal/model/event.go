// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventEquipmentConnected    EventType = "EQUIPMENT_CONNECTED"
	EventEquipmentDisconnected EventType = "EQUIPMENT_DISCONNECTED"
	EventEquipmentError        EventType = "EQUIPMENT_ERROR"
	EventListenerStarted       EventType = "LISTENER_STARTED"
	EventListenerStopped       EventType = "LISTENER_STOPPED"
	EventResultReceived        EventType = "RESULT_RECEIVED"
	EventAckFailed             EventType = "ACK_FAILED"
)

// EquipmentEvent represents an event in the equipment layer
type EquipmentEvent struct {
	ID          uuid.UUID   `json:"id"`
	EventType   EventType   `json:"event_type"`
	EquipmentID int64       `json:"equipment_id"`
	Data        interface{} `json:"data"`
	Timestamp   time.Time   `json:"timestamp"`
	Severity    string      `json:"severity"` // INFO, WARNING, ERROR
}

// NewEquipmentEvent builds an event with a fresh id and current timestamp
func NewEquipmentEvent(eventType EventType, equipmentID int64, severity string, data interface{}) EquipmentEvent {
	return EquipmentEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		EquipmentID: equipmentID,
		Data:        data,
		Timestamp:   time.Now(),
		Severity:    severity,
	}
}

// ResultReceivedEventData describes a persisted result batch
type ResultReceivedEventData struct {
	MessageID   string `json:"message_id"`
	PatientID   string `json:"patient_id"`
	ResultCount int    `json:"result_count"`
}
