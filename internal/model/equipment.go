// internal/model/equipment.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ProtocolType represents the wire protocol an analyzer speaks
type ProtocolType string

const (
	ProtocolHL7         ProtocolType = "HL7"
	ProtocolASTM        ProtocolType = "ASTM"
	ProtocolDICOM       ProtocolType = "DICOM"
	ProtocolPOCT1A      ProtocolType = "POCT1-A"
	ProtocolLIS2A2      ProtocolType = "LIS2-A2"
	ProtocolModbus      ProtocolType = "MODBUS"
	ProtocolIHEPCD      ProtocolType = "IHE-PCD"
	ProtocolHL7FHIR     ProtocolType = "HL7-FHIR"
	ProtocolISO11073    ProtocolType = "ISO-11073"
	ProtocolProprietary ProtocolType = "PROPRIETARY"
)

// ConnectionType represents how the equipment is physically attached
type ConnectionType string

const (
	ConnectionTypeNetwork   ConnectionType = "NETWORK"
	ConnectionTypeDB25      ConnectionType = "DB25"
	ConnectionTypeUSB       ConnectionType = "USB"
	ConnectionTypeRS232     ConnectionType = "RS232"
	ConnectionTypeRS485     ConnectionType = "RS485"
	ConnectionTypeBluetooth ConnectionType = "BLUETOOTH"
	ConnectionTypeEthernet  ConnectionType = "ETHERNET"
	ConnectionTypeWiFi      ConnectionType = "WIFI"
)

// IsSerial reports whether the connection type maps to a serial line
func (ct ConnectionType) IsSerial() bool {
	switch ct {
	case ConnectionTypeDB25, ConnectionTypeRS232, ConnectionTypeRS485:
		return true
	}
	return false
}

// IsNetwork reports whether the connection type maps to a TCP socket
func (ct ConnectionType) IsNetwork() bool {
	switch ct {
	case ConnectionTypeNetwork, ConnectionTypeEthernet, ConnectionTypeWiFi:
		return true
	}
	return false
}

// CommunicationType represents the direction and ack requirements of a link
type CommunicationType string

const (
	CommunicationUnidirectional   CommunicationType = "UNIDIRECTIONAL"
	CommunicationBidirectional    CommunicationType = "BIDIRECTIONAL"
	CommunicationBidirectionalAck CommunicationType = "BIDIRECTIONAL_WITH_ACK"
)

// ConnectionStatus represents the current link state of an equipment
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "CONNECTED"
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
	ConnectionStatusListening    ConnectionStatus = "LISTENING"
	ConnectionStatusError        ConnectionStatus = "ERROR"
)

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// JSONArray type for PostgreSQL JSONB arrays
type JSONArray []interface{}

func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// EquipmentCategory groups analyzers that share a protocol family
type EquipmentCategory struct {
	ID                 int64     `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Description        string    `json:"description" db:"description"`
	SupportedProtocols JSONArray `json:"supported_protocols" db:"supported_protocols"`
}

// SupportsProtocol checks whether a protocol belongs to the category
func (c *EquipmentCategory) SupportsProtocol(protocol ProtocolType) bool {
	for _, p := range c.SupportedProtocols {
		if p == string(protocol) {
			return true
		}
	}
	return false
}

// Equipment represents a laboratory analyzer registered in the system
type Equipment struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Model        string `json:"model" db:"model"`
	SerialNumber string `json:"serial_number" db:"serial_number"`
	Manufacturer string `json:"manufacturer" db:"manufacturer"`
	CategoryID   int64  `json:"category_id" db:"category_id"`

	Protocol          ProtocolType      `json:"protocol" db:"protocol"`
	ConnectionType    ConnectionType    `json:"connection_type" db:"connection_type"`
	CommunicationType CommunicationType `json:"communication_type" db:"communication_type"`

	// Network configuration
	IPAddress *string `json:"ip_address" db:"ip_address"`
	Port      *int    `json:"port" db:"port"`

	// Serial line configuration
	ComPort  *string `json:"com_port" db:"com_port"`
	BaudRate *int    `json:"baud_rate" db:"baud_rate"`
	DataBits *int    `json:"data_bits" db:"data_bits"`
	Parity   *string `json:"parity" db:"parity"`
	StopBits *int    `json:"stop_bits" db:"stop_bits"`

	// Protocol-specific configuration
	RequiresAck     bool       `json:"requires_ack" db:"requires_ack"`
	ResultEndpoint  *string    `json:"result_endpoint" db:"result_endpoint"`
	PollingInterval *int       `json:"polling_interval" db:"polling_interval"`
	Configuration   JSONObject `json:"configuration" db:"configuration"`

	Status    ConnectionStatus `json:"status" db:"status"`
	LastSeen  *time.Time       `json:"last_seen" db:"last_seen"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// RequiresAcknowledgment reports whether every inbound message must be acked
func (e *Equipment) RequiresAcknowledgment() bool {
	return e.CommunicationType == CommunicationBidirectionalAck
}

// IsBidirectional reports whether the equipment accepts outbound requests
func (e *Equipment) IsBidirectional() bool {
	return e.CommunicationType != CommunicationUnidirectional
}
