// internal/protocol/transport.go
package protocol

import (
	"context"
	"errors"
	"time"
)

// Transport errors
var (
	ErrNotOpen               = errors.New("transport not open")
	ErrUnsupportedConnection = errors.New("unsupported connection type")
)

// MLLP block framing for HL7 over TCP
const (
	mllpStartBlock = 0x0B
	mllpEndBlock   = 0x1C
	mllpCarriage   = 0x0D
)

// STX/ETX framing for ASTM over serial lines
const (
	stxByte = 0x02
	etxByte = 0x03
)

// Transport represents a bidirectional byte link to a laboratory instrument
type Transport interface {
	// Connection lifecycle
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	// Data communication. Receive returns (nil, nil) when no data arrived
	// within the read timeout so callers can poll without treating silence
	// as a failure.
	Send(ctx context.Context, data []byte) error
	Receive(ctx context.Context) ([]byte, error)

	// Health and diagnostics
	Stats() TransportStats
}

// TransportStats provides link-level statistics
type TransportStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}

// wrapMLLP frames a message for HL7 MLLP transmission
func wrapMLLP(data []byte) []byte {
	framed := make([]byte, 0, len(data)+3)
	framed = append(framed, mllpStartBlock)
	framed = append(framed, data...)
	framed = append(framed, mllpEndBlock, mllpCarriage)
	return framed
}

// unwrapMLLP strips MLLP framing when present, leaving bare payloads alone
func unwrapMLLP(data []byte) []byte {
	if len(data) > 0 && data[0] == mllpStartBlock {
		data = data[1:]
	}
	if n := len(data); n >= 2 && data[n-2] == mllpEndBlock && data[n-1] == mllpCarriage {
		data = data[:n-2]
	} else if n >= 1 && data[n-1] == mllpEndBlock {
		data = data[:n-1]
	}
	return data
}

// wrapSTX frames an ASTM message unless the caller already framed it
func wrapSTX(data []byte) []byte {
	if len(data) > 0 && data[0] == stxByte {
		return data
	}
	framed := make([]byte, 0, len(data)+4)
	framed = append(framed, stxByte)
	framed = append(framed, data...)
	framed = append(framed, etxByte, '\r', '\n')
	return framed
}

// unwrapSTX strips STX/ETX framing and trailing CR/LF when present
func unwrapSTX(data []byte) []byte {
	start := 0
	end := len(data)
	if end > 0 && data[0] == stxByte {
		start = 1
	}
	for end > start {
		b := data[end-1]
		if b == etxByte || b == '\r' || b == '\n' {
			end--
			continue
		}
		break
	}
	return data[start:end]
}
