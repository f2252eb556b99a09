// internal/codec/hl7.go
package codec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lis-service/internal/model"
)

const hl7Timestamp = "20060102150405"

// HL7Codec handles HL7v2 pipe-and-hat messages (ORU^R01 results,
// ACK acknowledgments, QRY^R02 result queries).
type HL7Codec struct {
	logger *zap.Logger
}

// NewHL7Codec creates an HL7v2 codec
func NewHL7Codec(logger *zap.Logger) *HL7Codec {
	return &HL7Codec{
		logger: logger.With(zap.String("codec", "hl7")),
	}
}

// Decode parses an HL7 message into the canonical result shape. Missing
// fields degrade to empty strings; a message without an MSH segment is
// unparsable and rejected.
func (c *HL7Codec) Decode(raw []byte) (*model.IncomingResult, error) {
	text := strings.TrimRight(string(raw), "\r\n")
	if text == "" {
		return nil, fmt.Errorf("%w: empty HL7 message", ErrDecode)
	}

	segments := splitSegments(text)

	result := &model.IncomingResult{
		MessageDatetime: time.Now(),
		RawMessage:      string(raw),
	}

	sawMSH := false
	for _, segment := range segments {
		fields := strings.Split(segment, "|")
		switch fields[0] {
		case "MSH":
			sawMSH = true
			result.MessageID = hl7Field(fields, 9)
			if ts, err := time.Parse(hl7Timestamp, truncateTimestamp(hl7Field(fields, 6))); err == nil {
				result.MessageDatetime = ts
			}
		case "PID":
			result.PatientID = hl7Component(hl7Field(fields, 3), 0)
			result.PatientName = strings.ReplaceAll(hl7Field(fields, 5), "^", " ")
		case "OBX":
			codeField := hl7Field(fields, 3)
			result.Results = append(result.Results, model.ResultLine{
				TestCode:       hl7Component(codeField, 0),
				TestName:       hl7Component(codeField, 1),
				Value:          hl7Field(fields, 5),
				Units:          hl7Field(fields, 6),
				ReferenceRange: hl7Field(fields, 7),
				Flags:          hl7Field(fields, 8),
				Status:         hl7Field(fields, 11),
			})
		}
	}

	if !sawMSH {
		return nil, fmt.Errorf("%w: HL7 message has no MSH segment", ErrDecode)
	}

	return result, nil
}

// EncodeAck builds an ACK message with acknowledgment code AA echoing the
// original message id.
func (c *HL7Codec) EncodeAck(_ context.Context, messageID string) ([]byte, error) {
	now := time.Now().Format(hl7Timestamp)
	ack := fmt.Sprintf("MSH|^~\\&|LIS|LAB|EQP|LAB|%s||ACK|%s|P|2.5.1\r", now, messageID) +
		fmt.Sprintf("MSA|AA|%s|Message received successfully\r", messageID)
	return []byte(ack), nil
}

// EncodeRequest builds a QRY^R02 query, optionally filtered to one patient
func (c *HL7Codec) EncodeRequest(patientID string) ([]byte, error) {
	now := time.Now().Format(hl7Timestamp)
	request := fmt.Sprintf("MSH|^~\\&|LIS|LAB|EQP|LAB|%s||QRY^R02|MSG%s|P|2.5.1\r", now, now) +
		fmt.Sprintf("QRD|%s|R|I|QueryID|||RD|%s|^^^||\r", now, patientID)
	return []byte(request), nil
}

// splitSegments tolerates CR, LF and CRLF segment terminators
func splitSegments(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\r")
	normalized = strings.ReplaceAll(normalized, "\n", "\r")
	return strings.Split(normalized, "\r")
}

// hl7Field returns the nth pipe-delimited field, or "" when absent
func hl7Field(fields []string, index int) string {
	if index < len(fields) {
		return fields[index]
	}
	return ""
}

// hl7Component returns the nth hat-delimited component, or "" when absent
func hl7Component(field string, index int) string {
	components := strings.Split(field, "^")
	if index < len(components) {
		return components[index]
	}
	return ""
}

// truncateTimestamp drops sub-second precision and timezone suffixes
func truncateTimestamp(ts string) string {
	if idx := strings.IndexAny(ts, ".+-"); idx >= 0 {
		ts = ts[:idx]
	}
	if len(ts) > len(hl7Timestamp) {
		ts = ts[:len(hl7Timestamp)]
	}
	return ts
}
