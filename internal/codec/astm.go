// internal/codec/astm.go
package codec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lis-service/internal/model"
)

// ASTMCodec handles ASTM E1394 record streams framed with STX/ETX
type ASTMCodec struct {
	logger *zap.Logger
}

// NewASTMCodec creates an ASTM codec
func NewASTMCodec(logger *zap.Logger) *ASTMCodec {
	return &ASTMCodec{
		logger: logger.With(zap.String("codec", "astm")),
	}
}

// Decode parses an ASTM message into the canonical result shape. Records
// are dispatched on their leading type character; fields past the end of a
// record default to empty strings.
func (c *ASTMCodec) Decode(raw []byte) (*model.IncomingResult, error) {
	text := strings.Trim(string(raw), "\x02\x03\r\n")
	if text == "" {
		return nil, fmt.Errorf("%w: empty ASTM message", ErrDecode)
	}

	result := &model.IncomingResult{
		MessageDatetime: time.Now(),
		RawMessage:      string(raw),
	}

	sawRecord := false
	for _, record := range strings.Split(text, "\r") {
		record = strings.Trim(record, "\x02\x03\n")
		if record == "" {
			continue
		}

		fields := strings.Split(record, "|")
		switch fields[0] {
		case "H":
			sawRecord = true
			result.MessageID = astmField(fields, 7)
		case "P":
			sawRecord = true
			result.PatientID = astmField(fields, 3)
			result.PatientName = strings.ReplaceAll(astmField(fields, 4), "^", " ")
		case "R":
			sawRecord = true
			codeField := astmField(fields, 2)
			code, name := codeField, ""
			if idx := strings.Index(codeField, "^"); idx >= 0 {
				code, name = codeField[:idx], codeField[idx+1:]
			}

			// Analyzers that omit trailing delimiters put the status one
			// field earlier
			status := astmField(fields, 8)
			if status == "" {
				status = astmField(fields, 7)
			}

			result.Results = append(result.Results, model.ResultLine{
				TestCode:       code,
				TestName:       name,
				Value:          astmField(fields, 3),
				Units:          astmField(fields, 4),
				ReferenceRange: astmField(fields, 5),
				Flags:          astmField(fields, 6),
				Status:         status,
			})
		}
	}

	if !sawRecord {
		return nil, fmt.Errorf("%w: ASTM message has no recognizable records", ErrDecode)
	}

	return result, nil
}

// EncodeAck builds a minimal header acknowledgment frame echoing the message id
func (c *ASTMCodec) EncodeAck(_ context.Context, messageID string) ([]byte, error) {
	ack := fmt.Sprintf("\x02H|\\^&|||LIS|LAB||%s||P|1\r\x03\r\n", messageID)
	return []byte(ack), nil
}

// EncodeRequest builds a query frame requesting all pending results,
// optionally scoped to one patient
func (c *ASTMCodec) EncodeRequest(patientID string) ([]byte, error) {
	request := fmt.Sprintf("\x02H|\\^&|||LIS|LAB||%s||P|1\rQ|1|%s^ALL||ALL\r\x03\r\n",
		patientID, patientID)
	return []byte(request), nil
}

// astmField returns the nth field of a record, or "" when absent
func astmField(fields []string, index int) string {
	if index < len(fields) {
		return fields[index]
	}
	return ""
}
