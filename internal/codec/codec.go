// internal/codec/codec.go
package codec

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"lis-service/internal/model"
)

// Codec errors
var (
	// ErrDecode marks a single malformed message. The listener skips the
	// message and keeps the connection alive.
	ErrDecode = errors.New("protocol decode error")

	// ErrUnsupportedProtocol is returned at connect time for protocol values
	// without a concrete codec.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)

// Codec translates between one wire protocol and the canonical result model.
// EncodeAck returns the acknowledgment frame to transmit over the equipment
// link; codecs that deliver acknowledgments out of band (FHIR) perform the
// delivery themselves and return a nil frame.
type Codec interface {
	Decode(raw []byte) (*model.IncomingResult, error)
	EncodeAck(ctx context.Context, messageID string) ([]byte, error)
	EncodeRequest(patientID string) ([]byte, error)
}

// NewCodec builds the codec matching the equipment's protocol. Only HL7, ASTM
// and HL7-FHIR have concrete codecs; every other protocol value fails here,
// at connect time, never at first message.
func NewCodec(equipment *model.Equipment, logger *zap.Logger) (Codec, error) {
	switch equipment.Protocol {
	case model.ProtocolHL7:
		return NewHL7Codec(logger), nil
	case model.ProtocolASTM:
		return NewASTMCodec(logger), nil
	case model.ProtocolHL7FHIR:
		if equipment.ResultEndpoint == nil || *equipment.ResultEndpoint == "" {
			return nil, fmt.Errorf("%w: HL7-FHIR requires a result endpoint", ErrUnsupportedProtocol)
		}
		return NewFHIRCodec(*equipment.ResultEndpoint, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, equipment.Protocol)
	}
}
