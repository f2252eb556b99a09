// internal/codec/codec_test.go
package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lis-service/internal/model"
)

func TestNewCodec_ProtocolSelection(t *testing.T) {
	logger := zap.NewNop()
	endpoint := "http://fhir.local/r4"

	tests := []struct {
		name      string
		equipment *model.Equipment
		wantType  interface{}
		wantErr   error
	}{
		{
			name:      "hl7",
			equipment: &model.Equipment{Protocol: model.ProtocolHL7},
			wantType:  &HL7Codec{},
		},
		{
			name:      "astm",
			equipment: &model.Equipment{Protocol: model.ProtocolASTM},
			wantType:  &ASTMCodec{},
		},
		{
			name:      "fhir with endpoint",
			equipment: &model.Equipment{Protocol: model.ProtocolHL7FHIR, ResultEndpoint: &endpoint},
			wantType:  &FHIRCodec{},
		},
		{
			name:      "fhir without endpoint",
			equipment: &model.Equipment{Protocol: model.ProtocolHL7FHIR},
			wantErr:   ErrUnsupportedProtocol,
		},
		{
			name:      "dicom has no codec",
			equipment: &model.Equipment{Protocol: model.ProtocolDICOM},
			wantErr:   ErrUnsupportedProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCodec(tt.equipment, logger)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, c)
		})
	}
}
