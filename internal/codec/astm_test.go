// internal/codec/astm_test.go
package codec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestASTMDecode_ResultMessage(t *testing.T) {
	codec := NewASTMCodec(zap.NewNop())

	raw := "\x02H|\\^&|||EQP|||MSG2||P|1\r" +
		"P|1||PT002|Smith^Alice\r" +
		"R|1|HGB^Hemoglobin|14.2|g/dL|12-16|L||F\r\x03\r\n"

	result, err := codec.Decode([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "MSG2", result.MessageID)
	assert.Equal(t, "PT002", result.PatientID)
	assert.Equal(t, "Smith Alice", result.PatientName)
	assert.Equal(t, raw, result.RawMessage)

	require.Len(t, result.Results, 1)
	line := result.Results[0]
	assert.Equal(t, "HGB", line.TestCode)
	assert.Equal(t, "Hemoglobin", line.TestName)
	assert.Equal(t, "14.2", line.Value)
	assert.Equal(t, "g/dL", line.Units)
	assert.Equal(t, "12-16", line.ReferenceRange)
	assert.Equal(t, "L", line.Flags)
	assert.Equal(t, "F", line.Status)
}

func TestASTMDecode_StatusFallbackForShortRecords(t *testing.T) {
	codec := NewASTMCodec(zap.NewNop())

	// Analyzers that omit trailing delimiters transmit the status one field
	// earlier; the codec must still find it
	raw := "H|\\^&|||EQP|||MSG3||P|1\r" +
		"P|1||PT002\r" +
		"R|1|HGB|14.2|g/dL|12-16||F\r"

	result, err := codec.Decode([]byte(raw))
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	line := result.Results[0]
	assert.Equal(t, "HGB", line.TestCode)
	assert.Empty(t, line.TestName)
	assert.Empty(t, line.Flags)
	assert.Equal(t, "F", line.Status)
}

func TestASTMDecode_MultipleResults(t *testing.T) {
	codec := NewASTMCodec(zap.NewNop())

	raw := "H|\\^&|||EQP|||MSG4||P|1\r" +
		"P|1||PT003\r" +
		"R|1|WBC^White Blood Cells|6.2|10*9/L|4.0-11.0|||F\r" +
		"R|2|RBC^Red Blood Cells|4.8|10*12/L|4.2-5.9|||F\r"

	result, err := codec.Decode([]byte(raw))
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, "WBC", result.Results[0].TestCode)
	assert.Equal(t, "RBC", result.Results[1].TestCode)
}

func TestASTMDecode_UnknownRecordsIgnored(t *testing.T) {
	codec := NewASTMCodec(zap.NewNop())

	raw := "H|\\^&|||EQP|||MSG5||P|1\r" +
		"C|1|I|comment record\r" +
		"L|1|N\r"

	result, err := codec.Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "MSG5", result.MessageID)
	assert.Empty(t, result.Results)
}

func TestASTMDecode_NoRecordsRejected(t *testing.T) {
	codec := NewASTMCodec(zap.NewNop())

	_, err := codec.Decode([]byte("\x02\x03\r\n"))
	assert.ErrorIs(t, err, ErrDecode)

	_, err = codec.Decode([]byte("X|garbage\r"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestASTMEncodeAck_RoundTrip(t *testing.T) {
	codec := NewASTMCodec(zap.NewNop())

	frame, err := codec.EncodeAck(context.Background(), "MSG2")
	require.NoError(t, err)
	require.NotNil(t, frame)

	// The frame arrives pre-framed for the serial line
	assert.Equal(t, byte(0x02), frame[0])

	// The acknowledgment header must echo the message id where the next
	// decoder expects it
	decoded, err := codec.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "MSG2", decoded.MessageID)
}

func TestASTMEncodeRequest(t *testing.T) {
	codec := NewASTMCodec(zap.NewNop())

	frame, err := codec.EncodeRequest("PT002")
	require.NoError(t, err)

	text := string(frame)
	assert.Equal(t, byte(0x02), frame[0])
	assert.Contains(t, text, "Q|1|PT002^ALL||ALL")
}
