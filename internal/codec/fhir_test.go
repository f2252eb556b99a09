// internal/codec/fhir_test.go
package codec

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fhirObservationJSON = `{
	"resourceType": "Observation",
	"id": "obs-001",
	"status": "final",
	"effectiveDateTime": "2024-01-15T10:30:00Z",
	"subject": {"reference": "Patient/PT004", "display": "Jane Roe"},
	"component": [
		{
			"code": {"coding": [{"code": "GLU", "display": "Glucose"}]},
			"valueQuantity": {"value": 105, "unit": "mg/dL"},
			"referenceRange": [{"text": "70-110"}]
		},
		{
			"code": {"coding": [{"code": "CRE", "display": "Creatinine"}]},
			"valueQuantity": {"value": 0.9, "unit": "mg/dL"},
			"referenceRange": [{"text": "0.6-1.2"}]
		}
	]
}`

func TestFHIRDecode_Observation(t *testing.T) {
	codec := NewFHIRCodec("http://fhir.local/r4", zap.NewNop())

	result, err := codec.Decode([]byte(fhirObservationJSON))
	require.NoError(t, err)

	assert.Equal(t, "obs-001", result.MessageID)
	assert.Equal(t, "PT004", result.PatientID)
	assert.Equal(t, "Jane Roe", result.PatientName)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), result.MessageDatetime)

	require.Len(t, result.Results, 2)
	glucose := result.Results[0]
	assert.Equal(t, "GLU", glucose.TestCode)
	assert.Equal(t, "Glucose", glucose.TestName)
	assert.Equal(t, "105", glucose.Value)
	assert.Equal(t, "mg/dL", glucose.Units)
	assert.Equal(t, "70-110", glucose.ReferenceRange)
	assert.Equal(t, "final", glucose.Status)

	// Decimal values survive as written, not as float artifacts
	assert.Equal(t, "0.9", result.Results[1].Value)
}

func TestFHIRDecode_InvalidJSONRejected(t *testing.T) {
	codec := NewFHIRCodec("http://fhir.local/r4", zap.NewNop())

	_, err := codec.Decode([]byte("MSH|^~\\&|not json"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFHIREncodeAck_PostsMessageHeader(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	codec := NewFHIRCodec(server.URL, zap.NewNop())

	frame, err := codec.EncodeAck(context.Background(), "obs-001")
	require.NoError(t, err)
	assert.Nil(t, frame, "FHIR acknowledgments travel out of band, no frame expected")

	assert.Equal(t, "/$process-message", gotPath)
	assert.Equal(t, "MessageHeader", gotBody["resourceType"])
	response := gotBody["response"].(map[string]interface{})
	assert.Equal(t, "obs-001", response["identifier"])
	assert.Equal(t, "ok", response["code"])
}

func TestFHIREncodeAck_RejectionIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	codec := NewFHIRCodec(server.URL, zap.NewNop())

	frame, err := codec.EncodeAck(context.Background(), "obs-001")
	assert.Nil(t, frame)
	assert.Error(t, err)
}

func TestFHIREncodeAck_UnreachableEndpointIsError(t *testing.T) {
	codec := NewFHIRCodec("http://127.0.0.1:1", zap.NewNop())

	_, err := codec.EncodeAck(context.Background(), "obs-001")
	assert.Error(t, err)
}

func TestFHIREncodeRequest(t *testing.T) {
	codec := NewFHIRCodec("http://fhir.local/r4", zap.NewNop())

	frame, err := codec.EncodeRequest("PT004")
	require.NoError(t, err)

	var request map[string]interface{}
	require.NoError(t, json.Unmarshal(frame, &request))
	assert.Equal(t, "Parameters", request["resourceType"])

	params := request["parameter"].([]interface{})
	first := params[0].(map[string]interface{})
	assert.Equal(t, "patient", first["name"])
	assert.Equal(t, "PT004", first["valueString"])
}
