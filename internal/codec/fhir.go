// internal/codec/fhir.go
package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"lis-service/internal/model"
)

// fhirObservation is the subset of a FHIR Observation resource we consume
type fhirObservation struct {
	ResourceType      string          `json:"resourceType"`
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	EffectiveDateTime string          `json:"effectiveDateTime"`
	Subject           fhirReference   `json:"subject"`
	Component         []fhirComponent `json:"component"`
}

type fhirReference struct {
	Reference string `json:"reference"`
	Display   string `json:"display"`
}

type fhirComponent struct {
	Code           fhirCodeableConcept  `json:"code"`
	ValueQuantity  fhirQuantity         `json:"valueQuantity"`
	ReferenceRange []fhirReferenceRange `json:"referenceRange"`
}

type fhirCodeableConcept struct {
	Coding []fhirCoding `json:"coding"`
}

type fhirCoding struct {
	Code    string `json:"code"`
	Display string `json:"display"`
}

type fhirQuantity struct {
	Value json.Number `json:"value"`
	Unit  string      `json:"unit"`
}

type fhirReferenceRange struct {
	Text string `json:"text"`
}

// FHIRCodec handles HL7-FHIR Observation resources. Acknowledgments travel
// out of band as a REST call to the configured endpoint, so EncodeAck returns
// no frame for the transport.
type FHIRCodec struct {
	endpoint string
	client   *resty.Client
	logger   *zap.Logger
}

// NewFHIRCodec creates a FHIR codec bound to a result endpoint
func NewFHIRCodec(endpoint string, logger *zap.Logger) *FHIRCodec {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/fhir+json")

	return &FHIRCodec{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
		logger:   logger.With(zap.String("codec", "fhir"), zap.String("endpoint", endpoint)),
	}
}

// Decode parses a JSON Observation resource into the canonical result shape
func (c *FHIRCodec) Decode(raw []byte) (*model.IncomingResult, error) {
	var observation fhirObservation
	if err := json.Unmarshal(raw, &observation); err != nil {
		return nil, fmt.Errorf("%w: invalid FHIR JSON: %v", ErrDecode, err)
	}

	result := &model.IncomingResult{
		MessageID:       observation.ID,
		MessageDatetime: time.Now(),
		PatientName:     observation.Subject.Display,
		RawMessage:      string(raw),
	}

	// Patient id is the last path segment of subject.reference
	if ref := observation.Subject.Reference; ref != "" {
		parts := strings.Split(ref, "/")
		result.PatientID = parts[len(parts)-1]
	}

	if ts, err := time.Parse(time.RFC3339, observation.EffectiveDateTime); err == nil {
		result.MessageDatetime = ts
	}

	for _, component := range observation.Component {
		line := model.ResultLine{
			Value:  component.ValueQuantity.Value.String(),
			Units:  component.ValueQuantity.Unit,
			Status: observation.Status,
		}
		if len(component.Code.Coding) > 0 {
			line.TestCode = component.Code.Coding[0].Code
			line.TestName = component.Code.Coding[0].Display
		}
		if len(component.ReferenceRange) > 0 {
			line.ReferenceRange = component.ReferenceRange[0].Text
		}
		result.Results = append(result.Results, line)
	}

	return result, nil
}

// EncodeAck posts a MessageHeader acknowledgment to the result endpoint.
// Acknowledgment is best-effort on this transport: delivery failures come
// back as errors for the caller to log, never as a reason to tear down the
// connection. The returned frame is always nil.
func (c *FHIRCodec) EncodeAck(ctx context.Context, messageID string) ([]byte, error) {
	ackBody := map[string]interface{}{
		"resourceType": "MessageHeader",
		"response": map[string]interface{}{
			"identifier": messageID,
			"code":       "ok",
		},
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(ackBody).
		Post(c.endpoint + "/$process-message")

	if err != nil {
		c.logger.Warn("FHIR acknowledgment failed", zap.Error(err), zap.String("message_id", messageID))
		return nil, fmt.Errorf("FHIR acknowledgment failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		c.logger.Warn("FHIR acknowledgment rejected",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message_id", messageID),
		)
		return nil, fmt.Errorf("FHIR acknowledgment rejected with status %d", resp.StatusCode())
	}

	return nil, nil
}

// EncodeRequest builds a FHIR Parameters resource requesting all results
// for a patient
func (c *FHIRCodec) EncodeRequest(patientID string) ([]byte, error) {
	request := map[string]interface{}{
		"resourceType": "Parameters",
		"parameter": []map[string]interface{}{
			{"name": "patient", "valueString": patientID},
			{"name": "type", "valueString": "ALL"},
		},
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to build FHIR request: %w", err)
	}
	return data, nil
}
