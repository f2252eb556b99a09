// internal/equipment/fakes_test.go
package equipment

import (
	"context"
	"sync"
	"time"

	"lis-service/internal/model"
	"lis-service/internal/protocol"
)

// fakeTransport plays back scripted frames and records what was sent
type fakeTransport struct {
	mu         sync.Mutex
	frames     [][]byte
	sent       [][]byte
	receiveErr error
	sendErr    error
	connected  bool
}

func newFakeTransport(frames ...[]byte) *fakeTransport {
	return &fakeTransport{frames: frames, connected: true}
}

func (t *fakeTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = true
	return nil
}

func (t *fakeTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

func (t *fakeTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *fakeTransport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, data)
	return nil
}

// Receive pops the next scripted frame, then reports silence
func (t *fakeTransport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.receiveErr != nil {
		return nil, t.receiveErr
	}
	if len(t.frames) == 0 {
		return nil, nil
	}
	frame := t.frames[0]
	t.frames = t.frames[1:]
	return frame, nil
}

func (t *fakeTransport) Stats() protocol.TransportStats {
	return protocol.TransportStats{IsConnected: t.IsConnected()}
}

func (t *fakeTransport) sentFrames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte{}, t.sent...)
}

// fakeCodec decodes every frame to a fixed batch keyed by the frame text
type fakeCodec struct {
	mu          sync.Mutex
	decodeErr   error
	decodeErrOn map[string]error
	ackErr      error
	acked       []string
}

func (c *fakeCodec) Decode(raw []byte) (*model.IncomingResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, bad := c.decodeErrOn[string(raw)]; bad {
		return nil, err
	}
	if c.decodeErr != nil {
		return nil, c.decodeErr
	}
	return &model.IncomingResult{
		MessageID:       string(raw),
		MessageDatetime: time.Now(),
		PatientID:       "PT001",
		Results: []model.ResultLine{
			{TestCode: "GLU", Value: "105", ReferenceRange: "70-110"},
		},
		RawMessage: string(raw),
	}, nil
}

func (c *fakeCodec) EncodeAck(_ context.Context, messageID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ackErr != nil {
		return nil, c.ackErr
	}
	c.acked = append(c.acked, messageID)
	return []byte("ACK:" + messageID), nil
}

func (c *fakeCodec) EncodeRequest(patientID string) ([]byte, error) {
	return []byte("REQ:" + patientID), nil
}

// fakeStore records persisted batches
type fakeStore struct {
	mu      sync.Mutex
	saveErr error
	batches [][]*model.TestResult
}

func (s *fakeStore) SaveBatch(ctx context.Context, results []*model.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.batches = append(s.batches, results)
	return nil
}

func (s *fakeStore) savedBatches() [][]*model.TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]*model.TestResult{}, s.batches...)
}

// fakeSeen records last seen updates
type fakeSeen struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeSeen) UpdateLastSeen(ctx context.Context, id int64, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

func (s *fakeSeen) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeEvents captures published events
type fakeEvents struct {
	mu     sync.Mutex
	events []model.EquipmentEvent
}

func (e *fakeEvents) Publish(event model.EquipmentEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *fakeEvents) byType(eventType model.EventType) []model.EquipmentEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var matched []model.EquipmentEvent
	for _, event := range e.events {
		if event.EventType == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
