// internal/equipment/listener.go
package equipment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"lis-service/internal/config"
	"lis-service/internal/model"
)

// ResultStore is the persistence sink for decoded result batches
type ResultStore interface {
	SaveBatch(ctx context.Context, results []*model.TestResult) error
}

// SeenRecorder records when equipment last produced traffic. Recording is
// best-effort; failures never affect ingestion.
type SeenRecorder interface {
	UpdateLastSeen(ctx context.Context, id int64, seenAt time.Time) error
}

// ListenerState is the lifecycle state of one equipment listener
type ListenerState string

const (
	ListenerIdle      ListenerState = "IDLE"
	ListenerListening ListenerState = "LISTENING"
	ListenerStopping  ListenerState = "STOPPING"
)

// listener tracks one running ingestion loop
type listener struct {
	state  ListenerState
	cancel context.CancelFunc
	done   chan struct{}
}

// ListenerManager runs one ingestion loop per connected equipment. Loops are
// independent: a fatal error in one never affects the others.
type ListenerManager struct {
	mu        sync.Mutex
	listeners map[int64]*listener

	registry *Registry
	store    ResultStore
	seen     SeenRecorder
	cfg      *config.EquipmentConfig
	events   EventPublisher
	logger   *zap.Logger
}

// NewListenerManager creates a listener manager. seen may be nil.
func NewListenerManager(registry *Registry, store ResultStore, seen SeenRecorder, cfg *config.EquipmentConfig, events EventPublisher, logger *zap.Logger) *ListenerManager {
	if events == nil {
		events = noopPublisher{}
	}
	return &ListenerManager{
		listeners: make(map[int64]*listener),
		registry:  registry,
		store:     store,
		seen:      seen,
		cfg:       cfg,
		events:    events,
		logger:    logger,
	}
}

// State returns the lifecycle state for an equipment id
func (m *ListenerManager) State(id int64) ListenerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, exists := m.listeners[id]; exists {
		return l.state
	}
	return ListenerIdle
}

// Start begins the ingestion loop for a connected equipment. The loop runs
// in the background; Start returns as soon as it is scheduled.
func (m *ListenerManager) Start(eq *model.Equipment) error {
	conn, exists := m.registry.Get(eq.ID)
	if !exists {
		return fmt.Errorf("%w: equipment %d", ErrNotConnected, eq.ID)
	}

	m.mu.Lock()
	if _, running := m.listeners[eq.ID]; running {
		m.mu.Unlock()
		return fmt.Errorf("%w: equipment %d", ErrAlreadyListening, eq.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &listener{
		state:  ListenerListening,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.listeners[eq.ID] = l
	m.mu.Unlock()

	go m.run(ctx, eq, conn, l)

	m.logger.Info("Listener started", zap.Int64("equipment_id", eq.ID))
	m.events.Publish(model.NewEquipmentEvent(model.EventListenerStarted, eq.ID, "INFO", nil))
	return nil
}

// Stop cancels the equipment's loop and waits for it to finish, so the
// caller can safely disconnect the transport afterwards. Stopping an idle
// equipment is a no-op.
func (m *ListenerManager) Stop(id int64) error {
	m.mu.Lock()
	l, exists := m.listeners[id]
	if !exists {
		m.mu.Unlock()
		return nil
	}
	l.state = ListenerStopping
	m.mu.Unlock()

	l.cancel()
	<-l.done

	m.logger.Info("Listener stopped", zap.Int64("equipment_id", id))
	return nil
}

// StopAll stops every running listener, awaiting each
func (m *ListenerManager) StopAll() {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Stop(id)
	}
}

// run is the ingestion loop body. Decode and persistence failures are
// contained within one iteration; transport errors and panics are fatal to
// this listener only and remove the registry entry.
func (m *ListenerManager) run(ctx context.Context, eq *model.Equipment, conn *ActiveConnection, l *listener) {
	logger := m.logger.With(zap.Int64("equipment_id", eq.ID))
	fatal := false

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Listener panicked", zap.Any("panic", r))
			fatal = true
		}

		m.mu.Lock()
		delete(m.listeners, eq.ID)
		m.mu.Unlock()

		if fatal {
			m.registry.Disconnect(eq.ID)
			m.events.Publish(model.NewEquipmentEvent(model.EventEquipmentError, eq.ID, "ERROR", nil))
		}
		m.events.Publish(model.NewEquipmentEvent(model.EventListenerStopped, eq.ID, "INFO", nil))
		close(l.done)
	}()

	pollInterval := m.cfg.DefaultPollInterval
	if eq.PollingInterval != nil && *eq.PollingInterval > 0 {
		pollInterval = time.Duration(*eq.PollingInterval) * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := conn.Transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Transport receive failed, terminating listener", zap.Error(err))
			fatal = true
			return
		}

		if len(raw) == 0 {
			if !sleepCtx(ctx, pollInterval) {
				return
			}
			continue
		}

		parsed, err := conn.Codec.Decode(raw)
		if err != nil {
			logger.Warn("Discarding undecodable message",
				zap.Error(err),
				zap.String("payload_snippet", snippet(raw)),
			)
			if !sleepCtx(ctx, m.cfg.ErrorBackoff) {
				return
			}
			continue
		}

		if err := m.persist(ctx, eq, parsed); err != nil {
			logger.Error("Failed to persist result batch",
				zap.Error(err),
				zap.String("message_id", parsed.MessageID),
			)
			if !sleepCtx(ctx, m.cfg.ErrorBackoff) {
				return
			}
			continue
		}

		if m.seen != nil {
			if err := m.seen.UpdateLastSeen(ctx, eq.ID, time.Now()); err != nil {
				logger.Debug("Failed to record last seen", zap.Error(err))
			}
		}

		m.events.Publish(model.NewEquipmentEvent(model.EventResultReceived, eq.ID, "INFO", model.ResultReceivedEventData{
			MessageID:   parsed.MessageID,
			PatientID:   parsed.PatientID,
			ResultCount: len(parsed.Results),
		}))

		if eq.RequiresAcknowledgment() {
			m.acknowledge(ctx, eq, conn, parsed.MessageID)
		}
	}
}

// persist maps the decoded batch to result rows and saves them in one
// transaction, tagged with the equipment and patient ids
func (m *ListenerManager) persist(ctx context.Context, eq *model.Equipment, parsed *model.IncomingResult) error {
	rows := make([]*model.TestResult, 0, len(parsed.Results))
	for _, line := range parsed.Results {
		row := &model.TestResult{
			EquipmentID:    eq.ID,
			PatientID:      parsed.PatientID,
			TestCode:       line.TestCode,
			TestName:       line.TestName,
			ResultValue:    line.Value,
			Units:          line.Units,
			ReferenceRange: line.ReferenceRange,
			Flags:          line.Flags,
			Status:         line.Status,
			ResultDatetime: parsed.MessageDatetime,
			RawMessage:     parsed.RawMessage,
		}
		deriveFlags(row)
		rows = append(rows, row)
	}

	return m.store.SaveBatch(ctx, rows)
}

// acknowledge sends the protocol acknowledgment for a processed message.
// Failures are logged and published, never fatal.
func (m *ListenerManager) acknowledge(ctx context.Context, eq *model.Equipment, conn *ActiveConnection, messageID string) {
	frame, err := conn.Codec.EncodeAck(ctx, messageID)
	if err == nil && frame != nil {
		err = conn.Transport.Send(ctx, frame)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("Acknowledgment failed",
			zap.Int64("equipment_id", eq.ID),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		m.events.Publish(model.NewEquipmentEvent(model.EventAckFailed, eq.ID, "WARNING", model.JSONObject{
			"message_id": messageID,
		}))
	}
}

// sleepCtx sleeps for d, returning false if the context was cancelled first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// snippet truncates a payload for log context
func snippet(raw []byte) string {
	const maxLen = 120
	if len(raw) > maxLen {
		return string(raw[:maxLen]) + "..."
	}
	return string(raw)
}
