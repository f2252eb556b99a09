// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"lis-service/internal/model"
)

// topicAll receives every event regardless of type
const topicAll = "*"

// EventBus distributes equipment events to in-process subscribers. It
// satisfies the equipment layer's publisher interface, so the registry and
// listeners publish here without knowing about WebSocket delivery.
type EventBus struct {
	subscribers map[string][]chan model.EquipmentEvent
	events      chan model.EquipmentEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan model.EquipmentEvent),
		events:      make(chan model.EquipmentEvent, 1000),
		logger:      logger,
	}
}

// Start runs the distribution loop until the bus is closed
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distributeEvent(event)
	}
}

// Publish enqueues an event. Publishing never blocks; when the bus is full
// the event is dropped with a warning.
func (eb *EventBus) Publish(event model.EquipmentEvent) {
	select {
	case eb.events <- event:
	default:
		if eb.logger != nil {
			eb.logger.Warn("Event bus full, dropping event",
				zap.String("event_type", string(event.EventType)),
				zap.Int64("equipment_id", event.EquipmentID),
			)
		}
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType model.EventType) <-chan model.EquipmentEvent {
	return eb.subscribe(string(eventType))
}

// SubscribeAll subscribes to every event type
func (eb *EventBus) SubscribeAll() <-chan model.EquipmentEvent {
	return eb.subscribe(topicAll)
}

func (eb *EventBus) subscribe(topic string) <-chan model.EquipmentEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.EquipmentEvent, 100)
	eb.subscribers[topic] = append(eb.subscribers[topic], subscriber)
	return subscriber
}

// distributeEvent fans an event out to its type's subscribers and to the
// wildcard subscribers
func (eb *EventBus) distributeEvent(event model.EquipmentEvent) {
	eb.mutex.RLock()
	subscribers := append([]chan model.EquipmentEvent{}, eb.subscribers[string(event.EventType)]...)
	subscribers = append(subscribers, eb.subscribers[topicAll]...)
	eb.mutex.RUnlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// EquipmentEventHandler bridges bus events onto WebSocket clients
type EquipmentEventHandler struct {
	websocketHandler *WebSocketHandler
	logger           *zap.Logger
}

// NewEquipmentEventHandler creates a new equipment event handler
func NewEquipmentEventHandler(websocketHandler *WebSocketHandler, logger *zap.Logger) *EquipmentEventHandler {
	return &EquipmentEventHandler{
		websocketHandler: websocketHandler,
		logger:           logger,
	}
}

// Run forwards every bus event to WebSocket clients until the channel closes
func (eeh *EquipmentEventHandler) Run(events <-chan model.EquipmentEvent) {
	for event := range events {
		eeh.websocketHandler.BroadcastEquipmentEvent(event)

		if event.Severity == "ERROR" {
			eeh.logger.Warn("Equipment error event broadcasted",
				zap.Int64("equipment_id", event.EquipmentID),
				zap.String("event_type", string(event.EventType)),
			)
		}
	}
}
