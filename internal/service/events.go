package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventReconcileStarted  EventType = "reconcile_started"
	EventActionApplied     EventType = "action_applied"
	EventReconcileComplete EventType = "reconcile_complete"
	EventDispatchAttempt   EventType = "dispatch_attempt"
	EventDispatchComplete  EventType = "dispatch_complete"
	EventDiscovery         EventType = "discovery"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// PublishDiscoveryEvent forwards discovery source progress to subscribers
func (eb *EventBus) PublishDiscoveryEvent(eventType string, payload interface{}) {
	eb.Publish(Event{
		Type: EventDiscovery,
		Payload: map[string]interface{}{
			"event": eventType,
			"data":  payload,
		},
	})
}
