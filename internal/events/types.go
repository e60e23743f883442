package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Capture events
	EventTypeFrameCaptured EventType = "capture.frame"
	EventTypeCaptureFailed EventType = "capture.failed"

	// Matching events
	EventTypeMatchFound  EventType = "match.found"
	EventTypeMatchAbsent EventType = "match.absent"

	// Macro events
	EventTypeMacroCreated  EventType = "macro.created"
	EventTypeMacroExecuted EventType = "macro.executed"
	EventTypeMacroReloaded EventType = "macro.reloaded"

	// Orchestrator events
	EventTypeTimingChanged EventType = "timing.changed"
	EventTypeCycleComplete EventType = "cycle.complete"

	// Error events
	EventTypeError EventType = "error"
)

// Event represents a system event with metadata
type Event struct {
	Type      EventType
	Source    string // Component that emitted the event (e.g. "orchestrator", "registry")
	Timestamp time.Time
	Data      map[string]interface{}
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID
	Unsubscribe(id SubscriptionID)
	Publish(event Event)
	Stop()
}

// Helper constructors for the events the automation core emits

// NewFrameCapturedEvent signals that a fresh device frame is available
func NewFrameCapturedEvent(device string, width, height int) Event {
	return Event{
		Type:      EventTypeFrameCaptured,
		Source:    "capture",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"device": device,
			"width":  width,
			"height": height,
		},
	}
}

// NewMatchFoundEvent signals a template matched above its threshold
func NewMatchFoundEvent(template string, confidence float64, x, y int) Event {
	return Event{
		Type:      EventTypeMatchFound,
		Source:    "orchestrator",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"template":   template,
			"confidence": confidence,
			"x":          x,
			"y":          y,
		},
	}
}

// NewMatchAbsentEvent signals a completed cycle with no template above threshold
func NewMatchAbsentEvent() Event {
	return Event{
		Type:      EventTypeMatchAbsent,
		Source:    "orchestrator",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{},
	}
}

// NewMacroCreatedEvent signals a macro was auto-created for a template image
func NewMacroCreatedEvent(name, triggerImage string) Event {
	return Event{
		Type:      EventTypeMacroCreated,
		Source:    "registry",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"name":          name,
			"trigger_image": triggerImage,
		},
	}
}

// NewMacroExecutedEvent signals a macro invocation finished
func NewMacroExecutedEvent(name string, success bool) Event {
	return Event{
		Type:      EventTypeMacroExecuted,
		Source:    "executor",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"name":    name,
			"success": success,
		},
	}
}

// NewTimingChangedEvent signals the polling interval changed
func NewTimingChangedEvent(mode string, intervalSeconds float64) Event {
	return Event{
		Type:      EventTypeTimingChanged,
		Source:    "orchestrator",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"mode":             mode,
			"interval_seconds": intervalSeconds,
		},
	}
}

// NewErrorEvent wraps a component error for subscribers
func NewErrorEvent(source string, err error) Event {
	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"error": err.Error(),
		},
	}
}
