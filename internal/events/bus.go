package events

import (
	"fmt"
	"sync"
	"time"
)

// subscription represents a single event subscription
type subscription struct {
	id      SubscriptionID
	handler EventHandler
}

// DefaultEventBus is the default implementation of EventBus. Events are
// queued on a buffered channel and dispatched from a single goroutine so
// publishers (the polling thread) never block on slow subscribers.
type DefaultEventBus struct {
	subscribers map[EventType][]subscription
	mu          sync.RWMutex

	eventQueue chan Event
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	nextSubID SubscriptionID
	subMu     sync.Mutex
}

// NewEventBus creates a new event bus with the specified queue size
func NewEventBus(bufferSize int) *DefaultEventBus {
	bus := &DefaultEventBus{
		subscribers: make(map[EventType][]subscription),
		eventQueue:  make(chan Event, bufferSize),
		stopCh:      make(chan struct{}),
		nextSubID:   1,
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe registers a handler for a specific event type
func (eb *DefaultEventBus) Subscribe(eventType EventType, handler EventHandler) SubscriptionID {
	eb.subMu.Lock()
	subID := eb.nextSubID
	eb.nextSubID++
	eb.subMu.Unlock()

	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscription{
		id:      subID,
		handler: handler,
	})

	return subID
}

// Unsubscribe removes a subscription by ID
func (eb *DefaultEventBus) Unsubscribe(id SubscriptionID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for eventType, subs := range eb.subscribers {
		for i, sub := range subs {
			if sub.id == id {
				eb.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues an event for delivery to all subscribers
func (eb *DefaultEventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case eb.eventQueue <- event:
	case <-eb.stopCh:
		fmt.Printf("[EventBus] Dropped event (bus stopped): %v\n", event.Type)
	}
}

// Stop stops the event bus and drains remaining events
func (eb *DefaultEventBus) Stop() {
	eb.stopOnce.Do(func() { close(eb.stopCh) })
	eb.wg.Wait()
}

func (eb *DefaultEventBus) processEvents() {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.eventQueue:
			eb.dispatch(event)

		case <-eb.stopCh:
			// Drain remaining events before stopping
			for {
				select {
				case event := <-eb.eventQueue:
					eb.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (eb *DefaultEventBus) dispatch(event Event) {
	eb.mu.RLock()
	subs := eb.subscribers[event.Type]
	handlers := make([]EventHandler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	eb.mu.RUnlock()

	for _, handler := range handlers {
		eb.safeHandlerCall(handler, event)
	}
}

// safeHandlerCall invokes a handler with panic recovery so a bad
// subscriber cannot take down the dispatch goroutine
func (eb *DefaultEventBus) safeHandlerCall(handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[EventBus] Handler panic for event %v: %v\n", event.Type, r)
		}
	}()

	handler(event)
}

// SubscriberCount returns the number of subscribers for an event type
func (eb *DefaultEventBus) SubscriberCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[eventType])
}

// QueueSize returns the current number of undispatched events
func (eb *DefaultEventBus) QueueSize() int {
	return len(eb.eventQueue)
}
