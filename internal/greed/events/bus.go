package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Bus is a synchronous event bus. Publish delivers to every interested
// subscriber before returning, which keeps store writes and the
// reactive queries that depend on them sequentially consistent.
type Bus struct {
	subscribers  map[string]Subscriber
	funcHandlers map[string][]Handler
	nextHandler  int
	mu           sync.RWMutex
	logger       zerolog.Logger
}

// NewBus creates a new event bus instance.
func NewBus() *Bus {
	return &Bus{
		subscribers:  make(map[string]Subscriber),
		funcHandlers: make(map[string][]Handler),
		logger:       log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe adds a new subscriber to the bus.
func (b *Bus) Subscribe(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[subscriber.ID()] = subscriber
	b.logger.Debug().
		Str("subscriber_id", subscriber.ID()).
		Msg("Subscriber added to event bus")
}

// Unsubscribe removes a subscriber from the bus.
func (b *Bus) Unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, subscriberID)
	b.logger.Debug().
		Str("subscriber_id", subscriberID).
		Msg("Subscriber removed from event bus")
}

// SubscribeFunc adds a function handler for a specific event type and
// returns its handler id.
func (b *Bus) SubscribeFunc(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.funcHandlers[eventType] = append(b.funcHandlers[eventType], handler)
	b.nextHandler++

	handlerID := fmt.Sprintf("%s_func_%d", eventType, b.nextHandler)
	b.logger.Debug().
		Str("event_type", eventType).
		Str("handler_id", handlerID).
		Msg("Function handler added to event bus")

	return handlerID
}

// Publish sends an event to all interested subscribers synchronously.
// A panicking subscriber never breaks the others.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	eventType := event.Type()

	b.logger.Debug().
		Str("event_type", eventType).
		Str("collection", event.Collection()).
		Time("timestamp", event.Timestamp()).
		Msg("Publishing event")

	for id, subscriber := range b.subscribers {
		if subscriber.InterestedIn(eventType) {
			func() {
				defer func() {
					if r := recover(); r != nil {
						b.logger.Error().
							Str("subscriber_id", id).
							Str("event_type", eventType).
							Interface("panic", r).
							Msg("Subscriber panicked while handling event")
					}
				}()
				subscriber.HandleEvent(event)
			}()
		}
	}

	for i, handler := range b.funcHandlers[eventType] {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error().
						Str("event_type", eventType).
						Int("handler_index", i).
						Interface("panic", r).
						Msg("Function handler panicked while handling event")
				}
			}()
			handler(event)
		}()
	}
}

// SubscriberCount returns the number of subscribers for debugging.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// FuncHandlerCount returns the number of function handlers registered
// for an event type.
func (b *Bus) FuncHandlerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.funcHandlers[eventType])
}
