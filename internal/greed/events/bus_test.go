package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_SubscribeFunc_ReceivesEvent(t *testing.T) {
	bus := NewBus()

	received := false
	var receivedEvent Event

	bus.SubscribeFunc(TypeGameSaved, func(e Event) {
		received = true
		receivedEvent = e
	})

	event := NewChange(TypeGameSaved, CollectionGames, 42)
	bus.Publish(event)

	assert.True(t, received, "Handler should have been called")
	assert.Equal(t, TypeGameSaved, receivedEvent.Type())
	assert.Equal(t, CollectionGames, receivedEvent.Collection())
	assert.Equal(t, int64(42), receivedEvent.(ChangeEvent).RecordID)
}

func TestBus_SubscribeFunc_FiltersByType(t *testing.T) {
	bus := NewBus()

	called := false
	bus.SubscribeFunc(TypeTurnAppended, func(e Event) {
		called = true
	})

	bus.Publish(NewChange(TypeGameSaved, CollectionGames, 1))

	assert.False(t, called, "Handler for a different event type must not fire")
}

func TestBus_MultipleHandlers_AllCalled(t *testing.T) {
	bus := NewBus()

	handler1Called := false
	handler2Called := false

	bus.SubscribeFunc(TypeTurnVoided, func(e Event) { handler1Called = true })
	bus.SubscribeFunc(TypeTurnVoided, func(e Event) { handler2Called = true })

	bus.Publish(NewChange(TypeTurnVoided, CollectionTurns, 3))

	assert.True(t, handler1Called)
	assert.True(t, handler2Called)
	assert.Equal(t, 2, bus.FuncHandlerCount(TypeTurnVoided))
}

// testSubscriber is a test implementation of Subscriber
type testSubscriber struct {
	id              string
	interestedTypes map[string]bool
	receivedEvents  []Event
}

func (ts *testSubscriber) ID() string {
	return ts.id
}

func (ts *testSubscriber) HandleEvent(e Event) {
	ts.receivedEvents = append(ts.receivedEvents, e)
}

func (ts *testSubscriber) InterestedIn(eventType string) bool {
	if ts.interestedTypes == nil {
		return true
	}
	return ts.interestedTypes[eventType]
}

func TestBus_Subscriber_ReceivesInterestedTypesOnly(t *testing.T) {
	bus := NewBus()

	sub := &testSubscriber{
		id: "query-cache",
		interestedTypes: map[string]bool{
			TypeTurnAppended: true,
			TypeTurnVoided:   true,
		},
	}
	bus.Subscribe(sub)

	bus.Publish(NewChange(TypeTurnAppended, CollectionTurns, 1))
	bus.Publish(NewChange(TypeGameSaved, CollectionGames, 1))
	bus.Publish(NewChange(TypeTurnVoided, CollectionTurns, 1))

	assert.Len(t, sub.receivedEvents, 2)
	assert.Equal(t, TypeTurnAppended, sub.receivedEvents[0].Type())
	assert.Equal(t, TypeTurnVoided, sub.receivedEvents[1].Type())
}

func TestBus_Unsubscribe_StopsDelivery(t *testing.T) {
	bus := NewBus()

	sub := &testSubscriber{id: "query-cache"}
	bus.Subscribe(sub)
	assert.Equal(t, 1, bus.SubscriberCount())

	bus.Unsubscribe("query-cache")
	bus.Publish(NewChange(TypeGameSaved, CollectionGames, 1))

	assert.Equal(t, 0, bus.SubscriberCount())
	assert.Empty(t, sub.receivedEvents)
}

func TestBus_PanickingHandler_DoesNotBreakOthers(t *testing.T) {
	bus := NewBus()

	bus.SubscribeFunc(TypeGameSaved, func(e Event) {
		panic("bad handler")
	})

	secondCalled := false
	bus.SubscribeFunc(TypeGameSaved, func(e Event) {
		secondCalled = true
	})

	assert.NotPanics(t, func() {
		bus.Publish(NewChange(TypeGameSaved, CollectionGames, 1))
	})
	assert.True(t, secondCalled, "Panic in one handler must not stop the rest")
}
