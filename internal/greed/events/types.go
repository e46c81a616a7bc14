// Package events provides the synchronous change-notification bus the
// record store publishes on. UI layers subscribe to invalidate their
// reactive queries; the core engine never depends on a subscriber
// being present.
package events

import "time"

// Event is the base interface for all store change events.
type Event interface {
	// Type returns the event type for filtering and logging.
	Type() string
	// Timestamp returns when the event occurred.
	Timestamp() time.Time
	// Collection returns the record collection the event belongs to.
	Collection() string
}

// Event type constants.
const (
	TypeGameSaved     = "game.saved"
	TypeGameDeleted   = "game.deleted"
	TypeTurnAppended  = "turn.appended"
	TypeTurnVoided    = "turn.voided"
	TypeTurnsDeleted  = "turns.deleted"
	TypePlayerSaved   = "player.saved"
	TypeSettingsSaved = "settings.saved"
	TypeAppStateSaved = "appstate.saved"
)

// Collection name constants, shared with the store.
const (
	CollectionGames    = "games"
	CollectionTurns    = "turns"
	CollectionPlayers  = "players"
	CollectionSettings = "settings"
	CollectionAppState = "app_state"
)

// ChangeEvent describes one store write: which collection changed and
// which record id, if the write targeted a single record.
type ChangeEvent struct {
	EventType      string    `json:"type"`
	Time           time.Time `json:"timestamp"`
	CollectionName string    `json:"collection"`
	RecordID       int64     `json:"recordId,omitempty"`
}

// Type implements Event.
func (e ChangeEvent) Type() string { return e.EventType }

// Timestamp implements Event.
func (e ChangeEvent) Timestamp() time.Time { return e.Time }

// Collection implements Event.
func (e ChangeEvent) Collection() string { return e.CollectionName }

// NewChange builds a ChangeEvent stamped with the current time.
func NewChange(eventType, collection string, recordID int64) ChangeEvent {
	return ChangeEvent{
		EventType:      eventType,
		Time:           time.Now(),
		CollectionName: collection,
		RecordID:       recordID,
	}
}

// Handler is a function that processes events.
type Handler func(Event)

// Subscriber is an entity that receives events it declares interest in.
type Subscriber interface {
	// ID returns a unique identifier for this subscriber.
	ID() string
	// HandleEvent processes an event.
	HandleEvent(Event)
	// InterestedIn reports whether the subscriber wants this event type.
	InterestedIn(eventType string) bool
}
