// Package store persists the games, turns, players and settings
// collections plus the small app-state pointers (active game, active
// player). Every write publishes a change event so reactive query
// layers can invalidate.
package store

import (
	"context"
	"time"

	"github.com/israel-dryer/greed/internal/greed"
	"github.com/israel-dryer/greed/internal/greed/events"
)

// Store bundles the per-collection stores behind one handle.
type Store interface {
	Games() GameStore
	Turns() TurnStore
	Players() PlayerStore
	Settings() SettingsStore
	State() StateStore
	Close() error
}

// GameStore persists Game records. Get returns (nil, nil) for a
// missing id; absence is not an error.
type GameStore interface {
	Add(ctx context.Context, g *greed.Game) (int64, error)
	// Put upserts a record under its existing id, used by cloud sync
	// restores.
	Put(ctx context.Context, g *greed.Game) error
	Get(ctx context.Context, id int64) (*greed.Game, error)
	Update(ctx context.Context, g *greed.Game) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*greed.Game, error)
	ListByStatus(ctx context.Context, status greed.GameStatus) ([]*greed.Game, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// TurnStore persists the append-only turn ledger. Committed turns are
// never edited; the only mutation is the void tombstone. Physical
// deletion happens solely through the game-delete cascade and cloud
// restores.
type TurnStore interface {
	Append(ctx context.Context, t *greed.Turn) (int64, error)
	Put(ctx context.Context, t *greed.Turn) error
	Get(ctx context.Context, id int64) (*greed.Turn, error)
	ByGame(ctx context.Context, gameID int64) ([]*greed.Turn, error)
	// ActiveByGame returns the game's non-voided turns.
	ActiveByGame(ctx context.Context, gameID int64) ([]*greed.Turn, error)
	ByPlayer(ctx context.Context, playerID int64) ([]*greed.Turn, error)
	ActiveByPlayer(ctx context.Context, playerID int64) ([]*greed.Turn, error)
	Void(ctx context.Context, id int64, at time.Time, reason string) error
	DeleteByGame(ctx context.Context, gameID int64) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// PlayerStore persists Player records. Players are deactivated, never
// deleted, so historical rosters keep resolving.
type PlayerStore interface {
	Add(ctx context.Context, p *greed.Player) (int64, error)
	Put(ctx context.Context, p *greed.Player) error
	Get(ctx context.Context, id int64) (*greed.Player, error)
	Update(ctx context.Context, p *greed.Player) error
	List(ctx context.Context) ([]*greed.Player, error)
	ListActive(ctx context.Context) ([]*greed.Player, error)
	Deactivate(ctx context.Context, id int64) error
	// Bookmark marks one player as "the user", clearing the mark on
	// everyone else. A zero id clears all marks.
	Bookmark(ctx context.Context, id int64) error
	UserPlayer(ctx context.Context) (*greed.Player, error)
	Clear(ctx context.Context) error
}

// SettingsStore persists the single settings record, seeding defaults
// on first read.
type SettingsStore interface {
	Get(ctx context.Context) (*greed.Settings, error)
	Update(ctx context.Context, s *greed.Settings) error
	Reset(ctx context.Context) error
}

// StateStore holds scalar app-state pointers outside the entity
// collections. Zero means unset.
type StateStore interface {
	ActiveGameID(ctx context.Context) (int64, error)
	SetActiveGameID(ctx context.Context, id int64) error
	ActivePlayerID(ctx context.Context) (int64, error)
	SetActivePlayerID(ctx context.Context, id int64) error
	// DeviceID returns a stable installation id, generating and
	// persisting one on first use.
	DeviceID(ctx context.Context) (string, error)
}

// publish is a nil-safe bus publish shared by the backends.
func publish(bus *events.Bus, e events.Event) {
	if bus != nil {
		bus.Publish(e)
	}
}
