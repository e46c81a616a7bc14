package greed

import (
	"time"
)

// GameStatus is the lifecycle state of a game. A game transitions out
// of GameInProgress exactly once, to either GameFinished or
// GameAbandoned.
type GameStatus string

const (
	GameInProgress GameStatus = "in_progress"
	GameFinished   GameStatus = "finished"
	GameAbandoned  GameStatus = "abandoned"
)

// RosterPlayer is a lightweight reference into the Player entity,
// frozen into the game roster at creation so historical games keep
// their names even after players are edited or deactivated.
type RosterPlayer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LastBank records the most recent positive bank, the carry-over
// source for the next player. Busts never overwrite it.
type LastBank struct {
	PlayerID int64     `json:"playerId"`
	Amount   int       `json:"amount"`
	TurnID   int64     `json:"turnId"`
	At       time.Time `json:"at"`
}

// Game is one scorekeeping session. Totals, OnBoard, LastBank,
// CurrentPlayerIndex and TurnNumber are a materialized cache: they
// must always equal the result of replaying the game's non-voided
// turns from a zeroed baseline (see Replay).
type Game struct {
	ID        int64      `json:"id"`
	CreatedOn time.Time  `json:"createdOn"`
	StartedOn time.Time  `json:"startedOn"`
	EndedOn   time.Time  `json:"endedOn,omitzero"`
	Status    GameStatus `json:"status"`

	Rules     GameRules      `json:"rules"`
	PlayerIDs []int64        `json:"playerIds"`
	Roster    []RosterPlayer `json:"roster"`

	// WinnerPlayerID is zero while the game has no winner.
	WinnerPlayerID int64 `json:"winnerPlayerId,omitempty"`

	CurrentPlayerIndex int `json:"currentPlayerIndex"`
	TurnNumber         int `json:"turnNumber"`

	Totals  map[int64]int  `json:"totals"`
	OnBoard map[int64]bool `json:"onBoard"`

	LastBank *LastBank `json:"lastBank"`
}

// NewGame builds an in-progress game with zeroed state for every
// roster player. The rules are copied, never shared.
func NewGame(playerIDs []int64, roster []RosterPlayer, rules GameRules, now time.Time) (*Game, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if len(playerIDs) == 0 {
		return nil, ErrEmptyRoster
	}
	if len(playerIDs) != len(roster) {
		return nil, ErrRosterMismatch
	}
	for i, id := range playerIDs {
		if roster[i].ID != id {
			return nil, ErrRosterMismatch
		}
	}

	g := &Game{
		CreatedOn:          now,
		StartedOn:          now,
		Status:             GameInProgress,
		Rules:              rules,
		PlayerIDs:          append([]int64(nil), playerIDs...),
		Roster:             append([]RosterPlayer(nil), roster...),
		CurrentPlayerIndex: 0,
		TurnNumber:         1,
		Totals:             make(map[int64]int, len(playerIDs)),
		OnBoard:            make(map[int64]bool, len(playerIDs)),
	}
	for _, id := range playerIDs {
		g.Totals[id] = 0
		g.OnBoard[id] = false
	}
	return g, nil
}

// PlayerCount returns the roster size.
func (g *Game) PlayerCount() int {
	return len(g.PlayerIDs)
}

// CurrentPlayer returns the roster entry whose turn it is.
func (g *Game) CurrentPlayer() (RosterPlayer, bool) {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Roster) {
		return RosterPlayer{}, false
	}
	return g.Roster[g.CurrentPlayerIndex], true
}

// RosterName returns the display name recorded for a player id.
func (g *Game) RosterName(playerID int64) (string, bool) {
	for _, p := range g.Roster {
		if p.ID == playerID {
			return p.Name, true
		}
	}
	return "", false
}

// HasPlayer reports whether the player id is part of this game.
func (g *Game) HasPlayer(playerID int64) bool {
	for _, id := range g.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// RoundNumber derives the 1-based round for a 1-based turn number.
func RoundNumber(turnNumber, playerCount int) int {
	if playerCount <= 0 {
		return 0
	}
	return (turnNumber-1)/playerCount + 1
}

// Clone returns a deep copy so stored games never alias live state.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g
	out.PlayerIDs = append([]int64(nil), g.PlayerIDs...)
	out.Roster = append([]RosterPlayer(nil), g.Roster...)
	out.Totals = make(map[int64]int, len(g.Totals))
	for id, v := range g.Totals {
		out.Totals[id] = v
	}
	out.OnBoard = make(map[int64]bool, len(g.OnBoard))
	for id, v := range g.OnBoard {
		out.OnBoard[id] = v
	}
	if g.LastBank != nil {
		lb := *g.LastBank
		out.LastBank = &lb
	}
	return &out
}
