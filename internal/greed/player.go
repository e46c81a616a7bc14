package greed

import "time"

// Player is a roster member with cumulative cross-game statistics.
// The stat fields are a derived cache: they are rebuilt by a full
// rescan of the player's games and turns, never maintained
// incrementally, so they stay consistent with voided turns.
type Player struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsUser   bool   `json:"isUser"`
	IsActive bool   `json:"isActive"`

	LastPlayed   time.Time `json:"lastPlayed,omitzero"`
	GamesPlayed  int       `json:"gamesPlayed"`
	GamesWon     int       `json:"gamesWon"`
	TurnsTaken   int       `json:"turnsTaken"`
	TotalBanked  int       `json:"totalBanked"`
	LargestBank  int       `json:"largestBank"`
	Busts        int       `json:"busts"`
	Penalties    int       `json:"penalties"`
	TotalPenalty int       `json:"totalPenalty"`
}

// NewPlayer returns an active player with zeroed statistics.
func NewPlayer(name string) *Player {
	return &Player{
		Name:     name,
		IsActive: true,
	}
}

// Clone returns a copy so stored players never alias live state.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}
