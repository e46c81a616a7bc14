package greed

import "sort"

// DerivedState is the game state a turn ledger implies. It is the
// authoritative form of the cached fields stored on Game.
type DerivedState struct {
	Totals             map[int64]int
	OnBoard            map[int64]bool
	LastBank           *LastBank
	CurrentPlayerIndex int
	TurnNumber         int
}

// Replay folds the game's non-voided turns, sorted by turn number
// ascending, over a zeroed baseline: all totals zero, every player off
// board, no carry-over source, first player up, turn number one.
//
// Undo is "void the tail of the log and replay the remainder", so
// replaying the same active-turn set always reproduces the same state
// no matter how many times it runs.
func Replay(g *Game, turns []*Turn) DerivedState {
	st := DerivedState{
		Totals:             make(map[int64]int, len(g.PlayerIDs)),
		OnBoard:            make(map[int64]bool, len(g.PlayerIDs)),
		CurrentPlayerIndex: 0,
		TurnNumber:         1,
	}
	for _, id := range g.PlayerIDs {
		st.Totals[id] = 0
		st.OnBoard[id] = false
	}

	active := make([]*Turn, 0, len(turns))
	for _, t := range turns {
		if !t.IsVoided() {
			active = append(active, t)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].TurnNumber < active[j].TurnNumber
	})

	playerCount := g.PlayerCount()
	for _, t := range active {
		st.Totals[t.PlayerID] = t.TotalAfter
		st.OnBoard[t.PlayerID] = t.OnBoardAfter

		if t.Outcome == OutcomeBank && t.DeltaApplied > 0 {
			st.LastBank = &LastBank{
				PlayerID: t.PlayerID,
				Amount:   t.DeltaApplied,
				TurnID:   t.ID,
				At:       t.EndedAt,
			}
		}

		if playerCount > 0 {
			st.CurrentPlayerIndex = (t.PlayerIndex + 1) % playerCount
		}
		st.TurnNumber = t.TurnNumber + 1
	}

	return st
}

// ApplyTo writes the derived state onto the game's cached fields.
func (st DerivedState) ApplyTo(g *Game) {
	g.Totals = st.Totals
	g.OnBoard = st.OnBoard
	g.LastBank = st.LastBank
	g.CurrentPlayerIndex = st.CurrentPlayerIndex
	g.TurnNumber = st.TurnNumber
}
