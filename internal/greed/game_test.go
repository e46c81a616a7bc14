package greed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster() ([]int64, []RosterPlayer) {
	ids := []int64{1, 2, 3}
	roster := []RosterPlayer{
		{ID: 1, Name: "Ann"},
		{ID: 2, Name: "Ben"},
		{ID: 3, Name: "Cat"},
	}
	return ids, roster
}

func TestNewGame_ZeroedState(t *testing.T) {
	ids, roster := testRoster()
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	g, err := NewGame(ids, roster, DefaultRules(), now)
	require.NoError(t, err)

	assert.Equal(t, GameInProgress, g.Status)
	assert.Equal(t, 1, g.TurnNumber)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
	assert.Nil(t, g.LastBank)
	for _, id := range ids {
		assert.Equal(t, 0, g.Totals[id])
		assert.False(t, g.OnBoard[id])
	}
	assert.Equal(t, now, g.StartedOn)
}

func TestNewGame_EmptyRoster_ReturnsError(t *testing.T) {
	_, err := NewGame(nil, nil, DefaultRules(), time.Now())
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestNewGame_RosterMismatch_ReturnsError(t *testing.T) {
	ids, roster := testRoster()

	_, err := NewGame(ids[:2], roster, DefaultRules(), time.Now())
	assert.ErrorIs(t, err, ErrRosterMismatch)

	roster[1].ID = 99
	_, err = NewGame(ids, roster, DefaultRules(), time.Now())
	assert.ErrorIs(t, err, ErrRosterMismatch)
}

func TestNewGame_InvalidRules_ReturnsError(t *testing.T) {
	ids, roster := testRoster()
	rules := DefaultRules()
	rules.TargetScore = 0

	_, err := NewGame(ids, roster, rules, time.Now())
	assert.ErrorIs(t, err, ErrInvalidRules)
}

func TestGame_CurrentPlayer(t *testing.T) {
	ids, roster := testRoster()
	g, err := NewGame(ids, roster, DefaultRules(), time.Now())
	require.NoError(t, err)

	p, ok := g.CurrentPlayer()
	assert.True(t, ok)
	assert.Equal(t, "Ann", p.Name)

	g.CurrentPlayerIndex = 2
	p, _ = g.CurrentPlayer()
	assert.Equal(t, "Cat", p.Name)

	g.CurrentPlayerIndex = 3
	_, ok = g.CurrentPlayer()
	assert.False(t, ok)
}

func TestRoundNumber_DerivedFromTurnAndRosterSize(t *testing.T) {
	tests := []struct {
		turn, players, want int
	}{
		{1, 4, 1},
		{4, 4, 1},
		{5, 4, 2},
		{9, 4, 3},
		{1, 1, 1},
		{7, 3, 3},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundNumber(tt.turn, tt.players),
			"turn %d with %d players", tt.turn, tt.players)
	}
}

func TestGame_Clone_DeepCopies(t *testing.T) {
	ids, roster := testRoster()
	g, err := NewGame(ids, roster, DefaultRules(), time.Now())
	require.NoError(t, err)
	g.Totals[1] = 2000
	g.LastBank = &LastBank{PlayerID: 1, Amount: 450}

	c := g.Clone()
	c.Totals[1] = 5
	c.OnBoard[2] = true
	c.LastBank.Amount = 1
	c.Roster[0].Name = "Zed"

	assert.Equal(t, 2000, g.Totals[1])
	assert.False(t, g.OnBoard[2])
	assert.Equal(t, 450, g.LastBank.Amount)
	assert.Equal(t, "Ann", g.Roster[0].Name)
}

func TestTurn_SumSegments(t *testing.T) {
	total := SumSegments([]TurnScoreSegment{
		{Points: 300, Source: SegmentPreset},
		{Points: 125, Source: SegmentCustom},
		{Points: 450, Source: SegmentCarryOver},
	})
	assert.Equal(t, 875, total)
	assert.Equal(t, 0, SumSegments(nil))
}

func TestTurn_IsVoided(t *testing.T) {
	turn := &Turn{ID: 1}
	assert.False(t, turn.IsVoided())

	turn.Voided = &Voided{At: time.Now(), Reason: "undo"}
	assert.True(t, turn.IsVoided())

	var nilTurn *Turn
	assert.False(t, nilTurn.IsVoided())
}
