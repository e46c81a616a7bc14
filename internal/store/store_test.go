package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israel-dryer/greed/internal/greed"
)

// exerciseStore runs the behavioral contract every backend must
// satisfy.
func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("games", func(t *testing.T) { exerciseGames(ctx, t, st) })
	t.Run("turns", func(t *testing.T) { exerciseTurns(ctx, t, st) })
	t.Run("players", func(t *testing.T) { exercisePlayers(ctx, t, st) })
	t.Run("settings", func(t *testing.T) { exerciseSettings(ctx, t, st) })
	t.Run("state", func(t *testing.T) { exerciseState(ctx, t, st) })
}

func newStoredGame(t *testing.T, ctx context.Context, st Store) *greed.Game {
	t.Helper()
	ids := []int64{1, 2}
	roster := []greed.RosterPlayer{{ID: 1, Name: "Ann"}, {ID: 2, Name: "Ben"}}
	g, err := greed.NewGame(ids, roster, greed.DefaultRules(), time.Now().UTC())
	require.NoError(t, err)
	_, err = st.Games().Add(ctx, g)
	require.NoError(t, err)
	return g
}

func exerciseGames(ctx context.Context, t *testing.T, st Store) {
	g := newStoredGame(t, ctx, st)
	require.NotZero(t, g.ID)

	got, err := st.Games().Get(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, greed.GameInProgress, got.Status)
	assert.Equal(t, "Ann", got.Roster[0].Name)

	// Missing id is absence, not an error
	missing, err := st.Games().Get(ctx, 99999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	g.Totals[1] = 2000
	g.OnBoard[1] = true
	g.Status = greed.GameFinished
	g.WinnerPlayerID = 1
	g.EndedOn = time.Now().UTC()
	require.NoError(t, st.Games().Update(ctx, g))

	got, err = st.Games().Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000, got.Totals[1])
	assert.True(t, got.OnBoard[1])
	assert.Equal(t, greed.GameFinished, got.Status)
	assert.Equal(t, int64(1), got.WinnerPlayerID)

	finished, err := st.Games().ListByStatus(ctx, greed.GameFinished)
	require.NoError(t, err)
	assert.Len(t, finished, 1)

	ghost := g.Clone()
	ghost.ID = 54321
	assert.ErrorIs(t, st.Games().Update(ctx, ghost), greed.ErrGameNotFound)

	require.NoError(t, st.Games().Delete(ctx, g.ID))
	got, err = st.Games().Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func exerciseTurns(ctx context.Context, t *testing.T, st Store) {
	g := newStoredGame(t, ctx, st)

	first := &greed.Turn{
		GameID:       g.ID,
		TurnNumber:   1,
		RoundNumber:  1,
		PlayerID:     1,
		EndedAt:      time.Now().UTC(),
		Segments:     []greed.TurnScoreSegment{{Points: 500, Source: greed.SegmentPreset}},
		TurnPoints:   500,
		Outcome:      greed.OutcomeBank,
		DeltaApplied: 500,
		TotalAfter:   500,
		OnBoardAfter: true,
	}
	_, err := st.Turns().Append(ctx, first)
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second := &greed.Turn{
		GameID:     g.ID,
		TurnNumber: 2,
		PlayerID:   2,
		EndedAt:    time.Now().UTC(),
		TurnPoints: 300,
		Outcome:    greed.OutcomeBust,
	}
	_, err = st.Turns().Append(ctx, second)
	require.NoError(t, err)

	all, err := st.Turns().ByGame(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].TurnNumber, "Turns come back sorted by turn number")
	assert.Equal(t, greed.OutcomeBank, all[0].Outcome)
	assert.Equal(t, 500, all[0].Segments[0].Points)

	// Void is a tombstone, not a delete
	require.NoError(t, st.Turns().Void(ctx, second.ID, time.Now().UTC(), "undo"))

	active, err := st.Turns().ActiveByGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err = st.Turns().ByGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	voided := all[1]
	require.True(t, voided.IsVoided())
	assert.Equal(t, "undo", voided.Voided.Reason)

	assert.ErrorIs(t, st.Turns().Void(ctx, 99999, time.Now().UTC(), "undo"), greed.ErrTurnNotFound)

	byPlayer, err := st.Turns().ActiveByPlayer(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, byPlayer, 1)

	require.NoError(t, st.Turns().DeleteByGame(ctx, g.ID))
	all, err = st.Turns().ByGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, st.Games().Delete(ctx, g.ID))
}

func exercisePlayers(ctx context.Context, t *testing.T, st Store) {
	ann := greed.NewPlayer("Ann")
	ben := greed.NewPlayer("Ben")
	_, err := st.Players().Add(ctx, ann)
	require.NoError(t, err)
	_, err = st.Players().Add(ctx, ben)
	require.NoError(t, err)
	require.NotZero(t, ann.ID)

	ann.GamesPlayed = 3
	ann.LargestBank = 1200
	require.NoError(t, st.Players().Update(ctx, ann))

	got, err := st.Players().Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.GamesPlayed)
	assert.Equal(t, 1200, got.LargestBank)

	require.NoError(t, st.Players().Bookmark(ctx, ann.ID))
	user, err := st.Players().UserPlayer(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Ann", user.Name)

	// Bookmarking another player moves the mark
	require.NoError(t, st.Players().Bookmark(ctx, ben.ID))
	user, err = st.Players().UserPlayer(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Ben", user.Name)

	require.NoError(t, st.Players().Deactivate(ctx, ben.ID))
	active, err := st.Players().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Ann", active[0].Name)

	// Deactivated players stay resolvable for historical rosters
	got, err = st.Players().Get(ctx, ben.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, st.Players().Deactivate(ctx, 99999), greed.ErrPlayerNotFound)

	require.NoError(t, st.Players().Clear(ctx))
}

func exerciseSettings(ctx context.Context, t *testing.T, st Store) {
	s, err := st.Settings().Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, s, "First read seeds defaults")
	assert.Equal(t, 10000, s.DefaultRules.TargetScore)
	assert.NotEmpty(t, s.ScorePresets)

	s.DefaultRules.TargetScore = 5000
	s.Theme = "dark"
	require.NoError(t, st.Settings().Update(ctx, s))

	got, err := st.Settings().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5000, got.DefaultRules.TargetScore)
	assert.Equal(t, "dark", got.Theme)

	require.NoError(t, st.Settings().Reset(ctx))
	got, err = st.Settings().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10000, got.DefaultRules.TargetScore)
}

func exerciseState(ctx context.Context, t *testing.T, st Store) {
	id, err := st.State().ActiveGameID(ctx)
	require.NoError(t, err)
	assert.Zero(t, id, "Unset pointer reads as zero")

	require.NoError(t, st.State().SetActiveGameID(ctx, 7))
	id, err = st.State().ActiveGameID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	require.NoError(t, st.State().SetActiveGameID(ctx, 0))
	id, err = st.State().ActiveGameID(ctx)
	require.NoError(t, err)
	assert.Zero(t, id)

	require.NoError(t, st.State().SetActivePlayerID(ctx, 3))
	id, err = st.State().ActivePlayerID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	device, err := st.State().DeviceID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, device)

	again, err := st.State().DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, device, again, "Device id is stable once generated")
}
