package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israel-dryer/greed/internal/greed"
	"github.com/israel-dryer/greed/internal/stats"
	"github.com/israel-dryer/greed/internal/store"
	"github.com/israel-dryer/greed/internal/testutil"
)

type harness struct {
	store store.Store
	sess  *Session
	ann   int64
	ben   int64
	cat   int64
}

func newHarness(t *testing.T, rules greed.GameRules) *harness {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory(nil)

	sess := New(st, stats.NewRecomputer(st))
	clock := testutil.NewClock(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	sess.now = clock.Now

	h := &harness{store: st, sess: sess}
	for i, name := range []string{"Ann", "Ben", "Cat"} {
		p := greed.NewPlayer(name)
		id, err := st.Players().Add(ctx, p)
		require.NoError(t, err)
		switch i {
		case 0:
			h.ann = id
		case 1:
			h.ben = id
		case 2:
			h.cat = id
		}
	}

	ids := []int64{h.ann, h.ben, h.cat}
	roster := []greed.RosterPlayer{
		{ID: h.ann, Name: "Ann"},
		{ID: h.ben, Name: "Ben"},
		{ID: h.cat, Name: "Cat"},
	}
	game, err := sess.CreateGame(ctx, ids, roster, rules)
	require.NoError(t, err)
	require.NoError(t, sess.Start(ctx, game))
	return h
}

// bank drafts the given points and banks them, failing the test when
// the bank is rejected.
func (h *harness) bank(t *testing.T, points int) *greed.Turn {
	t.Helper()
	h.sess.AddPreset(points)
	turn, err := h.sess.Bank(context.Background())
	require.NoError(t, err)
	require.NotNil(t, turn, "bank of %d should not be rejected", points)
	return turn
}

func (h *harness) bust(t *testing.T, points int) *greed.Turn {
	t.Helper()
	if points > 0 {
		h.sess.AddPreset(points)
	}
	turn, err := h.sess.Bust(context.Background())
	require.NoError(t, err)
	require.NotNil(t, turn)
	return turn
}

func TestSession_Bank_AdvancesCursorAndPersists(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())

	turn := h.bank(t, 550)

	assert.Equal(t, greed.OutcomeBank, turn.Outcome)
	assert.Equal(t, 550, turn.DeltaApplied)
	assert.Equal(t, 0, turn.TotalBefore)
	assert.Equal(t, 550, turn.TotalAfter)
	assert.False(t, turn.OnBoardBefore)
	assert.True(t, turn.OnBoardAfter)

	game := h.sess.ActiveGame()
	assert.Equal(t, 550, game.Totals[h.ann])
	assert.True(t, game.OnBoard[h.ann])
	assert.Equal(t, 1, game.CurrentPlayerIndex, "Next player is up")
	assert.Equal(t, 2, game.TurnNumber)
	assert.Equal(t, 0, h.sess.DraftPoints(), "Draft clears after commit")

	// The store copy matches the live copy
	stored, err := h.store.Games().Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.Totals, stored.Totals)
	assert.Equal(t, game.TurnNumber, stored.TurnNumber)
}

func TestSession_Bank_BelowThreshold_Rejected(t *testing.T) {
	h := newHarness(t, greed.DefaultRules())

	h.sess.AddPreset(450)
	turn, err := h.sess.Bank(context.Background())

	require.NoError(t, err)
	assert.Nil(t, turn, "Rejection is a nil turn, not an error")
	assert.Equal(t, 450, h.sess.DraftPoints(), "Rejected draft stays intact")

	game := h.sess.ActiveGame()
	assert.Equal(t, 1, game.TurnNumber, "Nothing committed")
}

func TestSession_Bust_OnlyCursorsMove(t *testing.T) {
	h := newHarness(t, greed.DefaultRules())
	h.bank(t, 600) // Ann banks, becomes carry-over source

	turn := h.bust(t, 350) // Ben busts

	assert.Equal(t, greed.OutcomeBust, turn.Outcome)
	assert.Equal(t, 350, turn.TurnPoints, "Forfeited points are recorded")
	assert.Equal(t, 0, turn.DeltaApplied)

	game := h.sess.ActiveGame()
	assert.Equal(t, 0, game.Totals[h.ben])
	assert.False(t, game.OnBoard[h.ben])
	assert.Equal(t, 2, game.CurrentPlayerIndex)
	require.NotNil(t, game.LastBank)
	assert.Equal(t, h.ann, game.LastBank.PlayerID, "Bust never touches the carry-over source")
}

func TestSession_Overshoot_LoseFullBank(t *testing.T) {
	rules := greed.DefaultRules()
	rules.TargetScore = 1000
	h := newHarness(t, rules)
	h.bank(t, 800) // Ann at 800
	h.bust(t, 0)   // Ben
	h.bust(t, 0)   // Cat

	turn := h.bank(t, 300) // Ann: 800+300 overshoots 1000

	assert.Equal(t, greed.OutcomePenalty, turn.Outcome)
	assert.Equal(t, 0, turn.DeltaApplied)
	assert.Equal(t, 800, turn.TotalAfter, "Total unchanged")
	require.NotNil(t, turn.Flags)
	assert.True(t, turn.Flags.TriggeredOvershoot)
	assert.Equal(t, 100, turn.Flags.ExceededTargetBy)

	game := h.sess.ActiveGame()
	assert.Equal(t, 800, game.Totals[h.ann])
	require.NotNil(t, game.LastBank)
	assert.Equal(t, 800, game.LastBank.Amount, "Penalty never becomes a carry-over source")
}

func TestSession_Overshoot_LoseOvershootOnly(t *testing.T) {
	rules := greed.DefaultRules()
	rules.TargetScore = 1000
	rules.OvershootPenalty = greed.OvershootLoseOvershootOnly
	h := newHarness(t, rules)
	h.bank(t, 800)
	h.bust(t, 0)
	h.bust(t, 0)

	turn := h.bank(t, 300)

	assert.Equal(t, greed.OutcomeBank, turn.Outcome)
	assert.Equal(t, 200, turn.DeltaApplied, "Banks only up to the target")
	assert.Equal(t, 1000, turn.TotalAfter)
}

func TestSession_Overshoot_CapAtTarget(t *testing.T) {
	rules := greed.DefaultRules()
	rules.TargetScore = 1000
	rules.OvershootPenalty = greed.OvershootCapAtTarget
	h := newHarness(t, rules)
	h.bank(t, 800)
	h.bust(t, 0)
	h.bust(t, 0)

	turn := h.bank(t, 300)

	assert.Equal(t, greed.OutcomeBank, turn.Outcome)
	assert.Equal(t, 1000, turn.TotalAfter)
}

func TestSession_Overshoot_OffBoardPenalty_StaysOffBoard(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())

	// Ann is not on board and overshoots 10000 in a single draft.
	h.sess.AddCustom(10100)
	turn, err := h.sess.Bank(ctx)
	require.NoError(t, err)
	require.NotNil(t, turn)

	assert.Equal(t, greed.OutcomePenalty, turn.Outcome)
	assert.Equal(t, 0, turn.DeltaApplied)
	assert.False(t, turn.OnBoardBefore)
	assert.False(t, turn.OnBoardAfter, "A forfeited turn gets nobody on board")

	live := h.sess.ActiveGame()
	assert.False(t, live.OnBoard[h.ann])

	turns, err := h.store.Turns().ActiveByGame(ctx, live.ID)
	require.NoError(t, err)
	replayed := greed.Replay(live, turns)
	assert.Equal(t, replayed.OnBoard[h.ann], live.OnBoard[h.ann])
}

func TestSession_Bust_OnBoardPlayer_ReplayKeepsBoardStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())

	h.bank(t, 550) // Ann on board
	h.bust(t, 0)   // Ben
	h.bust(t, 0)   // Cat

	// Ann busts while on board
	turn := h.bust(t, 300)

	assert.True(t, turn.OnBoardBefore)
	assert.True(t, turn.OnBoardAfter, "A bust leaves the board status alone")

	live := h.sess.ActiveGame()
	turns, err := h.store.Turns().ActiveByGame(ctx, live.ID)
	require.NoError(t, err)
	replayed := greed.Replay(live, turns)
	assert.Equal(t, replayed.OnBoard, live.OnBoard)
	assert.Equal(t, replayed.Totals, live.Totals)
}

func TestSession_CarryOver_Lifecycle(t *testing.T) {
	h := newHarness(t, greed.DefaultRules())

	assert.False(t, h.sess.CarryOverAvailable(), "No bank yet")

	h.bank(t, 600) // Ann banks 600

	// Ben is not on board, so no carry-over for him
	assert.False(t, h.sess.CarryOverAvailable())
	h.bank(t, 500) // Ben gets on board
	h.bust(t, 0)   // Cat

	// Ann is on board and Ben's 500 bank is claimable
	assert.True(t, h.sess.CarryOverAvailable())
	assert.Equal(t, 500, h.sess.CarryOverAmount())
	require.True(t, h.sess.AddCarryOver())

	segments := h.sess.DraftSegments()
	require.Len(t, segments, 1)
	assert.Equal(t, greed.SegmentCarryOver, segments[0].Source)
	assert.Equal(t, 500, segments[0].Points)
	assert.Equal(t, "Carry-over from Ben", segments[0].Label)

	// Non-empty draft blocks a second claim
	assert.False(t, h.sess.CarryOverAvailable())
	assert.False(t, h.sess.AddCarryOver())

	h.sess.AddPreset(300)
	turn, err := h.sess.Bank(context.Background())
	require.NoError(t, err)
	require.NotNil(t, turn)
	require.NotNil(t, turn.Flags)
	assert.True(t, turn.Flags.UsedCarryOver)
	assert.Equal(t, 1400, turn.TotalAfter, "600 + 500 carry + 300")
}

func TestSession_CarryOver_NotOwnBank(t *testing.T) {
	h := newHarness(t, greed.DefaultRules())
	h.bank(t, 600) // Ann
	h.bust(t, 0)   // Ben
	h.bust(t, 0)   // Cat

	// Ann is up again and her own 600 is the last bank
	assert.False(t, h.sess.CarryOverAvailable(), "A player never claims their own bank")
}

func TestSession_CarryOver_DisabledByRules(t *testing.T) {
	rules := greed.DefaultRules()
	rules.AllowCarryOverBank = false
	h := newHarness(t, rules)
	h.bank(t, 600)
	h.bank(t, 500)

	assert.False(t, h.sess.CarryOverAvailable())
	assert.False(t, h.sess.AddCarryOver())
}

func TestSession_Undo_RestoresExactState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())

	h.bank(t, 550)
	before := h.sess.ActiveGame()
	h.bank(t, 700)

	ok, err := h.sess.UndoLastTurn(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	after := h.sess.ActiveGame()
	assert.Equal(t, before.Totals, after.Totals)
	assert.Equal(t, before.OnBoard, after.OnBoard)
	assert.Equal(t, before.TurnNumber, after.TurnNumber)
	assert.Equal(t, before.CurrentPlayerIndex, after.CurrentPlayerIndex)
	require.NotNil(t, after.LastBank)
	assert.Equal(t, before.LastBank.PlayerID, after.LastBank.PlayerID)
	assert.Equal(t, before.LastBank.Amount, after.LastBank.Amount)

	// The voided turn survives in storage as a tombstone
	all, err := h.store.Turns().ByGame(ctx, after.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[1].IsVoided())
	assert.Equal(t, "undo", all[1].Voided.Reason)
}

func TestSession_Undo_RepeatedToEmpty(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())

	h.bank(t, 550)
	h.bust(t, 200)

	for i := 0; i < 2; i++ {
		ok, err := h.sess.UndoLastTurn(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := h.sess.UndoLastTurn(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "Empty ledger has nothing to undo")

	game := h.sess.ActiveGame()
	assert.Equal(t, 1, game.TurnNumber)
	assert.Equal(t, 0, game.CurrentPlayerIndex)
	assert.Equal(t, 0, game.Totals[h.ann])
	assert.Nil(t, game.LastBank)
}

func TestSession_Undo_RecomputesPlayerStats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())

	h.bank(t, 550)
	_, err := h.sess.UndoLastTurn(ctx)
	require.NoError(t, err)

	ann, err := h.store.Players().Get(ctx, h.ann)
	require.NoError(t, err)
	assert.Equal(t, 0, ann.TurnsTaken)
	assert.Equal(t, 0, ann.TotalBanked)
}

func TestSession_LiveStateMatchesReplay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())

	h.bank(t, 550)
	h.bank(t, 500)
	h.bust(t, 300)
	h.bank(t, 650)
	_, err := h.sess.UndoLastTurn(ctx)
	require.NoError(t, err)
	h.bank(t, 700)

	live := h.sess.ActiveGame()
	turns, err := h.store.Turns().ActiveByGame(ctx, live.ID)
	require.NoError(t, err)
	replayed := greed.Replay(live, turns)

	assert.Equal(t, replayed.Totals, live.Totals)
	assert.Equal(t, replayed.OnBoard, live.OnBoard)
	assert.Equal(t, replayed.TurnNumber, live.TurnNumber)
	assert.Equal(t, replayed.CurrentPlayerIndex, live.CurrentPlayerIndex)
	require.NotNil(t, live.LastBank)
	require.NotNil(t, replayed.LastBank)
	assert.Equal(t, *replayed.LastBank, *live.LastBank)
}

func TestSession_EndGame_RecordsWinnerAndClearsPointer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())
	h.bank(t, 550)
	gameID := h.sess.ActiveGame().ID

	require.NoError(t, h.sess.EndGame(ctx, h.ann, greed.GameFinished))

	assert.Nil(t, h.sess.ActiveGame())

	stored, err := h.store.Games().Get(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, greed.GameFinished, stored.Status)
	assert.Equal(t, h.ann, stored.WinnerPlayerID)
	assert.False(t, stored.EndedOn.IsZero())

	pointer, err := h.store.State().ActiveGameID(ctx)
	require.NoError(t, err)
	assert.Zero(t, pointer)

	ann, err := h.store.Players().Get(ctx, h.ann)
	require.NoError(t, err)
	assert.Equal(t, 1, ann.GamesPlayed)
	assert.Equal(t, 1, ann.GamesWon)
	assert.Equal(t, 550, ann.TotalBanked)
}

func TestSession_EndGame_InvalidStatus_ReturnsError(t *testing.T) {
	h := newHarness(t, greed.DefaultRules())
	err := h.sess.EndGame(context.Background(), 0, greed.GameInProgress)
	assert.Error(t, err)
}

func TestSession_Restore_ResumesInProgressGame(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())
	h.bank(t, 550)
	want := h.sess.ActiveGame()

	// A fresh session over the same store picks the game back up
	resumed := New(h.store, stats.NewRecomputer(h.store))
	game, err := resumed.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, game)
	assert.Equal(t, want.ID, game.ID)
	assert.Equal(t, want.Totals, game.Totals)
	assert.Equal(t, want.TurnNumber, game.TurnNumber)
}

func TestSession_Restore_RebuildsCacheFromLedger(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())
	h.bank(t, 550)
	want := h.sess.ActiveGame()

	// Corrupt the stored cached fields, as an interrupted write would.
	stale, err := h.store.Games().Get(ctx, want.ID)
	require.NoError(t, err)
	stale.Totals[h.ann] = 9999
	stale.OnBoard[h.ann] = false
	stale.TurnNumber = 42
	require.NoError(t, h.store.Games().Update(ctx, stale))

	resumed := New(h.store, stats.NewRecomputer(h.store))
	game, err := resumed.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, game)

	assert.Equal(t, want.Totals, game.Totals, "Ledger replay overrides the stale cache")
	assert.Equal(t, want.OnBoard, game.OnBoard)
	assert.Equal(t, want.TurnNumber, game.TurnNumber)

	// The healed state is persisted too
	stored, err := h.store.Games().Get(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Totals, stored.Totals)
	assert.Equal(t, want.TurnNumber, stored.TurnNumber)
}

func TestSession_Restore_DropsStalePointer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())
	gameID := h.sess.ActiveGame().ID
	require.NoError(t, h.sess.EndGame(ctx, 0, greed.GameAbandoned))

	// Point at the now-finished game by hand
	require.NoError(t, h.store.State().SetActiveGameID(ctx, gameID))

	resumed := New(h.store, stats.NewRecomputer(h.store))
	game, err := resumed.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, game)

	pointer, err := h.store.State().ActiveGameID(ctx)
	require.NoError(t, err)
	assert.Zero(t, pointer, "Stale pointer is cleared")
}

func TestSession_Start_EndedGame_ReturnsError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())
	gameID := h.sess.ActiveGame().ID
	require.NoError(t, h.sess.EndGame(ctx, 0, greed.GameAbandoned))

	ended, err := h.store.Games().Get(ctx, gameID)
	require.NoError(t, err)

	err = h.sess.Start(ctx, ended)
	assert.ErrorIs(t, err, greed.ErrGameOver)
}

func TestSession_DeleteGame_CascadesTurns(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, greed.DefaultRules())
	h.bank(t, 550)
	h.bust(t, 0)
	gameID := h.sess.ActiveGame().ID

	require.NoError(t, h.sess.DeleteGame(ctx, gameID))

	assert.Nil(t, h.sess.ActiveGame(), "Deleting the active game tears the session down")

	game, err := h.store.Games().Get(ctx, gameID)
	require.NoError(t, err)
	assert.Nil(t, game)

	turns, err := h.store.Turns().ByGame(ctx, gameID)
	require.NoError(t, err)
	assert.Empty(t, turns, "No orphaned ledger entries")

	pointer, err := h.store.State().ActiveGameID(ctx)
	require.NoError(t, err)
	assert.Zero(t, pointer)
}

func TestSession_DraftOps_NoopWithoutGame(t *testing.T) {
	st := store.NewMemory(nil)
	sess := New(st, stats.NewRecomputer(st))

	sess.AddPreset(500)
	sess.AddCustom(100)
	assert.Equal(t, 0, sess.DraftPoints())
	assert.False(t, sess.AddCarryOver())

	turn, err := sess.Bank(context.Background())
	require.NoError(t, err)
	assert.Nil(t, turn)

	_, ok := sess.BankPreview()
	assert.False(t, ok)
}

func TestSession_TurnRecords_RoundNumberDerived(t *testing.T) {
	h := newHarness(t, greed.DefaultRules())

	var last *greed.Turn
	// Three players, seven turns: turn 7 is round 3
	for i := 0; i < 7; i++ {
		last = h.bust(t, 0)
	}

	assert.Equal(t, 7, last.TurnNumber)
	assert.Equal(t, 3, last.RoundNumber)
}
