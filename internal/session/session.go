// Package session drives one scorekeeping session: game lifecycle,
// draft management, turn resolution (bank/bust), and undo by ledger
// replay. The session holds the active game explicitly; the persisted
// active-game pointer is only read on Restore and written on
// start/advance/end, never consulted mid-play.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/israel-dryer/greed/internal/greed"
	"github.com/israel-dryer/greed/internal/stats"
	"github.com/israel-dryer/greed/internal/store"
)

// Session is the turn-resolution engine bound to one active game at a
// time. Operations that need an active game are silent no-ops when
// there is none; the UI should never reach that state, but the engine
// tolerates it.
type Session struct {
	mu     sync.Mutex
	store  store.Store
	stats  *stats.Recomputer
	logger zerolog.Logger
	now    func() time.Time

	game  *greed.Game
	turns []*greed.Turn
	draft greed.Draft
}

// New creates a session over the given store.
func New(st store.Store, rec *stats.Recomputer) *Session {
	return &Session{
		store:  st,
		stats:  rec,
		logger: log.With().Str("component", "session").Logger(),
		now:    time.Now,
	}
}

// Restore loads the persisted active-game pointer and resumes the game
// if it is still in progress. Returns the resumed game or nil.
func (s *Session) Restore(ctx context.Context) (*greed.Game, error) {
	id, err := s.store.State().ActiveGameID(ctx)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}
	game, err := s.store.Games().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if game == nil || game.Status != greed.GameInProgress {
		// Stale pointer; drop it.
		if err := s.store.State().SetActiveGameID(ctx, 0); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := s.Start(ctx, game); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("game_id", game.ID).Msg("Active game restored")
	return s.ActiveGame(), nil
}

// CreateGame snapshots the rules, zero-initializes per-player state
// and persists a new in-progress game. It does not make the game
// active; call Start for that.
func (s *Session) CreateGame(ctx context.Context, playerIDs []int64, roster []greed.RosterPlayer, rules greed.GameRules) (*greed.Game, error) {
	game, err := greed.NewGame(playerIDs, roster, rules, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Games().Add(ctx, game); err != nil {
		return nil, fmt.Errorf("saving game: %w", err)
	}
	s.logger.Info().
		Int64("game_id", game.ID).
		Int("players", game.PlayerCount()).
		Int("target_score", rules.TargetScore).
		Msg("Game created")
	return game, nil
}

// Start makes the game the active one. The ledger is the source of
// truth, so starting replays it: the cached fields are rebuilt from
// the active turns and persisted, which also heals a resume after an
// interrupted write. Serves both fresh starts and resumes.
func (s *Session) Start(ctx context.Context, game *greed.Game) error {
	if game.Status != greed.GameInProgress {
		return greed.ErrGameOver
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.game = game.Clone()
	return s.recomputeGameStateLocked(ctx)
}

// ActiveGame returns a copy of the active game, or nil.
func (s *Session) ActiveGame() *greed.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Clone()
}

// CurrentPlayer returns the roster entry whose turn it is.
func (s *Session) CurrentPlayer() (greed.RosterPlayer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return greed.RosterPlayer{}, false
	}
	return s.game.CurrentPlayer()
}

// CurrentPlayerTotal returns the active player's running total.
func (s *Session) CurrentPlayerTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total, _ := s.currentTotalsLocked()
	return total
}

// CurrentPlayerOnBoard reports whether the active player is on board.
func (s *Session) CurrentPlayerOnBoard() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, onBoard := s.currentTotalsLocked()
	return onBoard
}

func (s *Session) currentTotalsLocked() (int, bool) {
	if s.game == nil {
		return 0, false
	}
	player, ok := s.game.CurrentPlayer()
	if !ok {
		return 0, false
	}
	return s.game.Totals[player.ID], s.game.OnBoard[player.ID]
}

// ===== draft =====

// AddPreset pushes a preset segment onto the draft.
func (s *Session) AddPreset(points int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return
	}
	s.draft.AddPreset(points)
}

// AddCustom pushes a manually entered segment onto the draft.
func (s *Session) AddCustom(points int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return
	}
	s.draft.AddCustom(points)
}

// AddCarryOver claims the previous player's bank as the draft's first
// segment. Returns false when carry-over is not available.
func (s *Session) AddCarryOver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.carryOverAvailableLocked() {
		return false
	}
	lb := s.game.LastBank
	label := "Carry-over"
	if name, ok := s.game.RosterName(lb.PlayerID); ok {
		label = fmt.Sprintf("Carry-over from %s", name)
	}
	s.draft.AddCarryOver(lb.Amount, label)
	return true
}

// RemoveLastSegment pops the most recent draft segment.
func (s *Session) RemoveLastSegment() (greed.TurnScoreSegment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.RemoveLast()
}

// ClearDraft discards the draft.
func (s *Session) ClearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Clear()
}

// DraftPoints is the draft's running sum.
func (s *Session) DraftPoints() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Points()
}

// DraftSegments returns a copy of the draft segments in entry order.
func (s *Session) DraftSegments() []greed.TurnScoreSegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Segments()
}

// CarryOverAvailable reports whether the active player may claim the
// previous player's bank: rules allow it, a positive bank exists, the
// draft is still empty, the player is on board, and the bank was not
// their own.
func (s *Session) CarryOverAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carryOverAvailableLocked()
}

func (s *Session) carryOverAvailableLocked() bool {
	if s.game == nil || !s.game.Rules.AllowCarryOverBank {
		return false
	}
	lb := s.game.LastBank
	if lb == nil || lb.Amount <= 0 {
		return false
	}
	if !s.draft.Empty() {
		return false
	}
	player, ok := s.game.CurrentPlayer()
	if !ok || !s.game.OnBoard[player.ID] {
		return false
	}
	return lb.PlayerID != player.ID
}

// CarryOverAmount returns the claimable amount, zero when none.
func (s *Session) CarryOverAmount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil || s.game.LastBank == nil {
		return 0
	}
	return s.game.LastBank.Amount
}

// ===== preview and resolution =====

// BankPreview computes the hypothetical outcome of banking the current
// draft. The second return is false when no game is active.
func (s *Session) BankPreview() (greed.BankPreview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return greed.BankPreview{}, false
	}
	if _, ok := s.game.CurrentPlayer(); !ok {
		return greed.BankPreview{}, false
	}
	total, onBoard := s.currentTotalsLocked()
	return greed.PreviewBank(s.game.Rules, total, onBoard, s.draft.Segments()), true
}

// Bank commits the draft. It returns (nil, nil) when there is no
// active game or the preview rejects the bank; rejection is a normal
// outcome, not an error.
func (s *Session) Bank(ctx context.Context) (*greed.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return nil, nil
	}
	player, ok := s.game.CurrentPlayer()
	if !ok {
		return nil, nil
	}

	total, onBoard := s.currentTotalsLocked()
	segments := s.draft.Segments()
	preview := greed.PreviewBank(s.game.Rules, total, onBoard, segments)
	if !preview.CanBank {
		s.logger.Debug().
			Str("reason", preview.CantBankReason).
			Int("turn_points", preview.TurnPoints).
			Msg("Bank rejected")
		return nil, nil
	}

	deltaApplied := 0
	if preview.Outcome != greed.OutcomePenalty {
		deltaApplied = preview.FinalTotal - total
	}

	flags := &greed.TurnFlags{
		UsedCarryOver:      s.draft.HasCarryOver(),
		TriggeredOvershoot: preview.WouldOvershoot,
		ExceededTargetBy:   preview.ExceededBy,
	}
	if !flags.UsedCarryOver && !flags.TriggeredOvershoot && flags.ExceededTargetBy == 0 {
		flags = nil
	}

	turn, err := s.commitTurnLocked(ctx, player, segments, preview.Outcome, deltaApplied, flags)
	if err != nil {
		return nil, err
	}

	// Apply to the cached maps for this player only. Only a BANK
	// outcome can change the on-board flag; the cache must agree with
	// the OnBoardAfter written to the ledger or replay diverges.
	s.game.Totals[player.ID] = preview.FinalTotal
	if preview.WouldGetOnBoard {
		s.game.OnBoard[player.ID] = true
	}
	// A capped-to-zero or penalty bank never becomes a carry-over
	// source.
	if preview.Outcome == greed.OutcomeBank && deltaApplied > 0 {
		s.game.LastBank = &greed.LastBank{
			PlayerID: player.ID,
			Amount:   deltaApplied,
			TurnID:   turn.ID,
			At:       turn.EndedAt,
		}
	}

	if err := s.advanceTurnLocked(ctx); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("game_id", s.game.ID).
		Int64("player_id", player.ID).
		Str("outcome", string(turn.Outcome)).
		Int("turn_points", turn.TurnPoints).
		Int("delta", turn.DeltaApplied).
		Msg("Turn banked")
	return turn, nil
}

// Bust ends the turn with zero points credited. Totals, on-board flags
// and the carry-over source all stay untouched; only the cursors
// advance.
func (s *Session) Bust(ctx context.Context) (*greed.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return nil, nil
	}
	player, ok := s.game.CurrentPlayer()
	if !ok {
		return nil, nil
	}

	turn, err := s.commitTurnLocked(ctx, player, s.draft.Segments(), greed.OutcomeBust, 0, nil)
	if err != nil {
		return nil, err
	}

	if err := s.advanceTurnLocked(ctx); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("game_id", s.game.ID).
		Int64("player_id", player.ID).
		Int("turn_points", turn.TurnPoints).
		Msg("Turn busted")
	return turn, nil
}

// commitTurnLocked builds the immutable ledger record and appends it.
func (s *Session) commitTurnLocked(ctx context.Context, player greed.RosterPlayer, segments []greed.TurnScoreSegment, outcome greed.Outcome, deltaApplied int, flags *greed.TurnFlags) (*greed.Turn, error) {
	g := s.game
	totalBefore := g.Totals[player.ID]
	onBoardBefore := g.OnBoard[player.ID]
	turnPoints := greed.SumSegments(segments)

	turn := &greed.Turn{
		GameID:        g.ID,
		TurnNumber:    g.TurnNumber,
		RoundNumber:   greed.RoundNumber(g.TurnNumber, g.PlayerCount()),
		PlayerID:      player.ID,
		PlayerIndex:   g.CurrentPlayerIndex,
		EndedAt:       s.now(),
		Segments:      segments,
		TurnPoints:    turnPoints,
		Outcome:       outcome,
		DeltaApplied:  deltaApplied,
		TotalBefore:   totalBefore,
		TotalAfter:    totalBefore + deltaApplied,
		OnBoardBefore: onBoardBefore,
		OnBoardAfter:  onBoardBefore || (outcome == greed.OutcomeBank && turnPoints >= g.Rules.OnBoardThreshold),
		Flags:         flags,
	}

	if _, err := s.store.Turns().Append(ctx, turn); err != nil {
		return nil, fmt.Errorf("appending turn: %w", err)
	}
	s.turns = append(s.turns, turn)
	return turn, nil
}

// advanceTurnLocked moves the cursors to the next player, persists the
// game and the active pointer, and clears the draft.
func (s *Session) advanceTurnLocked(ctx context.Context) error {
	g := s.game
	g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % g.PlayerCount()
	g.TurnNumber++

	if err := s.store.Games().Update(ctx, g); err != nil {
		return fmt.Errorf("saving game: %w", err)
	}
	if err := s.store.State().SetActiveGameID(ctx, g.ID); err != nil {
		return err
	}
	s.draft.Clear()
	return nil
}

// ===== undo =====

// UndoLastTurn voids the most recent active turn and rebuilds the game
// state by replaying the remaining ledger. Returns false when there is
// nothing to undo.
func (s *Session) UndoLastTurn(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return false, nil
	}

	var last *greed.Turn
	for _, t := range s.turns {
		if t.IsVoided() {
			continue
		}
		if last == nil || t.TurnNumber > last.TurnNumber {
			last = t
		}
	}
	if last == nil {
		return false, nil
	}

	if err := s.store.Turns().Void(ctx, last.ID, s.now(), "undo"); err != nil {
		return false, fmt.Errorf("voiding turn %d: %w", last.ID, err)
	}

	if err := s.recomputeGameStateLocked(ctx); err != nil {
		return false, err
	}

	if err := s.stats.RecomputePlayer(ctx, last.PlayerID); err != nil {
		return false, fmt.Errorf("recomputing stats after undo: %w", err)
	}

	s.logger.Info().
		Int64("game_id", s.game.ID).
		Int64("turn_id", last.ID).
		Int("turn_number", last.TurnNumber).
		Msg("Turn undone")
	return true, nil
}

// recomputeGameStateLocked is the replay step: reload the active
// ledger, fold it over a zeroed baseline, persist the result, and
// clear the draft. The replay is the sole authority for the cached
// fields; whatever they held before is overwritten.
func (s *Session) recomputeGameStateLocked(ctx context.Context) error {
	turns, err := s.store.Turns().ActiveByGame(ctx, s.game.ID)
	if err != nil {
		return fmt.Errorf("loading turns: %w", err)
	}
	s.turns = turns

	greed.Replay(s.game, turns).ApplyTo(s.game)

	if err := s.store.Games().Update(ctx, s.game); err != nil {
		return fmt.Errorf("saving game: %w", err)
	}
	if err := s.store.State().SetActiveGameID(ctx, s.game.ID); err != nil {
		return err
	}
	s.draft.Clear()
	return nil
}

// ===== lifecycle =====

// EndGame terminally transitions the active game to finished or
// abandoned, recomputes statistics for every roster player, and clears
// the active-game pointer. A zero winner id means no winner.
func (s *Session) EndGame(ctx context.Context, winnerPlayerID int64, status greed.GameStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return nil
	}
	if status != greed.GameFinished && status != greed.GameAbandoned {
		return fmt.Errorf("cannot end game with status %q", status)
	}

	g := s.game
	g.Status = status
	g.EndedOn = s.now()
	g.WinnerPlayerID = winnerPlayerID

	if err := s.store.Games().Update(ctx, g); err != nil {
		return fmt.Errorf("saving game: %w", err)
	}

	for _, playerID := range g.PlayerIDs {
		if err := s.stats.RecomputePlayer(ctx, playerID); err != nil {
			return fmt.Errorf("recomputing stats for player %d: %w", playerID, err)
		}
	}

	if err := s.store.State().SetActiveGameID(ctx, 0); err != nil {
		return err
	}

	s.logger.Info().
		Int64("game_id", g.ID).
		Str("status", string(status)).
		Int64("winner_player_id", winnerPlayerID).
		Msg("Game ended")

	s.game = nil
	s.turns = nil
	s.draft.Clear()
	return nil
}

// DeleteGame cascades: all turns referencing the game are removed
// before the game record itself, so no orphaned ledger entries remain.
// Deleting the active game tears the session down first.
func (s *Session) DeleteGame(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game != nil && s.game.ID == id {
		if err := s.store.State().SetActiveGameID(ctx, 0); err != nil {
			return err
		}
		s.game = nil
		s.turns = nil
		s.draft.Clear()
	}

	if err := s.store.Turns().DeleteByGame(ctx, id); err != nil {
		return fmt.Errorf("deleting turns: %w", err)
	}
	if err := s.store.Games().Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting game: %w", err)
	}
	s.logger.Info().Int64("game_id", id).Msg("Game deleted")
	return nil
}

// Turns returns a copy of the session's cached active ledger. Voided
// turns are dropped from the cache when the state is recomputed; read
// the store directly for the audit view.
func (s *Session) Turns() []*greed.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*greed.Turn, len(s.turns))
	for i, t := range s.turns {
		out[i] = t.Clone()
	}
	return out
}
