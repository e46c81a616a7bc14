// Package stats rebuilds the cumulative statistics cached on Player
// records and serves the per-game and global report queries. Rebuilds
// are always a full rescan of the ledger rather than incremental
// updates, so they stay consistent after turns are voided.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/israel-dryer/greed/internal/greed"
	"github.com/israel-dryer/greed/internal/store"
)

// PlayerStats is the derived report for one player.
type PlayerStats struct {
	GamesPlayed  int
	GamesWon     int
	WinPct       float64
	TurnsTaken   int
	Busts        int
	BustPct      float64
	TotalBanked  int
	AvgBank      float64
	LargestBank  int
	Penalties    int
	TotalPenalty int
	LastPlayed   time.Time
}

// GameStats is the derived report for one game.
type GameStats struct {
	TotalTurns  int
	Rounds      int
	AvgBank     float64
	BustPct     float64
	TotalBanked int
}

// GlobalStats summarizes the whole installation.
type GlobalStats struct {
	TotalGames   int
	TotalTurns   int
	TotalPlayers int
}

// Recomputer rescans games and turns to rewrite player stat fields.
type Recomputer struct {
	store  store.Store
	logger zerolog.Logger
}

// NewRecomputer creates a Recomputer over the given store.
func NewRecomputer(st store.Store) *Recomputer {
	return &Recomputer{
		store:  st,
		logger: log.With().Str("component", "stats").Logger(),
	}
}

// RecomputePlayer rebuilds and persists one player's cumulative stats
// from scratch: every non-voided turn they took and every game they
// appear in.
func (r *Recomputer) RecomputePlayer(ctx context.Context, playerID int64) error {
	player, err := r.store.Players().Get(ctx, playerID)
	if err != nil {
		return fmt.Errorf("loading player %d: %w", playerID, err)
	}
	if player == nil {
		return greed.ErrPlayerNotFound
	}

	turns, err := r.store.Turns().ActiveByPlayer(ctx, playerID)
	if err != nil {
		return fmt.Errorf("loading turns for player %d: %w", playerID, err)
	}

	games, err := r.store.Games().List(ctx)
	if err != nil {
		return fmt.Errorf("loading games: %w", err)
	}

	var (
		gamesPlayed, gamesWon               int
		busts, penalties, totalPenalty      int
		positiveBanks, totalBanked, largest int
		lastPlayed                          time.Time
	)

	for _, g := range games {
		if !g.HasPlayer(playerID) {
			continue
		}
		gamesPlayed++
		if g.WinnerPlayerID == playerID {
			gamesWon++
		}
		played := g.StartedOn
		if !g.EndedOn.IsZero() {
			played = g.EndedOn
		}
		if played.After(lastPlayed) {
			lastPlayed = played
		}
	}

	for _, t := range turns {
		switch t.Outcome {
		case greed.OutcomeBust:
			busts++
		case greed.OutcomePenalty:
			// A penalty forfeits the whole turn, so the lost amount is
			// the turn points, not the applied delta (which is zero).
			penalties++
			totalPenalty += t.TurnPoints
		case greed.OutcomeBank:
			if t.DeltaApplied > 0 {
				positiveBanks++
				totalBanked += t.DeltaApplied
				if t.DeltaApplied > largest {
					largest = t.DeltaApplied
				}
			}
		}
	}

	player.GamesPlayed = gamesPlayed
	player.GamesWon = gamesWon
	player.TurnsTaken = len(turns)
	player.TotalBanked = totalBanked
	player.LargestBank = largest
	player.Busts = busts
	player.Penalties = penalties
	player.TotalPenalty = totalPenalty
	player.LastPlayed = lastPlayed

	if err := r.store.Players().Update(ctx, player); err != nil {
		return fmt.Errorf("saving player %d stats: %w", playerID, err)
	}

	r.logger.Debug().
		Int64("player_id", playerID).
		Int("turns", len(turns)).
		Int("games", gamesPlayed).
		Msg("Player stats recomputed")
	return nil
}

// PlayerStats reads the cached player record and derives the rate
// fields from it.
func (r *Recomputer) PlayerStats(ctx context.Context, playerID int64) (PlayerStats, error) {
	player, err := r.store.Players().Get(ctx, playerID)
	if err != nil {
		return PlayerStats{}, err
	}
	if player == nil {
		return PlayerStats{}, nil
	}

	turns, err := r.store.Turns().ActiveByPlayer(ctx, playerID)
	if err != nil {
		return PlayerStats{}, err
	}
	positiveBanks := 0
	for _, t := range turns {
		if t.Outcome == greed.OutcomeBank && t.DeltaApplied > 0 {
			positiveBanks++
		}
	}

	ps := PlayerStats{
		GamesPlayed:  player.GamesPlayed,
		GamesWon:     player.GamesWon,
		TurnsTaken:   player.TurnsTaken,
		Busts:        player.Busts,
		TotalBanked:  player.TotalBanked,
		LargestBank:  player.LargestBank,
		Penalties:    player.Penalties,
		TotalPenalty: player.TotalPenalty,
		LastPlayed:   player.LastPlayed,
	}
	if player.GamesPlayed > 0 {
		ps.WinPct = float64(player.GamesWon) / float64(player.GamesPlayed) * 100
	}
	if player.TurnsTaken > 0 {
		ps.BustPct = float64(player.Busts) / float64(player.TurnsTaken) * 100
	}
	if positiveBanks > 0 {
		ps.AvgBank = float64(player.TotalBanked) / float64(positiveBanks)
	}
	return ps, nil
}

// GameStats derives the report for one game from its active turns.
func (r *Recomputer) GameStats(ctx context.Context, gameID int64) (GameStats, error) {
	game, err := r.store.Games().Get(ctx, gameID)
	if err != nil {
		return GameStats{}, err
	}
	if game == nil {
		return GameStats{}, nil
	}

	turns, err := r.store.Turns().ActiveByGame(ctx, gameID)
	if err != nil {
		return GameStats{}, err
	}

	gs := GameStats{TotalTurns: len(turns)}
	busts := 0
	positiveBanks := 0
	for _, t := range turns {
		if t.RoundNumber > gs.Rounds {
			gs.Rounds = t.RoundNumber
		}
		switch {
		case t.Outcome == greed.OutcomeBust:
			busts++
		case t.Outcome == greed.OutcomeBank && t.DeltaApplied > 0:
			positiveBanks++
			gs.TotalBanked += t.DeltaApplied
		}
	}
	if positiveBanks > 0 {
		gs.AvgBank = float64(gs.TotalBanked) / float64(positiveBanks)
	}
	if len(turns) > 0 {
		gs.BustPct = float64(busts) / float64(len(turns)) * 100
	}
	return gs, nil
}

// GlobalStats counts games, non-voided turns and active players.
func (r *Recomputer) GlobalStats(ctx context.Context) (GlobalStats, error) {
	games, err := r.store.Games().Count(ctx)
	if err != nil {
		return GlobalStats{}, err
	}
	players, err := r.store.Players().ListActive(ctx)
	if err != nil {
		return GlobalStats{}, err
	}

	gs := GlobalStats{TotalGames: games, TotalPlayers: len(players)}

	all, err := r.store.Games().List(ctx)
	if err != nil {
		return GlobalStats{}, err
	}
	for _, g := range all {
		turns, err := r.store.Turns().ActiveByGame(ctx, g.ID)
		if err != nil {
			return GlobalStats{}, err
		}
		gs.TotalTurns += len(turns)
	}
	return gs, nil
}
