package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/israel-dryer/greed/internal/config"
	"github.com/israel-dryer/greed/internal/greed"
	"github.com/israel-dryer/greed/internal/greed/events"
	"github.com/israel-dryer/greed/internal/greed/events/subscribers"
	"github.com/israel-dryer/greed/internal/session"
	"github.com/israel-dryer/greed/internal/stats"
	"github.com/israel-dryer/greed/internal/store"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to config file")
	dbPath := flag.String("db", "", "Path to the database file (empty to use config default)")
	driver := flag.String("driver", "", "Storage driver: sqlite or memory (empty to use config default)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error) (empty to use config default)")
	flag.Parse()

	// Initialize configuration
	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}

	cfg := config.Get()

	// Use config defaults if not overridden by flags
	if *dbPath == "" {
		*dbPath = cfg.Storage.Path
	}
	if *driver == "" {
		*driver = cfg.Storage.Driver
	}
	if *logLevel == "" {
		*logLevel = cfg.Logging.Level
	}

	setupLogging(*logLevel, cfg.Logging.Format)

	log.Info().
		Str("driver", *driver).
		Str("db", *dbPath).
		Msg("Starting greed scorekeeper")

	ctx := context.Background()

	st, err := openStore(ctx, *driver, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	rec := stats.NewRecomputer(st)
	sess := session.New(st, rec)

	if err := run(ctx, cfg, st, rec, sess); err != nil {
		log.Fatal().Err(err).Msg("Session ended with error")
	}
}

func openStore(ctx context.Context, driver, dbPath string) (store.Store, error) {
	bus := events.NewBus()
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		bus.Subscribe(subscribers.NewLoggerSubscriber("store_changes", log.Logger, zerolog.DebugLevel))
	}
	switch driver {
	case "sqlite":
		return store.NewSQLite(ctx, dbPath, bus)
	case "memory":
		return store.NewMemory(bus), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func run(ctx context.Context, cfg *config.Config, st store.Store, rec *stats.Recomputer, sess *session.Session) error {
	in := bufio.NewScanner(os.Stdin)

	game, err := sess.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	if game != nil {
		fmt.Printf("Resuming game #%d (round %d)\n", game.ID, greed.RoundNumber(game.TurnNumber, len(game.Roster)))
	} else {
		game, err = setupGame(ctx, in, cfg, st, sess)
		if err != nil {
			return err
		}
		if game == nil {
			return nil
		}
	}

	printStatus(sess)
	fmt.Println(`Commands: add N, custom N, carry, pop, clear, preview, bank, bust, undo, score, turns, stats, end NAME, quit`)

	for {
		if sess.ActiveGame() == nil {
			fmt.Println("No active game. Start a new one?  (y/n)")
			if !prompt(in) || strings.ToLower(strings.TrimSpace(in.Text())) != "y" {
				return nil
			}
			game, err = setupGame(ctx, in, cfg, st, sess)
			if err != nil {
				return err
			}
			if game == nil {
				return nil
			}
			printStatus(sess)
		}

		fmt.Print("> ")
		if !prompt(in) {
			return nil
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "quit", "exit":
			return nil

		case "add", "custom":
			points, err := strconv.Atoi(firstArg(args))
			if err != nil || points <= 0 {
				fmt.Println("usage: add N (positive points)")
				continue
			}
			if cmd == "add" {
				sess.AddPreset(points)
			} else {
				sess.AddCustom(points)
			}
			fmt.Printf("Draft: %d\n", sess.DraftPoints())

		case "carry":
			if !sess.AddCarryOver() {
				fmt.Println("Carry-over not available")
				continue
			}
			fmt.Printf("Carried over %d. Draft: %d\n", sess.CarryOverAmount(), sess.DraftPoints())

		case "pop":
			if seg, ok := sess.RemoveLastSegment(); ok {
				fmt.Printf("Removed %d. Draft: %d\n", seg.Points, sess.DraftPoints())
			} else {
				fmt.Println("Draft is empty")
			}

		case "clear":
			sess.ClearDraft()
			fmt.Println("Draft cleared")

		case "preview":
			preview, ok := sess.BankPreview()
			if !ok {
				fmt.Println("Nothing to preview")
				continue
			}
			printPreview(preview)

		case "bank":
			turn, err := sess.Bank(ctx)
			if err != nil {
				fmt.Printf("Bank failed: %v\n", err)
				continue
			}
			if turn == nil {
				preview, _ := sess.BankPreview()
				fmt.Printf("Cannot bank: %s\n", preview.CantBankReason)
				continue
			}
			name, _ := sess.ActiveGame().RosterName(turn.PlayerID)
			fmt.Printf("%s: %s %d -> total %d\n", name, turn.Outcome, turn.TurnPoints, turn.TotalAfter)
			printStatus(sess)
			if err := checkWin(ctx, sess); err != nil {
				return err
			}

		case "bust":
			turn, err := sess.Bust(ctx)
			if err != nil {
				fmt.Printf("Bust failed: %v\n", err)
				continue
			}
			if turn != nil {
				name, _ := sess.ActiveGame().RosterName(turn.PlayerID)
				fmt.Printf("%s busted, %d points lost\n", name, turn.TurnPoints)
			}
			printStatus(sess)

		case "undo":
			ok, err := sess.UndoLastTurn(ctx)
			if err != nil {
				fmt.Printf("Undo failed: %v\n", err)
				continue
			}
			if !ok {
				fmt.Println("Nothing to undo")
				continue
			}
			fmt.Println("Last turn undone")
			printStatus(sess)

		case "score":
			printScoreboard(sess)

		case "turns":
			for _, t := range sess.Turns() {
				mark := ""
				if t.IsVoided() {
					mark = " (voided)"
				}
				name, _ := sess.ActiveGame().RosterName(t.PlayerID)
				fmt.Printf("#%d %s %s %d -> %d%s\n", t.TurnNumber, name, t.Outcome, t.TurnPoints, t.TotalAfter, mark)
			}

		case "stats":
			game := sess.ActiveGame()
			gs, err := rec.GameStats(ctx, game.ID)
			if err != nil {
				fmt.Printf("Stats failed: %v\n", err)
				continue
			}
			fmt.Printf("Turns: %d  Rounds: %d  Avg bank: %.0f  Bust rate: %.0f%%  Banked: %d\n",
				gs.TotalTurns, gs.Rounds, gs.AvgBank, gs.BustPct, gs.TotalBanked)

		case "end":
			game := sess.ActiveGame()
			name := strings.Join(args, " ")
			var winnerID int64
			status := greed.GameAbandoned
			if name != "" {
				for _, rp := range game.Roster {
					if strings.EqualFold(rp.Name, name) {
						winnerID = rp.ID
						status = greed.GameFinished
					}
				}
				if winnerID == 0 {
					fmt.Printf("No player named %q in this game\n", name)
					continue
				}
			}
			if err := sess.EndGame(ctx, winnerID, status); err != nil {
				fmt.Printf("End failed: %v\n", err)
				continue
			}
			fmt.Println("Game over")

		default:
			fmt.Printf("Unknown command %q\n", cmd)
		}
	}
}

// setupGame collects a roster from stdin and starts a fresh game with
// the configured default rules.
func setupGame(ctx context.Context, in *bufio.Scanner, cfg *config.Config, st store.Store, sess *session.Session) (*greed.Game, error) {
	existing, err := st.Players().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading players: %w", err)
	}
	byName := make(map[string]*greed.Player, len(existing))
	for _, p := range existing {
		byName[strings.ToLower(p.Name)] = p
	}

	fmt.Println("Enter player names, comma separated:")
	if !prompt(in) {
		return nil, nil
	}

	var playerIDs []int64
	var roster []greed.RosterPlayer
	for _, raw := range strings.Split(in.Text(), ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		p, ok := byName[strings.ToLower(name)]
		if !ok {
			p = greed.NewPlayer(name)
			id, err := st.Players().Add(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("creating player %q: %w", name, err)
			}
			p.ID = id
			byName[strings.ToLower(name)] = p
		}
		playerIDs = append(playerIDs, p.ID)
		roster = append(roster, greed.RosterPlayer{ID: p.ID, Name: p.Name})
	}

	game, err := sess.CreateGame(ctx, playerIDs, roster, cfg.DefaultRules())
	if err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}
	if err := sess.Start(ctx, game); err != nil {
		return nil, fmt.Errorf("starting game: %w", err)
	}
	fmt.Printf("Game #%d started: first to %d wins\n", game.ID, game.Rules.TargetScore)
	return game, nil
}

// checkWin inspects the active game after a bank and finishes it when
// a player has hit the target.
func checkWin(ctx context.Context, sess *session.Session) error {
	game := sess.ActiveGame()
	if game == nil {
		return nil
	}
	for _, rp := range game.Roster {
		total := game.Totals[rp.ID]
		won := total == game.Rules.TargetScore ||
			(!game.Rules.MustHitExactly && total > game.Rules.TargetScore)
		if won {
			fmt.Printf("%s wins with %d!\n", rp.Name, total)
			return sess.EndGame(ctx, rp.ID, greed.GameFinished)
		}
	}
	return nil
}

func printStatus(sess *session.Session) {
	game := sess.ActiveGame()
	if game == nil {
		return
	}
	player, ok := sess.CurrentPlayer()
	if !ok {
		return
	}
	board := ""
	if !sess.CurrentPlayerOnBoard() {
		board = fmt.Sprintf(" (needs %d to get on board)", game.Rules.OnBoardThreshold)
	}
	fmt.Printf("Round %d, turn %d: %s at %d%s\n",
		greed.RoundNumber(game.TurnNumber, len(game.Roster)),
		game.TurnNumber, player.Name, sess.CurrentPlayerTotal(), board)
	if sess.CarryOverAvailable() {
		fmt.Printf("Carry-over available: %d\n", sess.CarryOverAmount())
	}
}

func printScoreboard(sess *session.Session) {
	game := sess.ActiveGame()
	if game == nil {
		return
	}
	rows := make([]greed.RosterPlayer, len(game.Roster))
	copy(rows, game.Roster)
	sort.SliceStable(rows, func(i, j int) bool {
		return game.Totals[rows[i].ID] > game.Totals[rows[j].ID]
	})
	for _, rp := range rows {
		board := ""
		if !game.OnBoard[rp.ID] {
			board = " (not on board)"
		}
		fmt.Printf("%-20s %6d%s\n", rp.Name, game.Totals[rp.ID], board)
	}
}

func printPreview(p greed.BankPreview) {
	if !p.CanBank {
		fmt.Printf("Cannot bank %d: %s\n", p.TurnPoints, p.CantBankReason)
		return
	}
	switch {
	case p.Outcome == greed.OutcomePenalty:
		fmt.Printf("Banking %d overshoots by %d: penalty, total stays %d\n", p.TurnPoints, p.ExceededBy, p.FinalTotal)
	case p.WouldOvershoot:
		fmt.Printf("Banking %d overshoots by %d: total capped at %d", p.TurnPoints, p.ExceededBy, p.FinalTotal)
		if p.PenaltyApplied > 0 {
			fmt.Printf(" (penalty %d)", p.PenaltyApplied)
		}
		fmt.Println()
	default:
		fmt.Printf("Banking %d -> total %d\n", p.TurnPoints, p.FinalTotal)
		if p.WouldGetOnBoard {
			fmt.Println("This bank gets you on the board")
		}
	}
}

func prompt(in *bufio.Scanner) bool {
	return in.Scan()
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func setupLogging(level, format string) {
	// Parse log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	if format == "json" {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}
}
