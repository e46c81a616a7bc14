package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"

	"github.com/israel-dryer/greed/internal/greed"
	"github.com/israel-dryer/greed/internal/greed/events"
)

// SQLite is the durable Store backend. Records are kept as JSON
// documents alongside the columns the queries filter on, so the
// persisted shape stays the plain structured form cloud sync needs.
type SQLite struct {
	db     *sql.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewSQLite opens (or creates) the database at dbPath and ensures the
// schema. Use ":memory:" for an ephemeral database.
func NewSQLite(ctx context.Context, dbPath string, bus *events.Bus) (*SQLite, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLite{
		db:     db,
		bus:    bus,
		logger: log.With().Str("component", "sqlite_store").Logger(),
	}
	s.logger.Debug().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS games (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    status     TEXT    NOT NULL,
    created_ms INTEGER NOT NULL,
    record     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_games_status ON games (status);

CREATE TABLE IF NOT EXISTS turns (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    game_id     INTEGER NOT NULL,
    player_id   INTEGER NOT NULL,
    turn_number INTEGER NOT NULL,
    voided      INTEGER NOT NULL DEFAULT 0,
    record      TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_game ON turns (game_id, turn_number);
CREATE INDEX IF NOT EXISTS idx_turns_player ON turns (player_id);

CREATE TABLE IF NOT EXISTS players (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    is_user   INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    record    TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    id     INTEGER PRIMARY KEY CHECK (id = 1),
    record TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS app_state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Games implements Store.
func (s *SQLite) Games() GameStore { return (*sqliteGames)(s) }

// Turns implements Store.
func (s *SQLite) Turns() TurnStore { return (*sqliteTurns)(s) }

// Players implements Store.
func (s *SQLite) Players() PlayerStore { return (*sqlitePlayers)(s) }

// Settings implements Store.
func (s *SQLite) Settings() SettingsStore { return (*sqliteSettings)(s) }

// State implements Store.
func (s *SQLite) State() StateStore { return (*sqliteState)(s) }

// Close implements Store.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ===== games =====

type sqliteGames SQLite

func (s *sqliteGames) Add(ctx context.Context, g *greed.Game) (int64, error) {
	record, err := json.Marshal(g)
	if err != nil {
		return 0, fmt.Errorf("encoding game: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO games (status, created_ms, record) VALUES (?, ?, ?)`,
		string(g.Status), g.CreatedOn.UnixMilli(), string(record))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	g.ID = id
	// Re-encode now that the record carries its id.
	if err := s.writeRecord(ctx, g); err != nil {
		return 0, err
	}
	publish(s.bus, events.NewChange(events.TypeGameSaved, events.CollectionGames, id))
	return id, nil
}

func (s *sqliteGames) writeRecord(ctx context.Context, g *greed.Game) error {
	record, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encoding game: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE games SET status = ?, record = ? WHERE id = ?`,
		string(g.Status), string(record), g.ID)
	return err
}

func (s *sqliteGames) Put(ctx context.Context, g *greed.Game) error {
	record, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encoding game: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO games (id, status, created_ms, record) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET status = excluded.status, created_ms = excluded.created_ms, record = excluded.record`,
		g.ID, string(g.Status), g.CreatedOn.UnixMilli(), string(record))
	if err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypeGameSaved, events.CollectionGames, g.ID))
	return nil
}

func (s *sqliteGames) Get(ctx context.Context, id int64) (*greed.Game, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM games WHERE id = ?`, id).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeGame(record, id)
}

func (s *sqliteGames) Update(ctx context.Context, g *greed.Game) error {
	record, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encoding game: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET status = ?, record = ? WHERE id = ?`,
		string(g.Status), string(record), g.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return greed.ErrGameNotFound
	}
	publish(s.bus, events.NewChange(events.TypeGameSaved, events.CollectionGames, g.ID))
	return nil
}

func (s *sqliteGames) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id); err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypeGameDeleted, events.CollectionGames, id))
	return nil
}

func (s *sqliteGames) List(ctx context.Context) ([]*greed.Game, error) {
	return s.selectGames(ctx, `SELECT id, record FROM games ORDER BY id`)
}

func (s *sqliteGames) ListByStatus(ctx context.Context, status greed.GameStatus) ([]*greed.Game, error) {
	return s.selectGames(ctx, `SELECT id, record FROM games WHERE status = ? ORDER BY id`, string(status))
}

func (s *sqliteGames) selectGames(ctx context.Context, query string, args ...any) ([]*greed.Game, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*greed.Game
	for rows.Next() {
		var id int64
		var record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, err
		}
		g, err := decodeGame(record, id)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *sqliteGames) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n)
	return n, err
}

func (s *sqliteGames) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM games`); err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypeGameDeleted, events.CollectionGames, 0))
	return nil
}

func decodeGame(record string, id int64) (*greed.Game, error) {
	var g greed.Game
	if err := json.Unmarshal([]byte(record), &g); err != nil {
		return nil, fmt.Errorf("decoding game %d: %w", id, err)
	}
	g.ID = id
	return &g, nil
}

// ===== turns =====

type sqliteTurns SQLite

func (s *sqliteTurns) Append(ctx context.Context, t *greed.Turn) (int64, error) {
	record, err := json.Marshal(t)
	if err != nil {
		return 0, fmt.Errorf("encoding turn: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (game_id, player_id, turn_number, voided, record) VALUES (?, ?, ?, ?, ?)`,
		t.GameID, t.PlayerID, t.TurnNumber, boolToInt(t.IsVoided()), string(record))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	t.ID = id
	record, err = json.Marshal(t)
	if err != nil {
		return 0, fmt.Errorf("encoding turn: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE turns SET record = ? WHERE id = ?`, string(record), id); err != nil {
		return 0, err
	}
	publish(s.bus, events.NewChange(events.TypeTurnAppended, events.CollectionTurns, id))
	return id, nil
}

func (s *sqliteTurns) Put(ctx context.Context, t *greed.Turn) error {
	record, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding turn: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO turns (id, game_id, player_id, turn_number, voided, record) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET game_id = excluded.game_id, player_id = excluded.player_id,
    turn_number = excluded.turn_number, voided = excluded.voided, record = excluded.record`,
		t.ID, t.GameID, t.PlayerID, t.TurnNumber, boolToInt(t.IsVoided()), string(record))
	if err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypeTurnAppended, events.CollectionTurns, t.ID))
	return nil
}

func (s *sqliteTurns) Get(ctx context.Context, id int64) (*greed.Turn, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM turns WHERE id = ?`, id).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeTurn(record, id)
}

func (s *sqliteTurns) ByGame(ctx context.Context, gameID int64) ([]*greed.Turn, error) {
	return s.selectTurns(ctx,
		`SELECT id, record FROM turns WHERE game_id = ? ORDER BY turn_number`, gameID)
}

func (s *sqliteTurns) ActiveByGame(ctx context.Context, gameID int64) ([]*greed.Turn, error) {
	return s.selectTurns(ctx,
		`SELECT id, record FROM turns WHERE game_id = ? AND voided = 0 ORDER BY turn_number`, gameID)
}

func (s *sqliteTurns) ByPlayer(ctx context.Context, playerID int64) ([]*greed.Turn, error) {
	return s.selectTurns(ctx,
		`SELECT id, record FROM turns WHERE player_id = ? ORDER BY turn_number`, playerID)
}

func (s *sqliteTurns) ActiveByPlayer(ctx context.Context, playerID int64) ([]*greed.Turn, error) {
	return s.selectTurns(ctx,
		`SELECT id, record FROM turns WHERE player_id = ? AND voided = 0 ORDER BY turn_number`, playerID)
}

func (s *sqliteTurns) selectTurns(ctx context.Context, query string, args ...any) ([]*greed.Turn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*greed.Turn
	for rows.Next() {
		var id int64
		var record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, err
		}
		t, err := decodeTurn(record, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNumber < out[j].TurnNumber })
	return out, nil
}

func (s *sqliteTurns) Void(ctx context.Context, id int64, at time.Time, reason string) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return greed.ErrTurnNotFound
	}
	t.Voided = &greed.Voided{At: at, Reason: reason}
	record, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding turn: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE turns SET voided = 1, record = ? WHERE id = ?`, string(record), id); err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypeTurnVoided, events.CollectionTurns, id))
	return nil
}

func (s *sqliteTurns) DeleteByGame(ctx context.Context, gameID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE game_id = ?`, gameID); err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypeTurnsDeleted, events.CollectionTurns, 0))
	return nil
}

func (s *sqliteTurns) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns`).Scan(&n)
	return n, err
}

func (s *sqliteTurns) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns`); err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypeTurnsDeleted, events.CollectionTurns, 0))
	return nil
}

func decodeTurn(record string, id int64) (*greed.Turn, error) {
	var t greed.Turn
	if err := json.Unmarshal([]byte(record), &t); err != nil {
		return nil, fmt.Errorf("decoding turn %d: %w", id, err)
	}
	t.ID = id
	return &t, nil
}

// ===== players =====

type sqlitePlayers SQLite

func (s *sqlitePlayers) Add(ctx context.Context, p *greed.Player) (int64, error) {
	record, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("encoding player: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO players (is_user, is_active, record) VALUES (?, ?, ?)`,
		boolToInt(p.IsUser), boolToInt(p.IsActive), string(record))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = id
	if err := s.writeRecord(ctx, p); err != nil {
		return 0, err
	}
	publish(s.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, id))
	return id, nil
}

func (s *sqlitePlayers) writeRecord(ctx context.Context, p *greed.Player) error {
	record, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding player: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE players SET is_user = ?, is_active = ?, record = ? WHERE id = ?`,
		boolToInt(p.IsUser), boolToInt(p.IsActive), string(record), p.ID)
	return err
}

func (s *sqlitePlayers) Put(ctx context.Context, p *greed.Player) error {
	record, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding player: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO players (id, is_user, is_active, record) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET is_user = excluded.is_user, is_active = excluded.is_active, record = excluded.record`,
		p.ID, boolToInt(p.IsUser), boolToInt(p.IsActive), string(record))
	if err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, p.ID))
	return nil
}

func (s *sqlitePlayers) Get(ctx context.Context, id int64) (*greed.Player, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM players WHERE id = ?`, id).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodePlayer(record, id)
}

func (s *sqlitePlayers) Update(ctx context.Context, p *greed.Player) error {
	record, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding player: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET is_user = ?, is_active = ?, record = ? WHERE id = ?`,
		boolToInt(p.IsUser), boolToInt(p.IsActive), string(record), p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return greed.ErrPlayerNotFound
	}
	publish(s.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, p.ID))
	return nil
}

func (s *sqlitePlayers) List(ctx context.Context) ([]*greed.Player, error) {
	return s.selectPlayers(ctx, `SELECT id, record FROM players ORDER BY id`)
}

func (s *sqlitePlayers) ListActive(ctx context.Context) ([]*greed.Player, error) {
	return s.selectPlayers(ctx, `SELECT id, record FROM players WHERE is_active = 1 ORDER BY id`)
}

func (s *sqlitePlayers) selectPlayers(ctx context.Context, query string, args ...any) ([]*greed.Player, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*greed.Player
	for rows.Next() {
		var id int64
		var record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, err
		}
		p, err := decodePlayer(record, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqlitePlayers) Deactivate(ctx context.Context, id int64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return greed.ErrPlayerNotFound
	}
	p.IsActive = false
	return s.Update(ctx, p)
}

func (s *sqlitePlayers) Bookmark(ctx context.Context, id int64) error {
	all, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range all {
		marked := p.ID == id
		if p.IsUser == marked {
			continue
		}
		p.IsUser = marked
		if err := s.writeRecord(ctx, p); err != nil {
			return err
		}
	}
	publish(s.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, id))
	return nil
}

func (s *sqlitePlayers) UserPlayer(ctx context.Context) (*greed.Player, error) {
	var id int64
	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, record FROM players WHERE is_user = 1 AND is_active = 1 LIMIT 1`).Scan(&id, &record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodePlayer(record, id)
}

func (s *sqlitePlayers) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM players`); err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, 0))
	return nil
}

func decodePlayer(record string, id int64) (*greed.Player, error) {
	var p greed.Player
	if err := json.Unmarshal([]byte(record), &p); err != nil {
		return nil, fmt.Errorf("decoding player %d: %w", id, err)
	}
	p.ID = id
	return &p, nil
}

// ===== settings =====

type sqliteSettings SQLite

func (s *sqliteSettings) Get(ctx context.Context) (*greed.Settings, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM settings WHERE id = 1`).Scan(&record)
	if err == sql.ErrNoRows {
		def := greed.DefaultSettings()
		def.ID = 1
		if err := s.Update(ctx, def); err != nil {
			return nil, err
		}
		return def, nil
	}
	if err != nil {
		return nil, err
	}
	var out greed.Settings
	if err := json.Unmarshal([]byte(record), &out); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	out.ID = 1
	return &out, nil
}

func (s *sqliteSettings) Update(ctx context.Context, set *greed.Settings) error {
	set.ID = 1
	record, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO settings (id, record) VALUES (1, ?)
ON CONFLICT (id) DO UPDATE SET record = excluded.record`, string(record))
	if err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypeSettingsSaved, events.CollectionSettings, 1))
	return nil
}

func (s *sqliteSettings) Reset(ctx context.Context) error {
	return s.Update(ctx, greed.DefaultSettings())
}

// ===== app state =====

type sqliteState SQLite

func (s *sqliteState) ActiveGameID(ctx context.Context) (int64, error) {
	v, err := s.get(ctx, keyActiveGame)
	if err != nil {
		return 0, err
	}
	return parseStateID(v), nil
}

func (s *sqliteState) SetActiveGameID(ctx context.Context, id int64) error {
	return s.setID(ctx, keyActiveGame, id)
}

func (s *sqliteState) ActivePlayerID(ctx context.Context) (int64, error) {
	v, err := s.get(ctx, keyActivePlayer)
	if err != nil {
		return 0, err
	}
	return parseStateID(v), nil
}

func (s *sqliteState) SetActivePlayerID(ctx context.Context, id int64) error {
	return s.setID(ctx, keyActivePlayer, id)
}

func (s *sqliteState) DeviceID(ctx context.Context) (string, error) {
	v, err := s.get(ctx, keyDeviceID)
	if err != nil {
		return "", err
	}
	if v != "" {
		return v, nil
	}
	id := uuid.NewString()
	if err := s.set(ctx, keyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *sqliteState) get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

func (s *sqliteState) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO app_state (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *sqliteState) setID(ctx context.Context, key string, id int64) error {
	if id == 0 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, key); err != nil {
			return err
		}
	} else if err := s.set(ctx, key, formatStateID(id)); err != nil {
		return err
	}
	publish(s.bus, events.NewChange(events.TypeAppStateSaved, events.CollectionAppState, id))
	return nil
}
