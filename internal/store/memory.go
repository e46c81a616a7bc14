package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/israel-dryer/greed/internal/greed"
	"github.com/israel-dryer/greed/internal/greed/events"
)

// Memory is an in-memory Store used for tests and ephemeral play. All
// reads return deep copies so callers never alias stored records.
type Memory struct {
	mu       sync.RWMutex
	games    map[int64]*greed.Game
	turns    map[int64]*greed.Turn
	players  map[int64]*greed.Player
	settings *greed.Settings
	state    map[string]string

	nextGameID   int64
	nextTurnID   int64
	nextPlayerID int64

	bus    *events.Bus
	logger zerolog.Logger
}

// NewMemory creates an empty in-memory store. The bus may be nil when
// no subscriber cares about change events.
func NewMemory(bus *events.Bus) *Memory {
	m := &Memory{
		games:   make(map[int64]*greed.Game),
		turns:   make(map[int64]*greed.Turn),
		players: make(map[int64]*greed.Player),
		state:   make(map[string]string),
		bus:     bus,
		logger:  log.With().Str("component", "memory_store").Logger(),
	}
	m.logger.Debug().Msg("in-memory store opened")
	return m
}

// Games implements Store.
func (m *Memory) Games() GameStore { return (*memoryGames)(m) }

// Turns implements Store.
func (m *Memory) Turns() TurnStore { return (*memoryTurns)(m) }

// Players implements Store.
func (m *Memory) Players() PlayerStore { return (*memoryPlayers)(m) }

// Settings implements Store.
func (m *Memory) Settings() SettingsStore { return (*memorySettings)(m) }

// State implements Store.
func (m *Memory) State() StateStore { return (*memoryState)(m) }

// Close implements Store.
func (m *Memory) Close() error { return nil }

// ===== games =====

type memoryGames Memory

func (m *memoryGames) Add(_ context.Context, g *greed.Game) (int64, error) {
	m.mu.Lock()
	m.nextGameID++
	g.ID = m.nextGameID
	m.games[g.ID] = g.Clone()
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeGameSaved, events.CollectionGames, g.ID))
	return g.ID, nil
}

func (m *memoryGames) Put(_ context.Context, g *greed.Game) error {
	m.mu.Lock()
	m.games[g.ID] = g.Clone()
	if g.ID > m.nextGameID {
		m.nextGameID = g.ID
	}
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeGameSaved, events.CollectionGames, g.ID))
	return nil
}

func (m *memoryGames) Get(_ context.Context, id int64) (*greed.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.games[id].Clone(), nil
}

func (m *memoryGames) Update(_ context.Context, g *greed.Game) error {
	m.mu.Lock()
	if _, ok := m.games[g.ID]; !ok {
		m.mu.Unlock()
		return greed.ErrGameNotFound
	}
	m.games[g.ID] = g.Clone()
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeGameSaved, events.CollectionGames, g.ID))
	return nil
}

func (m *memoryGames) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	delete(m.games, id)
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeGameDeleted, events.CollectionGames, id))
	return nil
}

func (m *memoryGames) List(_ context.Context) ([]*greed.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*greed.Game, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryGames) ListByStatus(ctx context.Context, status greed.GameStatus) ([]*greed.Game, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, g := range all {
		if g.Status == status {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memoryGames) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games), nil
}

func (m *memoryGames) Clear(_ context.Context) error {
	m.mu.Lock()
	m.games = make(map[int64]*greed.Game)
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeGameDeleted, events.CollectionGames, 0))
	return nil
}

// ===== turns =====

type memoryTurns Memory

func (m *memoryTurns) Append(_ context.Context, t *greed.Turn) (int64, error) {
	m.mu.Lock()
	m.nextTurnID++
	t.ID = m.nextTurnID
	m.turns[t.ID] = t.Clone()
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeTurnAppended, events.CollectionTurns, t.ID))
	return t.ID, nil
}

func (m *memoryTurns) Put(_ context.Context, t *greed.Turn) error {
	m.mu.Lock()
	m.turns[t.ID] = t.Clone()
	if t.ID > m.nextTurnID {
		m.nextTurnID = t.ID
	}
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeTurnAppended, events.CollectionTurns, t.ID))
	return nil
}

func (m *memoryTurns) Get(_ context.Context, id int64) (*greed.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.turns[id].Clone(), nil
}

func (m *memoryTurns) ByGame(_ context.Context, gameID int64) ([]*greed.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(t *greed.Turn) bool { return t.GameID == gameID }), nil
}

func (m *memoryTurns) ActiveByGame(_ context.Context, gameID int64) ([]*greed.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(t *greed.Turn) bool { return t.GameID == gameID && !t.IsVoided() }), nil
}

func (m *memoryTurns) ByPlayer(_ context.Context, playerID int64) ([]*greed.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(t *greed.Turn) bool { return t.PlayerID == playerID }), nil
}

func (m *memoryTurns) ActiveByPlayer(_ context.Context, playerID int64) ([]*greed.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(t *greed.Turn) bool { return t.PlayerID == playerID && !t.IsVoided() }), nil
}

// collect filters and sorts by turn number ascending. Callers must
// hold the lock.
func (m *memoryTurns) collect(keep func(*greed.Turn) bool) []*greed.Turn {
	var out []*greed.Turn
	for _, t := range m.turns {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNumber < out[j].TurnNumber })
	return out
}

func (m *memoryTurns) Void(_ context.Context, id int64, at time.Time, reason string) error {
	m.mu.Lock()
	t, ok := m.turns[id]
	if !ok {
		m.mu.Unlock()
		return greed.ErrTurnNotFound
	}
	t.Voided = &greed.Voided{At: at, Reason: reason}
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeTurnVoided, events.CollectionTurns, id))
	return nil
}

func (m *memoryTurns) DeleteByGame(_ context.Context, gameID int64) error {
	m.mu.Lock()
	for id, t := range m.turns {
		if t.GameID == gameID {
			delete(m.turns, id)
		}
	}
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeTurnsDeleted, events.CollectionTurns, 0))
	return nil
}

func (m *memoryTurns) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns), nil
}

func (m *memoryTurns) Clear(_ context.Context) error {
	m.mu.Lock()
	m.turns = make(map[int64]*greed.Turn)
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeTurnsDeleted, events.CollectionTurns, 0))
	return nil
}

// ===== players =====

type memoryPlayers Memory

func (m *memoryPlayers) Add(_ context.Context, p *greed.Player) (int64, error) {
	m.mu.Lock()
	m.nextPlayerID++
	p.ID = m.nextPlayerID
	m.players[p.ID] = p.Clone()
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, p.ID))
	return p.ID, nil
}

func (m *memoryPlayers) Put(_ context.Context, p *greed.Player) error {
	m.mu.Lock()
	m.players[p.ID] = p.Clone()
	if p.ID > m.nextPlayerID {
		m.nextPlayerID = p.ID
	}
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, p.ID))
	return nil
}

func (m *memoryPlayers) Get(_ context.Context, id int64) (*greed.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.players[id].Clone(), nil
}

func (m *memoryPlayers) Update(_ context.Context, p *greed.Player) error {
	m.mu.Lock()
	if _, ok := m.players[p.ID]; !ok {
		m.mu.Unlock()
		return greed.ErrPlayerNotFound
	}
	m.players[p.ID] = p.Clone()
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, p.ID))
	return nil
}

func (m *memoryPlayers) List(_ context.Context) ([]*greed.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*greed.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryPlayers) ListActive(ctx context.Context) ([]*greed.Player, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryPlayers) Deactivate(_ context.Context, id int64) error {
	m.mu.Lock()
	p, ok := m.players[id]
	if !ok {
		m.mu.Unlock()
		return greed.ErrPlayerNotFound
	}
	p.IsActive = false
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, id))
	return nil
}

func (m *memoryPlayers) Bookmark(_ context.Context, id int64) error {
	m.mu.Lock()
	for _, p := range m.players {
		p.IsUser = p.ID == id
	}
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, id))
	return nil
}

func (m *memoryPlayers) UserPlayer(_ context.Context) (*greed.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.players {
		if p.IsUser && p.IsActive {
			return p.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memoryPlayers) Clear(_ context.Context) error {
	m.mu.Lock()
	m.players = make(map[int64]*greed.Player)
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypePlayerSaved, events.CollectionPlayers, 0))
	return nil
}

// ===== settings =====

type memorySettings Memory

func (m *memorySettings) Get(_ context.Context) (*greed.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		m.settings = greed.DefaultSettings()
		m.settings.ID = 1
	}
	return m.settings.Clone(), nil
}

func (m *memorySettings) Update(_ context.Context, s *greed.Settings) error {
	m.mu.Lock()
	s.ID = 1
	m.settings = s.Clone()
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeSettingsSaved, events.CollectionSettings, 1))
	return nil
}

func (m *memorySettings) Reset(ctx context.Context) error {
	def := greed.DefaultSettings()
	return m.Update(ctx, def)
}

// ===== app state =====

type memoryState Memory

func (m *memoryState) ActiveGameID(_ context.Context) (int64, error) {
	return m.getID(keyActiveGame)
}

func (m *memoryState) SetActiveGameID(_ context.Context, id int64) error {
	return m.setID(keyActiveGame, id)
}

func (m *memoryState) ActivePlayerID(_ context.Context) (int64, error) {
	return m.getID(keyActivePlayer)
}

func (m *memoryState) SetActivePlayerID(_ context.Context, id int64) error {
	return m.setID(keyActivePlayer, id)
}

func (m *memoryState) DeviceID(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.state[keyDeviceID]; ok {
		return v, nil
	}
	id := uuid.NewString()
	m.state[keyDeviceID] = id
	return id, nil
}

func (m *memoryState) getID(key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return parseStateID(m.state[key]), nil
}

func (m *memoryState) setID(key string, id int64) error {
	m.mu.Lock()
	if id == 0 {
		delete(m.state, key)
	} else {
		m.state[key] = formatStateID(id)
	}
	m.mu.Unlock()

	publish(m.bus, events.NewChange(events.TypeAppStateSaved, events.CollectionAppState, id))
	return nil
}
