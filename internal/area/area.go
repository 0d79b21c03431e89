package area

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/duel-engine/internal/engine"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrGameIDMismatch = errors.New("game id mismatch")
var ErrInvalidCommand = errors.New("invalid command")

type CommandType string

const (
	CmdJoinGame  CommandType = "JoinGame"
	CmdGameMove  CommandType = "GameMove"
	CmdLeaveGame CommandType = "LeaveGame"
)

type Command struct {
	Type   CommandType
	GameID string
	Move   engine.Move
}

type Result struct {
	GameID string
	Events []engine.Event
}

// GameResult is one immutable entry of the history ledger. Scores hold 1 for
// the winning seat and 0 otherwise; a tie scores 0 for both.
type GameResult struct {
	GameID  string                          `json:"game_id"`
	Mode    engine.Mode                     `json:"mode"`
	Players map[engine.Seat]engine.PlayerID `json:"players"`
	Scores  map[engine.Seat]int             `json:"scores"`
}

// Area dispatches player commands to its current Game. It is not safe for
// concurrent use; callers serialize access (see lobby).
type Area struct {
	id      string
	mode    engine.Mode
	game    *engine.Game
	history []GameResult
	newID   func() string
	log     *zap.Logger
}

type Option func(*Area)

func WithLogger(log *zap.Logger) Option {
	return func(a *Area) { a.log = log }
}

// WithIDGenerator replaces the uuid game id source.
func WithIDGenerator(gen func() string) Option {
	return func(a *Area) { a.newID = gen }
}

func New(id string, mode engine.Mode, opts ...Option) (*Area, error) {
	if _, err := engine.ParseMode(string(mode)); err != nil {
		return nil, err
	}
	a := &Area{
		id:      id,
		mode:    mode,
		history: []GameResult{},
		newID:   uuid.NewString,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Area) ID() string        { return a.id }
func (a *Area) Mode() engine.Mode { return a.mode }

// Game returns the current game, or nil before the first JoinGame.
func (a *Area) Game() *engine.Game { return a.game }

func (a *Area) Handle(player engine.PlayerID, cmd Command) (Result, error) {
	switch cmd.Type {
	case CmdJoinGame:
		return a.join(player)
	case CmdGameMove:
		return a.commit(cmd.GameID, func(g *engine.Game) ([]engine.Event, error) {
			return g.ApplyMove(player, cmd.Move)
		})
	case CmdLeaveGame:
		return a.commit(cmd.GameID, func(g *engine.Game) ([]engine.Event, error) {
			return g.Leave(player)
		})
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidCommand, cmd.Type)
	}
}

func (a *Area) join(player engine.PlayerID) (Result, error) {
	if a.game == nil || a.game.Status == engine.StatusOver {
		g, err := engine.NewGame(a.newID(), a.mode)
		if err != nil {
			return Result{}, err
		}
		a.game = g
		a.log.Debug("new game", zap.String("area", a.id), zap.String("game_id", g.ID))
	}

	events, err := a.game.Join(player)
	if err != nil {
		return Result{}, err
	}
	return Result{GameID: a.game.ID, Events: events}, nil
}

// commit runs op against the current game and records a result when op is
// what moved the game to OVER.
func (a *Area) commit(gameID string, op func(*engine.Game) ([]engine.Event, error)) (Result, error) {
	if a.game == nil {
		return Result{}, engine.ErrGameNotInProgress
	}
	if gameID != a.game.ID {
		return Result{}, fmt.Errorf("%w: got %q, current %q", ErrGameIDMismatch, gameID, a.game.ID)
	}

	wasOver := a.game.Status == engine.StatusOver
	events, err := op(a.game)
	if err != nil {
		return Result{}, err
	}

	if !wasOver && a.game.Status == engine.StatusOver {
		a.record(a.game)
	}
	return Result{GameID: a.game.ID, Events: events}, nil
}

func (a *Area) record(g *engine.Game) {
	res := GameResult{
		GameID:  g.ID,
		Mode:    g.Mode,
		Players: map[engine.Seat]engine.PlayerID{},
		Scores:  map[engine.Seat]int{},
	}
	for _, seat := range engine.Seats {
		res.Players[seat] = g.Players[seat]
		res.Scores[seat] = 0
		if g.Winner == seat {
			res.Scores[seat] = 1
		}
	}
	a.history = append(a.history, res)
	a.log.Info("game recorded",
		zap.String("area", a.id),
		zap.String("game_id", g.ID),
		zap.String("winner", string(g.Winner)),
		zap.Int("history", len(a.history)))
}

// History returns a copy of the ledger; entries are never edited in place.
func (a *Area) History() []GameResult {
	out := make([]GameResult, len(a.history))
	for i, r := range a.history {
		out[i] = r.clone()
	}
	return out
}

func (r GameResult) clone() GameResult {
	c := GameResult{GameID: r.GameID, Mode: r.Mode,
		Players: make(map[engine.Seat]engine.PlayerID, len(r.Players)),
		Scores:  make(map[engine.Seat]int, len(r.Scores)),
	}
	for k, v := range r.Players {
		c.Players[k] = v
	}
	for k, v := range r.Scores {
		c.Scores[k] = v
	}
	return c
}
