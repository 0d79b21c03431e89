package client

import (
	"errors"

	"github.com/DoyleJ11/duel-engine/internal/area"
	"github.com/DoyleJ11/duel-engine/internal/engine"
	"github.com/DoyleJ11/duel-engine/internal/types"
	"github.com/google/uuid"
)

var ErrNoGameInProgress = errors.New("no game in progress")
var ErrMovePending = errors.New("a command is already awaiting a reply")

type Event interface{ isMirrorEvent() }

// BoardChanged carries the newly derived board.
type BoardChanged struct{ Board Board }

// TurnChanged reports whether it is now the local player's turn.
type TurnChanged struct{ OurTurn bool }

// GameEnded fires once when the game reaches OVER. Winner is empty on a tie.
type GameEnded struct{ Winner engine.Seat }

// CommandRejected is the server's Error reply to a command we sent.
type CommandRejected struct {
	RequestID string
	Code      string
	Message   string
}

func (BoardChanged) isMirrorEvent()    {}
func (TurnChanged) isMirrorEvent()     {}
func (GameEnded) isMirrorEvent()       {}
func (CommandRejected) isMirrorEvent() {}

// Board is the local projection derived from the last snapshot.
type Board struct {
	TicTacToe [engine.TicTacToeSize][engine.TicTacToeSize]engine.Seat
	Waters    map[engine.Seat]engine.Grid
}

func (b Board) Equal(o Board) bool {
	if b.TicTacToe != o.TicTacToe || len(b.Waters) != len(o.Waters) {
		return false
	}
	for seat, g := range b.Waters {
		if og, ok := o.Waters[seat]; !ok || og != g {
			return false
		}
	}
	return true
}

// Mirror keeps the last applied snapshot for one player. It is not safe for
// concurrent use; Conn drives it from a single goroutine.
type Mirror struct {
	player   engine.PlayerID
	version  int
	snap     area.Snapshot
	progress int
	board    Board
	ourTurn  bool
	pending  string
	subs     []func(Event)
}

func NewMirror(player engine.PlayerID) *Mirror {
	return &Mirror{player: player, version: -1}
}

// Subscribe registers fn for every event the mirror emits.
func (m *Mirror) Subscribe(fn func(Event)) { m.subs = append(m.subs, fn) }

// Handle folds one server message into the mirror.
func (m *Mirror) Handle(msg types.ServerMessage) []Event {
	switch msg.Type {
	case types.TypeWelcome:
		m.player = engine.PlayerID(msg.PlayerID)
		m.version = -1
	case types.TypeStateSnapshot:
		if msg.Snapshot != nil {
			return m.Apply(msg.Version, *msg.Snapshot)
		}
	case types.TypeAck:
		m.resolve(msg.RequestID)
	case types.TypeError:
		// replies come back in send order, so an Error the server could not
		// tie to a request answers the one we are waiting on
		if msg.RequestID == "" {
			m.pending = ""
		}
		m.resolve(msg.RequestID)
		if msg.Error != nil {
			return m.emit([]Event{CommandRejected{RequestID: msg.RequestID, Code: msg.Error.Code, Message: msg.Error.Message}})
		}
	}
	return nil
}

// Apply takes a snapshot and returns the events it produced. Snapshots
// older than the last one applied are ignored.
func (m *Mirror) Apply(version int, snap area.Snapshot) []Event {
	if version < m.version {
		return nil
	}
	m.version = version

	prev := m.snap
	m.snap = snap
	if snap.GameID != prev.GameID {
		m.progress = 0
		m.board = Board{}
	}

	var events []Event
	if snap.View != nil {
		if p := progressOf(*snap.View); p > m.progress {
			m.progress = p
			if b := derive(*snap.View); !b.Equal(m.board) {
				m.board = b
				events = append(events, BoardChanged{Board: b})
			}
		}
	}

	if turn := m.IsOurTurn(); turn != m.ourTurn {
		m.ourTurn = turn
		events = append(events, TurnChanged{OurTurn: turn})
	}

	if snap.Status == engine.StatusOver && (prev.Status != engine.StatusOver || prev.GameID != snap.GameID) {
		m.board = Board{}
		events = append(events, GameEnded{Winner: snap.Winner})
	}
	return m.emit(events)
}

func (m *Mirror) emit(events []Event) []Event {
	for _, e := range events {
		for _, fn := range m.subs {
			fn(e)
		}
	}
	return events
}

func progressOf(v engine.RedactedView) int {
	switch {
	case v.TicTacToe != nil:
		return len(v.TicTacToe.Moves)
	case v.Battleship != nil:
		n := len(v.Battleship.Fleet)
		for _, shots := range v.Battleship.Shots {
			n += len(shots)
		}
		return n
	}
	return 0
}

func derive(v engine.RedactedView) Board {
	var b Board
	switch {
	case v.TicTacToe != nil:
		for _, mk := range v.TicTacToe.Moves {
			b.TicTacToe[mk.Row][mk.Col] = mk.By
		}
	case v.Battleship != nil:
		b.Waters = make(map[engine.Seat]engine.Grid, len(v.Battleship.Waters))
		for seat, g := range v.Battleship.Waters {
			b.Waters[seat] = g
		}
	}
	return b
}

func (m *Mirror) Player() engine.PlayerID { return m.player }
func (m *Mirror) Version() int            { return m.version }
func (m *Mirror) Snapshot() area.Snapshot { return m.snap }
func (m *Mirror) Board() Board            { return m.board }

func (m *Mirror) Status() engine.Status {
	if m.snap.Status == "" {
		return engine.StatusWaitingToStart
	}
	return m.snap.Status
}

func (m *Mirror) IsPlayer() bool {
	_, err := m.Seat()
	return err == nil
}

func (m *Mirror) Seat() (engine.Seat, error) {
	for seat, p := range m.snap.Players {
		if p == m.player && p != "" {
			return seat, nil
		}
	}
	return "", engine.ErrPlayerNotInGame
}

// WhoseTurn is empty unless a game is in progress.
func (m *Mirror) WhoseTurn() engine.Seat {
	if m.snap.Status != engine.StatusInProgress || m.snap.View == nil {
		return ""
	}
	switch v := m.snap.View; {
	case v.TicTacToe != nil:
		return v.TicTacToe.Turn
	case v.Battleship != nil:
		return v.Battleship.Turn
	}
	return ""
}

// IsOurTurn is true while we may send a move. During battleship placement
// that is whenever our own fleet is still incomplete; guessing opens only
// once both fleets are placed.
func (m *Mirror) IsOurTurn() bool {
	seat, err := m.Seat()
	if err != nil || m.snap.Status != engine.StatusInProgress || m.snap.View == nil {
		return false
	}
	if bs := m.snap.View.Battleship; bs != nil {
		if !bs.PlacementComplete[seat] {
			return true
		}
		if !bs.PlacementComplete[seat.Opponent()] {
			return false
		}
	}
	return m.WhoseTurn() == seat
}

func (m *Mirror) MoveCount() int {
	if m.snap.View == nil {
		return 0
	}
	return progressOf(*m.snap.View)
}

func (m *Mirror) Winner() engine.Seat { return m.snap.Winner }

// NextShip is the next kind to place, "guess" once our fleet is complete,
// or empty when we have no battleship seat.
func (m *Mirror) NextShip() string {
	seat, err := m.Seat()
	if err != nil || m.snap.View == nil || m.snap.View.Battleship == nil {
		return ""
	}
	bs := m.snap.View.Battleship
	if bs.PlacementComplete[seat] || len(bs.Remaining) == 0 {
		return string(engine.MoveGuess)
	}
	return string(bs.Remaining[0])
}

func (m *Mirror) Pending() bool { return m.pending != "" }

// MakeMove builds the GameMove for the current game and marks it pending
// until the server acknowledges or rejects it.
func (m *Mirror) MakeMove(mv engine.Move) (types.ClientMessage, error) {
	if m.snap.Status != engine.StatusInProgress {
		return types.ClientMessage{}, ErrNoGameInProgress
	}
	if m.pending != "" {
		return types.ClientMessage{}, ErrMovePending
	}
	m.pending = uuid.NewString()
	return types.FromMove(m.pending, m.snap.GameID, mv), nil
}

// JoinGame and LeaveGame go through the same pending gate as moves.
func (m *Mirror) JoinGame() (types.ClientMessage, error) {
	return m.command(types.ClientMessage{Type: types.TypeJoinGame})
}

func (m *Mirror) LeaveGame() (types.ClientMessage, error) {
	return m.command(types.ClientMessage{Type: types.TypeLeaveGame, GameID: m.snap.GameID})
}

func (m *Mirror) command(cm types.ClientMessage) (types.ClientMessage, error) {
	if m.pending != "" {
		return types.ClientMessage{}, ErrMovePending
	}
	m.pending = uuid.NewString()
	cm.RequestID = m.pending
	return cm, nil
}

func (m *Mirror) resolve(requestID string) {
	if requestID == m.pending {
		m.pending = ""
	}
}
