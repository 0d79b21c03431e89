package client

import (
	"fmt"
	"testing"

	"github.com/DoyleJ11/duel-engine/internal/area"
	"github.com/DoyleJ11/duel-engine/internal/engine"
	"github.com/DoyleJ11/duel-engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice engine.PlayerID = "alice"
	bob   engine.PlayerID = "bob"
)

// server stands in for the lobby: it owns an area and hands out versioned
// snapshots for one player.
type server struct {
	t       *testing.T
	area    *area.Area
	version int
}

func newServer(t *testing.T, mode engine.Mode) *server {
	t.Helper()
	n := 0
	a, err := area.New("ZED123", mode, area.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("game-%d", n)
	}))
	require.NoError(t, err)
	return &server{t: t, area: a}
}

func (s *server) do(p engine.PlayerID, cmd area.Command) {
	s.t.Helper()
	_, err := s.area.Handle(p, cmd)
	require.NoError(s.t, err)
	s.version++
}

func (s *server) move(p engine.PlayerID, mv engine.Move) {
	s.t.Helper()
	s.do(p, area.Command{Type: area.CmdGameMove, GameID: s.area.Game().ID, Move: mv})
}

func (s *server) snapshotFor(p engine.PlayerID) (int, area.Snapshot) {
	return s.version, s.area.Snapshot(s.area.ViewerOf(p))
}

func (s *server) push(m *Mirror) []Event {
	return m.Apply(s.snapshotFor(m.Player()))
}

func mark(row, col int) engine.Move {
	return engine.Move{Kind: engine.MoveMark, Row: row, Col: col}
}

func TestMirror_TicTacToeEvents(t *testing.T) {
	s := newServer(t, engine.ModeTicTacToe)
	m := NewMirror(alice)

	assert.Empty(t, s.push(m), "no game yet")
	assert.Equal(t, engine.StatusWaitingToStart, m.Status())

	s.do(alice, area.Command{Type: area.CmdJoinGame})
	s.do(bob, area.Command{Type: area.CmdJoinGame})
	assert.Equal(t, []Event{TurnChanged{OurTurn: true}}, s.push(m))
	assert.True(t, m.IsPlayer())
	seat, err := m.Seat()
	require.NoError(t, err)
	assert.Equal(t, engine.SeatA, seat)

	s.move(alice, mark(0, 0))
	events := s.push(m)
	require.Len(t, events, 2)
	board := events[0].(BoardChanged).Board
	assert.Equal(t, engine.SeatA, board.TicTacToe[0][0])
	assert.Equal(t, TurnChanged{OurTurn: false}, events[1])
	assert.Equal(t, engine.SeatB, m.WhoseTurn())
	assert.Equal(t, 1, m.MoveCount())

	assert.Empty(t, s.push(m), "same snapshot twice changes nothing")

	s.move(bob, mark(1, 0))
	s.move(alice, mark(0, 1))
	s.move(bob, mark(1, 1))
	s.move(alice, mark(0, 2))
	events = s.push(m)
	require.Len(t, events, 2)
	final := events[0].(BoardChanged).Board
	assert.Equal(t, [3]engine.Seat{engine.SeatA, engine.SeatA, engine.SeatA}, final.TicTacToe[0])
	assert.Equal(t, GameEnded{Winner: engine.SeatA}, events[1])
	assert.Equal(t, Board{}, m.Board(), "cache cleared once the game is over")
	assert.Equal(t, engine.SeatA, m.Winner())
	assert.Empty(t, m.WhoseTurn())

	assert.Empty(t, s.push(m), "OVER is reported once")
}

func TestMirror_NewGameStartsFromBlank(t *testing.T) {
	s := newServer(t, engine.ModeTicTacToe)
	m := NewMirror(alice)

	s.do(alice, area.Command{Type: area.CmdJoinGame})
	s.do(bob, area.Command{Type: area.CmdJoinGame})
	s.move(alice, mark(2, 2))
	s.push(m)
	s.do(bob, area.Command{Type: area.CmdLeaveGame, GameID: "game-1"})
	events := s.push(m)
	assert.Contains(t, events, GameEnded{Winner: engine.SeatA})

	s.do(bob, area.Command{Type: area.CmdJoinGame})
	s.do(alice, area.Command{Type: area.CmdJoinGame})
	assert.Empty(t, s.push(m), "bob holds SeatA and moves first")

	s.move(bob, mark(1, 1))
	events = s.push(m)
	require.Len(t, events, 2)
	board := events[0].(BoardChanged).Board
	assert.Equal(t, engine.SeatA, board.TicTacToe[1][1])
	assert.Empty(t, board.TicTacToe[2][2], "nothing carried over from game-1")
	assert.Equal(t, TurnChanged{OurTurn: true}, events[1])
}

func TestMirror_IgnoresStaleSnapshots(t *testing.T) {
	s := newServer(t, engine.ModeTicTacToe)
	m := NewMirror(alice)

	s.do(alice, area.Command{Type: area.CmdJoinGame})
	s.do(bob, area.Command{Type: area.CmdJoinGame})
	oldVersion, old := s.snapshotFor(alice)
	s.move(alice, mark(0, 0))
	s.push(m)

	assert.Empty(t, m.Apply(oldVersion, old))
	assert.Equal(t, 1, m.MoveCount())
	assert.Equal(t, s.version, m.Version())
}

func TestMirror_MakeMove(t *testing.T) {
	s := newServer(t, engine.ModeTicTacToe)
	m := NewMirror(alice)

	_, err := m.MakeMove(mark(0, 0))
	assert.ErrorIs(t, err, ErrNoGameInProgress)

	join, err := m.JoinGame()
	require.NoError(t, err)
	assert.True(t, m.Pending())
	_, err = m.JoinGame()
	assert.ErrorIs(t, err, ErrMovePending)
	m.Handle(types.ServerMessage{Type: types.TypeAck, RequestID: join.RequestID})
	assert.False(t, m.Pending())

	s.do(alice, area.Command{Type: area.CmdJoinGame})
	s.do(bob, area.Command{Type: area.CmdJoinGame})
	s.push(m)

	msg, err := m.MakeMove(mark(2, 1))
	require.NoError(t, err)
	assert.Equal(t, types.TypeGameMove, msg.Type)
	assert.Equal(t, "game-1", msg.GameID)
	assert.Equal(t, 2, msg.Move.Row)
	assert.True(t, m.Pending())

	events := m.Handle(types.ServerMessage{Type: types.TypeError, RequestID: msg.RequestID,
		Error: &types.ErrorBody{Code: "NotYourTurn", Message: "not your turn"}})
	assert.Equal(t, []Event{CommandRejected{RequestID: msg.RequestID, Code: "NotYourTurn", Message: "not your turn"}}, events)
	assert.False(t, m.Pending())

	cmd, ok := types.ToCommand(msg)
	require.True(t, ok)
	assert.Equal(t, area.Command{Type: area.CmdGameMove, GameID: "game-1", Move: mark(2, 1)}, cmd)
}

func TestMirror_BattleshipPlacementAndGuessing(t *testing.T) {
	s := newServer(t, engine.ModeBattleship)
	m := NewMirror(bob)

	s.do(alice, area.Command{Type: area.CmdJoinGame})
	s.do(bob, area.Command{Type: area.CmdJoinGame})
	assert.Equal(t, []Event{TurnChanged{OurTurn: true}}, s.push(m), "placement is open to both seats")
	assert.Equal(t, string(engine.ShipCarrier), m.NextShip())

	for row, spec := range engine.FleetOrder {
		s.move(alice, engine.Move{Kind: engine.MovePlace, Ship: spec.Kind, Row: row, Col: 0})
	}
	assert.Empty(t, s.push(m), "the opponent's placement is invisible")

	s.move(bob, engine.Move{Kind: engine.MovePlace, Ship: engine.ShipCarrier, Row: 9, Col: 0})
	events := s.push(m)
	require.Len(t, events, 1)
	own := events[0].(BoardChanged).Board
	assert.Equal(t, engine.ShipCell(engine.ShipCarrier), own.Waters[engine.SeatB][9][0])
	assert.Equal(t, engine.CellUnknown, own.Waters[engine.SeatA][0][0])
	assert.Equal(t, string(engine.ShipBattleship), m.NextShip())

	for i, spec := range engine.FleetOrder[1:] {
		s.move(bob, engine.Move{Kind: engine.MovePlace, Ship: spec.Kind, Row: 5 + i, Col: 5})
	}
	events = s.push(m)
	assert.Contains(t, events, TurnChanged{OurTurn: false}, "SeatA shoots first")
	assert.Equal(t, string(engine.MoveGuess), m.NextShip())

	s.move(alice, engine.Move{Kind: engine.MoveGuess, Row: 0, Col: 9})
	events = s.push(m)
	require.Len(t, events, 2)
	assert.Equal(t, engine.CellMiss, events[0].(BoardChanged).Board.Waters[engine.SeatB][0][9])
	assert.Equal(t, TurnChanged{OurTurn: true}, events[1])

	s.move(bob, engine.Move{Kind: engine.MoveGuess, Row: 0, Col: 0})
	events = s.push(m)
	require.Len(t, events, 1, "a hit keeps the turn")
	assert.Equal(t, engine.CellHit, events[0].(BoardChanged).Board.Waters[engine.SeatA][0][0])
	assert.True(t, m.IsOurTurn())
}

func TestMirror_SubscribersSeeEveryEvent(t *testing.T) {
	s := newServer(t, engine.ModeTicTacToe)
	m := NewMirror(alice)

	var seen []Event
	m.Subscribe(func(e Event) { seen = append(seen, e) })

	s.do(alice, area.Command{Type: area.CmdJoinGame})
	s.do(bob, area.Command{Type: area.CmdJoinGame})
	s.move(alice, mark(1, 1))

	snapVersion, snap := s.snapshotFor(alice)
	m.Handle(types.ServerMessage{Type: types.TypeWelcome, PlayerID: string(alice)})
	returned := m.Handle(types.ServerMessage{Type: types.TypeStateSnapshot, Version: snapVersion, Snapshot: &snap})

	assert.Equal(t, returned, seen)
	require.Len(t, seen, 1, "turn already passed to bob, so only the board changes")
	assert.IsType(t, BoardChanged{}, seen[0])
}

func TestMirror_ObserverIsNeverOnTurn(t *testing.T) {
	s := newServer(t, engine.ModeTicTacToe)
	m := NewMirror("carol")

	s.do(alice, area.Command{Type: area.CmdJoinGame})
	s.do(bob, area.Command{Type: area.CmdJoinGame})
	s.move(alice, mark(0, 0))

	events := s.push(m)
	require.Len(t, events, 1)
	assert.IsType(t, BoardChanged{}, events[0])
	assert.False(t, m.IsPlayer())
	_, err := m.Seat()
	assert.ErrorIs(t, err, engine.ErrPlayerNotInGame)
	assert.Empty(t, m.NextShip())
}

func TestMirror_GuessWaitsForOpponentFleet(t *testing.T) {
	s := newServer(t, engine.ModeBattleship)
	m := NewMirror(alice)

	s.do(alice, area.Command{Type: area.CmdJoinGame})
	s.do(bob, area.Command{Type: area.CmdJoinGame})
	s.push(m)
	require.True(t, m.IsOurTurn())

	for row, spec := range engine.FleetOrder {
		s.move(alice, engine.Move{Kind: engine.MovePlace, Ship: spec.Kind, Row: row, Col: 0})
	}
	events := s.push(m)
	assert.Contains(t, events, TurnChanged{OurTurn: false}, "bob is still placing")
	assert.Equal(t, engine.SeatA, m.WhoseTurn())
	assert.False(t, m.IsOurTurn())

	for row, spec := range engine.FleetOrder {
		s.move(bob, engine.Move{Kind: engine.MovePlace, Ship: spec.Kind, Row: row, Col: 0})
	}
	events = s.push(m)
	assert.Equal(t, []Event{TurnChanged{OurTurn: true}}, events)
}

func TestMirror_ErrorWithoutRequestIDClearsPending(t *testing.T) {
	m := NewMirror(alice)
	_, err := m.JoinGame()
	require.NoError(t, err)
	require.True(t, m.Pending())

	events := m.Handle(types.ServerMessage{Type: types.TypeError,
		Error: &types.ErrorBody{Code: types.CodeBadJSON, Message: "bad json"}})
	assert.Equal(t, []Event{CommandRejected{Code: types.CodeBadJSON, Message: "bad json"}}, events)
	assert.False(t, m.Pending())
}
