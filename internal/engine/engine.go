package engine

import (
	"errors"
	"fmt"
)

var ErrGameNotInProgress = errors.New("game not in progress")
var ErrGameFull = errors.New("game is full")
var ErrPlayerAlreadyInGame = errors.New("player already in game")
var ErrPlayerNotInGame = errors.New("player not in game")
var ErrNotYourTurn = errors.New("not your turn")
var ErrBoardPositionNotEmpty = errors.New("board position not empty")
var ErrOutOfBounds = errors.New("position out of bounds")
var ErrPlacementIncomplete = errors.New("ship placement incomplete")
var ErrShipAlreadyPlaced = errors.New("ship already placed")
var ErrUnknownShipKind = errors.New("unknown ship kind")
var ErrInvalidMove = errors.New("invalid move for this game")
var ErrUnknownMode = errors.New("unknown game mode")

type PlayerID string

type Seat string

const (
	SeatA Seat = "A"
	SeatB Seat = "B"
)

var Seats = [2]Seat{SeatA, SeatB}

func (s Seat) Opponent() Seat {
	if s == SeatA {
		return SeatB
	}
	return SeatA
}

type Status string

const (
	StatusWaitingToStart Status = "WAITING_TO_START"
	StatusInProgress     Status = "IN_PROGRESS"
	StatusOver           Status = "OVER"
)

type Mode string

const (
	ModeTicTacToe  Mode = "tictactoe"
	ModeBattleship Mode = "battleship"
)

func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := variants[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

type MoveKind string

const (
	MoveMark  MoveKind = "mark"
	MovePlace MoveKind = "place"
	MoveGuess MoveKind = "guess"
)

// Move is the tagged union of every move the engine understands. The seat
// making the move is never part of it.
type Move struct {
	Kind MoveKind `json:"kind"`
	Ship ShipKind `json:"ship,omitempty"`
	Row  int      `json:"row"`
	Col  int      `json:"col"`
}

type EventType string

const (
	EvtPlayerJoined       EventType = "PlayerJoined"
	EvtGameStarted        EventType = "GameStarted"
	EvtPlayerLeft         EventType = "PlayerLeft"
	EvtMarkPlaced         EventType = "MarkPlaced"
	EvtShipPlaced         EventType = "ShipPlaced"
	EvtPlacementCompleted EventType = "PlacementCompleted"
	EvtShotFired          EventType = "ShotFired"
	EvtTurnAdvanced       EventType = "TurnAdvanced"
	EvtGameCompleted      EventType = "GameCompleted"
)

/*
	Join       -> PlayerJoined -> GameStarted (second seat only)
	Leave      -> PlayerLeft -> GameCompleted (only once IN_PROGRESS)
	mark       -> MarkPlaced -> TurnAdvanced | GameCompleted
	place      -> ShipPlaced -> PlacementCompleted (fifth ship)
	guess      -> ShotFired -> TurnAdvanced (miss only) -> GameCompleted
*/

type Event struct {
	Type    EventType `json:"type"`
	Seat    Seat      `json:"seat,omitempty"`
	Player  PlayerID  `json:"player,omitempty"`
	Row     int       `json:"row"`
	Col     int       `json:"col"`
	Ship    ShipKind  `json:"ship,omitempty"`
	Outcome Outcome   `json:"outcome,omitempty"`
	Winner  Seat      `json:"winner,omitempty"`
}

// State is tagged by Mode; exactly one of the variant pointers is set.
type State struct {
	Mode       Mode             `json:"mode"`
	TicTacToe  *TicTacToeState  `json:"tictactoe,omitempty"`
	Battleship *BattleshipState `json:"battleship,omitempty"`
}

// rules is the per-mode validator and win checker the Game dispatches to.
type rules interface {
	newState() State
	start(s *State)
	turnGated(m Move) bool
	turn(s State) Seat
	validate(s State, seat Seat, m Move) error
	apply(s *State, seat Seat, m Move) []Event
	outcome(s State) (over bool, winner Seat)
}

var variants = map[Mode]rules{
	ModeTicTacToe:  ticTacToeRules{},
	ModeBattleship: battleshipRules{},
}

// Game is the authoritative match. It carries unredacted fleets and must only
// leave the process through ProjectView.
type Game struct {
	ID      string
	Mode    Mode
	Players map[Seat]PlayerID
	Status  Status
	Winner  Seat
	State   State
	rules   rules
}

func NewGame(id string, mode Mode) (*Game, error) {
	r, ok := variants[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return &Game{
		ID:      id,
		Mode:    mode,
		Players: map[Seat]PlayerID{},
		Status:  StatusWaitingToStart,
		State:   r.newState(),
		rules:   r,
	}, nil
}

// SeatOf resolves the seat held by id.
func (g *Game) SeatOf(id PlayerID) (Seat, bool) {
	for _, s := range Seats {
		if p, ok := g.Players[s]; ok && p == id {
			return s, true
		}
	}
	return "", false
}

func (g *Game) Join(id PlayerID) ([]Event, error) {
	if _, ok := g.SeatOf(id); ok {
		return nil, ErrPlayerAlreadyInGame
	}
	if g.Status != StatusWaitingToStart {
		return nil, ErrGameFull
	}

	var seat Seat
	switch {
	case g.Players[SeatA] == "":
		seat = SeatA
	case g.Players[SeatB] == "":
		seat = SeatB
	default:
		return nil, ErrGameFull
	}

	g.Players[seat] = id
	events := []Event{{Type: EvtPlayerJoined, Seat: seat, Player: id}}

	if g.Players[SeatA] != "" && g.Players[SeatB] != "" {
		g.Status = StatusInProgress
		g.rules.start(&g.State)
		events = append(events, Event{Type: EvtGameStarted})
	}
	return events, nil
}

func (g *Game) Leave(id PlayerID) ([]Event, error) {
	seat, ok := g.SeatOf(id)
	if !ok {
		return nil, ErrPlayerNotInGame
	}
	if g.Status == StatusOver {
		return nil, ErrGameNotInProgress
	}

	events := []Event{{Type: EvtPlayerLeft, Seat: seat, Player: id}}

	// Never started: just vacate the seat.
	if g.Status == StatusWaitingToStart {
		delete(g.Players, seat)
		return events, nil
	}

	g.finish(seat.Opponent())
	return append(events, Event{Type: EvtGameCompleted, Winner: g.Winner}), nil
}

// ApplyMove validates m completely before touching any state.
func (g *Game) ApplyMove(id PlayerID, m Move) ([]Event, error) {
	if g.Status != StatusInProgress {
		return nil, ErrGameNotInProgress
	}

	seat, ok := g.SeatOf(id)
	if !ok {
		return nil, ErrNotYourTurn
	}

	if g.rules.turnGated(m) && g.rules.turn(g.State) != seat {
		return nil, ErrNotYourTurn
	}

	if err := g.rules.validate(g.State, seat, m); err != nil {
		return nil, err
	}

	events := g.rules.apply(&g.State, seat, m)

	if over, winner := g.rules.outcome(g.State); over {
		g.finish(winner)
		events = append(events, Event{Type: EvtGameCompleted, Winner: winner})
	}
	return events, nil
}

// finish moves the game to OVER. An empty winner records a tie.
func (g *Game) finish(winner Seat) {
	g.Status = StatusOver
	g.Winner = winner
}

// Turn reports whose move it is. Empty unless the game is in progress.
func (g *Game) Turn() Seat {
	if g.Status != StatusInProgress {
		return ""
	}
	return g.rules.turn(g.State)
}
