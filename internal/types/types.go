package types

import (
	"errors"

	"github.com/DoyleJ11/duel-engine/internal/area"
	"github.com/DoyleJ11/duel-engine/internal/engine"
)

// Client -> server message types.
const (
	TypeJoinGame  = "JoinGame"
	TypeGameMove  = "GameMove"
	TypeLeaveGame = "LeaveGame"
)

// Server -> client message types.
const (
	TypeWelcome       = "Welcome"
	TypeStateSnapshot = "StateSnapshot"
	TypeAck           = "Ack"
	TypeError         = "Error"
)

type ClientMessage struct {
	Type      string       `json:"type"`
	RequestID string       `json:"request_id,omitempty"`
	GameID    string       `json:"game_id,omitempty"`
	Move      *MoveMessage `json:"move,omitempty"`
}

type MoveMessage struct {
	Kind engine.MoveKind `json:"kind"`
	Ship engine.ShipKind `json:"ship,omitempty"`
	Row  int             `json:"row"`
	Col  int             `json:"col"`
}

type ServerMessage struct {
	Type      string         `json:"type"` // "Welcome" | "StateSnapshot" | "Ack" | "Error"
	RequestID string         `json:"request_id,omitempty"`
	PlayerID  string         `json:"player_id,omitempty"`
	Area      string         `json:"area,omitempty"`
	GameID    string         `json:"game_id,omitempty"`
	Version   int            `json:"version,omitempty"`
	Snapshot  *area.Snapshot `json:"snapshot,omitempty"`
	Error     *ErrorBody     `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToCommand converts a decoded client message into an area command.
func ToCommand(m ClientMessage) (area.Command, bool) {
	switch m.Type {
	case TypeJoinGame:
		return area.Command{Type: area.CmdJoinGame}, true
	case TypeLeaveGame:
		return area.Command{Type: area.CmdLeaveGame, GameID: m.GameID}, true
	case TypeGameMove:
		if m.Move == nil {
			return area.Command{}, false
		}
		return area.Command{Type: area.CmdGameMove, GameID: m.GameID, Move: engine.Move{
			Kind: m.Move.Kind,
			Ship: m.Move.Ship,
			Row:  m.Move.Row,
			Col:  m.Move.Col,
		}}, true
	default:
		return area.Command{}, false
	}
}

// FromMove is the inverse of ToCommand for moves built client-side.
func FromMove(requestID, gameID string, mv engine.Move) ClientMessage {
	return ClientMessage{
		Type:      TypeGameMove,
		RequestID: requestID,
		GameID:    gameID,
		Move:      &MoveMessage{Kind: mv.Kind, Ship: mv.Ship, Row: mv.Row, Col: mv.Col},
	}
}

var errorCodes = []struct {
	err  error
	code string
}{
	{engine.ErrGameNotInProgress, "GameNotInProgress"},
	{engine.ErrGameFull, "GameFull"},
	{engine.ErrPlayerAlreadyInGame, "PlayerAlreadyInGame"},
	{engine.ErrPlayerNotInGame, "PlayerNotInGame"},
	{engine.ErrNotYourTurn, "NotYourTurn"},
	{engine.ErrBoardPositionNotEmpty, "BoardPositionNotEmpty"},
	{engine.ErrOutOfBounds, "OutOfBounds"},
	{engine.ErrPlacementIncomplete, "PlacementIncomplete"},
	{engine.ErrShipAlreadyPlaced, "ShipAlreadyPlaced"},
	{engine.ErrUnknownShipKind, "UnknownShipKind"},
	{engine.ErrInvalidMove, "InvalidMove"},
	{engine.ErrUnknownMode, "UnknownMode"},
	{area.ErrGameIDMismatch, "GameIDMismatch"},
	{area.ErrInvalidCommand, "InvalidCommand"},
}

// Stable codes for failures that never reach the engine.
const (
	CodeBadJSON  = "BadJSON"
	CodeInternal = "Internal"
)

// ErrorCode maps err to its wire code.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

func NewError(requestID string, err error) ServerMessage {
	return ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Error:     &ErrorBody{Code: ErrorCode(err), Message: err.Error()},
	}
}
