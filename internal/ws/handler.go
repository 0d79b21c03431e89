package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DoyleJ11/duel-engine/internal/area"
	"github.com/DoyleJ11/duel-engine/internal/engine"
	"github.com/DoyleJ11/duel-engine/internal/hub"
	"github.com/DoyleJ11/duel-engine/internal/lobby"
	"github.com/DoyleJ11/duel-engine/internal/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

var errLobbyClosed = errors.New("lobby closed")

type Options struct {
	// OriginPatterns are passed to websocket.Accept; empty means same-origin only.
	OriginPatterns []string
	ClientBuffer   int
	Log            *zap.Logger
}

// resolveLobby finds the lobby for code. With a mode the area is created on
// first use; an existing area keeps its own mode.
func resolveLobby(h *hub.Hub, code, mode string) (*lobby.Lobby, error) {
	if mode == "" {
		return h.Get(code)
	}
	m, err := engine.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return h.Ensure(code, m)
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.ClientBuffer <= 0 {
		opts.ClientBuffer = 16
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		lb, err := resolveLobby(h, code, r.URL.Query().Get("mode"))
		switch {
		case errors.Is(err, hub.ErrClosed):
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		case errors.Is(err, engine.ErrUnknownMode):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		case lb == nil:
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		player := r.URL.Query().Get("player")
		if player == "" {
			player = uuid.NewString()
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		s := &session{
			conn:     conn,
			lobby:    lb,
			clientID: uuid.NewString(),
			player:   engine.PlayerID(player),
			outbox:   make(chan lobby.Update, opts.ClientBuffer),
			replies:  make(chan types.ServerMessage, 8),
			log:      opts.Log.With(zap.String("area", code), zap.String("player", player)),
		}
		s.serve(r.Context())
	}
}

type session struct {
	conn     *websocket.Conn
	lobby    *lobby.Lobby
	clientID string
	player   engine.PlayerID
	outbox   chan lobby.Update
	replies  chan types.ServerMessage
	log      *zap.Logger
}

func (s *session) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	welcome := types.ServerMessage{Type: types.TypeWelcome, PlayerID: string(s.player), Area: s.lobby.Code()}
	if err := s.write(ctx, welcome); err != nil {
		return
	}

	if !s.lobby.Send(lobby.Join{ClientID: s.clientID, PlayerID: s.player, Outbox: s.outbox}) {
		s.conn.Close(websocket.StatusGoingAway, errLobbyClosed.Error())
		return
	}
	defer s.lobby.Send(lobby.Leave{ClientID: s.clientID})
	s.log.Debug("client connected", zap.String("client", s.clientID))

	// Writer goroutine
	go func() {
		defer cancel()
		if err := s.writeLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Debug("writer stopped", zap.Error(err))
			if errors.Is(err, errLobbyClosed) {
				s.conn.Close(websocket.StatusGoingAway, err.Error())
			}
		}
	}()

	s.readLoop(ctx)
}

// writeLoop is the only writer after the welcome. Snapshots already queued
// are flushed before a reply so an Ack never overtakes the state it produced.
func (s *session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case u, ok := <-s.outbox:
			if !ok {
				return errLobbyClosed
			}
			if err := s.writeUpdate(ctx, u); err != nil {
				return err
			}

		case msg := <-s.replies:
			if err := s.flush(ctx); err != nil {
				return err
			}
			if err := s.write(ctx, msg); err != nil {
				return err
			}
		}
	}
}

func (s *session) flush(ctx context.Context) error {
	for {
		select {
		case u, ok := <-s.outbox:
			if !ok {
				return errLobbyClosed
			}
			if err := s.writeUpdate(ctx, u); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s *session) writeUpdate(ctx context.Context, u lobby.Update) error {
	snap := u.Snapshot
	return s.write(ctx, types.ServerMessage{Type: types.TypeStateSnapshot, Version: u.Version, Snapshot: &snap})
}

func (s *session) write(ctx context.Context, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, msg)
}

func (s *session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				s.log.Debug("read failed", zap.Error(err))
			}
			return // lobby.Leave in defer
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			// a type mismatch still decodes the other fields, request_id included
			s.reply(ctx, types.ServerMessage{Type: types.TypeError, RequestID: cm.RequestID,
				Error: &types.ErrorBody{Code: types.CodeBadJSON, Message: "bad json"}})
			continue
		}

		cmd, ok := types.ToCommand(cm)
		if !ok {
			s.reply(ctx, types.NewError(cm.RequestID, fmt.Errorf("%w: %q", area.ErrInvalidCommand, cm.Type)))
			continue
		}

		res := make(chan lobby.Reply, 1)
		if !s.lobby.Send(lobby.FromClient{ClientID: s.clientID, PlayerID: s.player, Cmd: cmd, Reply: res}) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-s.lobby.Done():
			return
		case out := <-res:
			if out.Err != nil {
				s.reply(ctx, types.NewError(cm.RequestID, out.Err))
				continue
			}
			s.reply(ctx, types.ServerMessage{Type: types.TypeAck, RequestID: cm.RequestID, GameID: out.Result.GameID})
		}
	}
}

func (s *session) reply(ctx context.Context, msg types.ServerMessage) {
	select {
	case s.replies <- msg:
	case <-ctx.Done():
	}
}
