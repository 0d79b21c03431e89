package hub

import (
	"context"
	"errors"
	"sort"

	"github.com/DoyleJ11/duel-engine/internal/area"
	"github.com/DoyleJ11/duel-engine/internal/engine"
	"github.com/DoyleJ11/duel-engine/internal/lobby"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("hub closed")
var ErrAreaExists = errors.New("area code already in use")

type HubMsg interface{ isHubMsg() }

// LobbyReply carries the lobby, or the error that kept it from being made.
type LobbyReply struct {
	Lobby *lobby.Lobby
	Err   error
}

// CreateLobby fails with ErrAreaExists when Code is taken.
type CreateLobby struct {
	Code  string
	Mode  engine.Mode
	Reply chan LobbyReply
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// EnsureLobby returns the lobby for Code, creating it with Mode when absent.
type EnsureLobby struct {
	Code  string
	Mode  engine.Mode // only used if creation happens
	Reply chan LobbyReply
}

type RemoveLobby struct {
	Code  string
	Reply chan bool // optional; reports whether the code existed
}

type ListLobbies struct {
	Reply chan []Summary
}

type Summary struct {
	Code string      `json:"code"`
	Mode engine.Mode `json:"mode"`
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Send delivers m unless the hub has stopped.
func (h *Hub) Send(m HubMsg) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// await waits for a reply to a message already sent. A hub that stops first
// never answers, so callers get ErrClosed instead of blocking.
func await[T any](h *Hub, reply <-chan T) (T, error) {
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		var zero T
		return zero, ErrClosed
	}
}

func (h *Hub) Get(code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if !h.Send(GetLobby{Code: code, Reply: reply}) {
		return nil, ErrClosed
	}
	return await(h, reply)
}

func (h *Hub) Create(code string, mode engine.Mode) (*lobby.Lobby, error) {
	reply := make(chan LobbyReply, 1)
	if !h.Send(CreateLobby{Code: code, Mode: mode, Reply: reply}) {
		return nil, ErrClosed
	}
	r, err := await(h, reply)
	if err != nil {
		return nil, err
	}
	return r.Lobby, r.Err
}

func (h *Hub) Ensure(code string, mode engine.Mode) (*lobby.Lobby, error) {
	reply := make(chan LobbyReply, 1)
	if !h.Send(EnsureLobby{Code: code, Mode: mode, Reply: reply}) {
		return nil, ErrClosed
	}
	r, err := await(h, reply)
	if err != nil {
		return nil, err
	}
	return r.Lobby, r.Err
}

// Remove stops the lobby for code and reports whether it existed.
func (h *Hub) Remove(code string) (bool, error) {
	reply := make(chan bool, 1)
	if !h.Send(RemoveLobby{Code: code, Reply: reply}) {
		return false, ErrClosed
	}
	return await(h, reply)
}

func (h *Hub) List() ([]Summary, error) {
	reply := make(chan []Summary, 1)
	if !h.Send(ListLobbies{Reply: reply}) {
		return nil, ErrClosed
	}
	return await(h, reply)
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if h.lobbies[msg.Code] != nil {
					msg.Reply <- LobbyReply{Err: ErrAreaExists}
					break
				}
				msg.Reply <- h.ensure(msg.Code, msg.Mode)

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				msg.Reply <- h.ensure(msg.Code, msg.Mode)

			case RemoveLobby:
				lb := h.lobbies[msg.Code]
				if lb != nil {
					lb.Send(lobby.Shutdown{})
					delete(h.lobbies, msg.Code)
					h.log.Info("lobby removed", zap.String("area", msg.Code))
				}
				if msg.Reply != nil {
					msg.Reply <- lb != nil
				}

			case ListLobbies:
				out := make([]Summary, 0, len(h.lobbies))
				for code, lb := range h.lobbies {
					out = append(out, Summary{Code: code, Mode: lb.Mode()})
				}
				sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
				msg.Reply <- out

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

// ensure returns the lobby for code, creating it with mode when absent.
// An existing lobby is returned as-is whatever mode was asked for.
func (h *Hub) ensure(code string, mode engine.Mode) LobbyReply {
	if lb := h.lobbies[code]; lb != nil {
		return LobbyReply{Lobby: lb}
	}
	a, err := area.New(code, mode, area.WithLogger(h.log))
	if err != nil {
		return LobbyReply{Err: err}
	}
	lb := lobby.NewLobby(h.ctx, a, h.log)
	h.lobbies[code] = lb
	h.log.Info("lobby created", zap.String("area", code), zap.String("mode", string(mode)))
	return LobbyReply{Lobby: lb}
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Send(lobby.Shutdown{})
	}
	clear(h.lobbies)
}
