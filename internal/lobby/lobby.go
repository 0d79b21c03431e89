package lobby

import (
	"context"

	"github.com/DoyleJ11/duel-engine/internal/area"
	"github.com/DoyleJ11/duel-engine/internal/engine"
	"go.uber.org/zap"
)

type Msg interface{ isLobbyMsg() }

// FromClient carries one player command. Reply, if set, must be buffered.
type FromClient struct {
	ClientID string
	PlayerID engine.PlayerID
	Cmd      area.Command
	Reply    chan Reply
}

func (FromClient) isLobbyMsg() {}

type Reply struct {
	Result area.Result
	Err    error
}

type Join struct {
	ClientID string
	PlayerID engine.PlayerID
	Outbox   chan Update // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type GetHistory struct {
	Reply chan []area.GameResult
}

func (GetHistory) isLobbyMsg() {}

type GetSnapshot struct {
	Viewer engine.Viewer
	Reply  chan area.Snapshot
}

func (GetSnapshot) isLobbyMsg() {}

type Update struct {
	Version  int
	Snapshot area.Snapshot
}

type View struct {
	Version    int
	NumClients int
	Snapshot   area.Snapshot
	History    []area.GameResult
}

type client struct {
	player engine.PlayerID
	outbox chan Update
}

// Lobby owns one Area and applies every command to it from a single
// goroutine, so moves against the same game never interleave.
type Lobby struct {
	code    string
	mode    engine.Mode
	inbox   chan Msg
	area    *area.Area
	version int
	clients map[string]client
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
}

func NewLobby(parent context.Context, a *area.Area, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		code:    a.ID(),
		mode:    a.Mode(),
		inbox:   make(chan Msg, 64), // Small buffer
		area:    a,
		clients: make(map[string]client),
		ctx:     ctx,
		cancel:  cancel,
		log:     log.With(zap.String("area", a.ID())),
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				c := client{player: msg.PlayerID, outbox: msg.Outbox}
				l.clients[msg.ClientID] = c
				if !l.send(msg.ClientID, c, Update{Version: l.version, Snapshot: l.area.Snapshot(l.area.ViewerOf(c.player))}) {
					l.release(c.player)
				}

			case Leave:
				c, ok := l.clients[msg.ClientID]
				if !ok {
					break
				}
				delete(l.clients, msg.ClientID)
				l.release(c.player)

			case FromClient:
				res, err := l.apply(msg.PlayerID, msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- Reply{Result: res, Err: err}
				}

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Snapshot:   l.area.Snapshot(engine.ViewerObserver),
					History:    l.area.History(),
				}

			case GetHistory:
				msg.Reply <- l.area.History()

			case GetSnapshot:
				msg.Reply <- l.area.Snapshot(msg.Viewer)

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// apply runs cmd against the area and fans out on success.
func (l *Lobby) apply(player engine.PlayerID, cmd area.Command) (area.Result, error) {
	res, err := l.area.Handle(player, cmd)
	if err != nil {
		l.log.Debug("command rejected",
			zap.String("player", string(player)),
			zap.String("command", string(cmd.Type)),
			zap.Error(err))
		return res, err
	}

	l.version++
	for _, e := range res.Events {
		l.log.Info("game event",
			zap.String("game_id", res.GameID),
			zap.String("event", string(e.Type)),
			zap.String("seat", string(e.Seat)),
			zap.Int("version", l.version))
	}
	l.broadcast()
	return res, nil
}

// forfeit leaves the current game on behalf of a player whose last
// connection went away.
func (l *Lobby) forfeit(player engine.PlayerID) {
	g := l.area.Game()
	if g == nil || g.Status == engine.StatusOver {
		return
	}
	if _, seated := g.SeatOf(player); !seated {
		return
	}
	_, _ = l.apply(player, area.Command{Type: area.CmdLeaveGame, GameID: g.ID})
}

// release forfeits for player once no connection of theirs remains.
func (l *Lobby) release(player engine.PlayerID) {
	if !l.connected(player) {
		l.forfeit(player)
	}
}

func (l *Lobby) connected(player engine.PlayerID) bool {
	for _, c := range l.clients {
		if c.player == player {
			return true
		}
	}
	return false
}

func (l *Lobby) shutdown() {
	for id, c := range l.clients {
		close(c.outbox) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

// broadcast projects the committed state once per recipient class and
// sends each client the projection for its own seat. A seated player whose
// only connection is dropped forfeits, which broadcasts again; that second
// round ends the game, so it cannot forfeit twice.
func (l *Lobby) broadcast() {
	snaps := map[engine.Viewer]area.Snapshot{}
	var dropped []engine.PlayerID
	for id, c := range l.clients {
		viewer := l.area.ViewerOf(c.player)
		snap, ok := snaps[viewer]
		if !ok {
			snap = l.area.Snapshot(viewer)
			snaps[viewer] = snap
		}
		if !l.send(id, c, Update{Version: l.version, Snapshot: snap}) {
			dropped = append(dropped, c.player)
		}
	}
	for _, player := range dropped {
		l.release(player)
	}
}

// send reports false when the client was dropped.
func (l *Lobby) send(id string, c client, u Update) bool {
	select {
	case c.outbox <- u:
		return true
	default:
		// Client is slow/full - drop them.
		l.log.Warn("dropping slow client", zap.String("client", id), zap.String("player", string(c.player)))
		close(c.outbox)
		delete(l.clients, id)
		return false
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send delivers m unless the lobby has stopped.
func (l *Lobby) Send(m Msg) bool {
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}

func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) Code() string      { return l.code }
func (l *Lobby) Mode() engine.Mode { return l.mode }
