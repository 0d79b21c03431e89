package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/DoyleJ11/duel-engine/internal/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("connection closed")

// Build produces the next outbound message from the mirror's current state.
type Build func(m *Mirror) (types.ClientMessage, error)

type request struct {
	build Build
	errc  chan error
}

// Conn connects a Mirror to a server. Run owns the mirror; other goroutines
// reach it only through Send.
type Conn struct {
	ws       *websocket.Conn
	write    func(v any) error
	mirror   *Mirror
	requests chan request
	done     chan struct{}
	log      *zap.Logger
}

// Dial connects to base (for example ws://localhost:8080/ws) for the given
// area. An empty player lets the server assign one.
func Dial(ctx context.Context, base, code, player string, log *zap.Logger) (*Conn, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("code", code)
	if player != "" {
		q.Set("player", player)
	}
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 4 * time.Second}
	ws, resp, err := dialer.DialContext(ctx, u.String(), http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", u.Redacted(), resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	return &Conn{
		ws:       ws,
		write:    ws.WriteJSON,
		mirror:   NewMirror(""),
		requests: make(chan request),
		done:     make(chan struct{}),
		log:      log,
	}, nil
}

// Subscribe must be called before Run.
func (c *Conn) Subscribe(fn func(Event)) { c.mirror.Subscribe(fn) }

// Run reads server messages into the mirror until ctx ends or the server
// closes the connection.
func (c *Conn) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.ws.Close()

	incoming := make(chan types.ServerMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg types.ServerMessage
			if err := c.ws.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			select {
			case incoming <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			return nil

		case err := <-readErr:
			c.log.Debug("read stopped", zap.Error(err))
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)

		case msg := <-incoming:
			c.mirror.Handle(msg)

		case req := <-c.requests:
			req.errc <- c.dispatch(req)
		}
	}
}

// dispatch builds and writes one request. A message that never reached the
// server will not be answered, so its pending mark is dropped.
func (c *Conn) dispatch(req request) error {
	cm, err := req.build(c.mirror)
	if err != nil {
		return err
	}
	if err := c.write(cm); err != nil {
		c.mirror.resolve(cm.RequestID)
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Send builds a message against the mirror on Run's goroutine and writes it.
func (c *Conn) Send(ctx context.Context, build Build) error {
	req := request{build: build, errc: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-req.errc
}

func (c *Conn) Done() <-chan struct{} { return c.done }
