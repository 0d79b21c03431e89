package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/duel-engine/internal/engine"
	"github.com/DoyleJ11/duel-engine/internal/hub"
	"github.com/DoyleJ11/duel-engine/internal/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T, mode engine.Mode) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, zap.NewNop())
	reply := make(chan hub.LobbyReply, 1)
	h.Inbox() <- hub.CreateLobby{Code: "ZED123", Mode: mode, Reply: reply}
	require.NoError(t, (<-reply).Err)

	srv := httptest.NewServer(Handler(h, Options{Log: zap.NewNop()}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func readMsg(t *testing.T, c *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var msg types.ServerMessage
	require.NoError(t, wsjson.Read(ctx, c, &msg))
	return msg
}

func writeMsg(t *testing.T, c *websocket.Conn, msg any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, msg))
}

// connect dials as player and consumes the Welcome and first snapshot.
func connect(t *testing.T, srv *httptest.Server, player string) *websocket.Conn {
	t.Helper()
	c := dial(t, srv, "code=ZED123&player="+player)
	welcome := readMsg(t, c)
	require.Equal(t, types.TypeWelcome, welcome.Type)
	require.Equal(t, player, welcome.PlayerID)
	require.Equal(t, types.TypeStateSnapshot, readMsg(t, c).Type)
	return c
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	srv := newServer(t, engine.ModeTicTacToe)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "missing code", query: "", status: http.StatusBadRequest},
		{name: "unknown lobby", query: "code=NOPE", status: http.StatusNotFound},
		{name: "unknown mode", query: "code=NOPE&mode=chess", status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/?" + tc.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestHandler_WelcomeThenSnapshot(t *testing.T) {
	srv := newServer(t, engine.ModeTicTacToe)
	c := dial(t, srv, "code=ZED123")

	welcome := readMsg(t, c)
	assert.Equal(t, types.TypeWelcome, welcome.Type)
	assert.Equal(t, "ZED123", welcome.Area)
	assert.NotEmpty(t, welcome.PlayerID, "anonymous players get a generated id")

	snap := readMsg(t, c)
	assert.Equal(t, types.TypeStateSnapshot, snap.Type)
	require.NotNil(t, snap.Snapshot)
	assert.Equal(t, engine.StatusWaitingToStart, snap.Snapshot.Status)
}

func TestHandler_CommandSnapshotPrecedesAck(t *testing.T) {
	srv := newServer(t, engine.ModeTicTacToe)
	c := connect(t, srv, "alice")

	writeMsg(t, c, types.ClientMessage{Type: types.TypeJoinGame, RequestID: "r1"})

	snap := readMsg(t, c)
	assert.Equal(t, types.TypeStateSnapshot, snap.Type)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, engine.PlayerID("alice"), snap.Snapshot.Players[engine.SeatA])

	ack := readMsg(t, c)
	assert.Equal(t, types.TypeAck, ack.Type)
	assert.Equal(t, "r1", ack.RequestID)
	assert.Equal(t, snap.Snapshot.GameID, ack.GameID)
}

func TestHandler_ErrorsCarryCodes(t *testing.T) {
	srv := newServer(t, engine.ModeTicTacToe)
	c := connect(t, srv, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))
	bad := readMsg(t, c)
	assert.Equal(t, types.TypeError, bad.Type)
	assert.Equal(t, types.CodeBadJSON, bad.Error.Code)

	// row has the wrong type, but request_id still decodes
	require.NoError(t, c.Write(ctx, websocket.MessageText,
		[]byte(`{"type":"GameMove","request_id":"r1","move":{"kind":"mark","row":"top","col":0}}`)))
	mistyped := readMsg(t, c)
	assert.Equal(t, types.CodeBadJSON, mistyped.Error.Code)
	assert.Equal(t, "r1", mistyped.RequestID)

	writeMsg(t, c, types.ClientMessage{Type: "Dance", RequestID: "r2"})
	unknown := readMsg(t, c)
	assert.Equal(t, "r2", unknown.RequestID)
	assert.Equal(t, "InvalidCommand", unknown.Error.Code)

	writeMsg(t, c, types.FromMove("r3", "nope", engine.Move{Kind: engine.MoveMark}))
	rejected := readMsg(t, c)
	assert.Equal(t, types.TypeError, rejected.Type)
	assert.Equal(t, "r3", rejected.RequestID)
	assert.Equal(t, "GameNotInProgress", rejected.Error.Code)
}

func TestHandler_SeatsSeeOnlyTheirOwnFleet(t *testing.T) {
	srv := newServer(t, engine.ModeBattleship)
	a := connect(t, srv, "alice")
	b := connect(t, srv, "bob")

	writeMsg(t, a, types.ClientMessage{Type: types.TypeJoinGame, RequestID: "a1"})
	readMsg(t, a) // snapshot
	gameID := readMsg(t, a).GameID
	readMsg(t, b)

	writeMsg(t, b, types.ClientMessage{Type: types.TypeJoinGame, RequestID: "b1"})
	readMsg(t, a)
	readMsg(t, b) // snapshot
	readMsg(t, b) // ack

	writeMsg(t, a, types.FromMove("a2", gameID, engine.Move{Kind: engine.MovePlace, Ship: engine.ShipDestroyer, Row: 9, Col: 8}))
	own := readMsg(t, a)
	assert.Equal(t, types.TypeAck, readMsg(t, a).Type)
	opp := readMsg(t, b)

	require.NotNil(t, own.Snapshot.View)
	assert.Len(t, own.Snapshot.View.Battleship.Fleet, 1)
	assert.Equal(t, engine.ShipCell(engine.ShipDestroyer), own.Snapshot.View.Battleship.Waters[engine.SeatA][9][8])

	require.NotNil(t, opp.Snapshot.View)
	assert.Empty(t, opp.Snapshot.View.Battleship.Fleet)
	assert.Equal(t, engine.CellUnknown, opp.Snapshot.View.Battleship.Waters[engine.SeatA][9][8])
}

func TestHandler_DisconnectForfeits(t *testing.T) {
	srv := newServer(t, engine.ModeTicTacToe)
	a := connect(t, srv, "alice")
	b := connect(t, srv, "bob")

	writeMsg(t, a, types.ClientMessage{Type: types.TypeJoinGame})
	readMsg(t, a)
	readMsg(t, a)
	readMsg(t, b)
	writeMsg(t, b, types.ClientMessage{Type: types.TypeJoinGame})
	readMsg(t, b)
	readMsg(t, b)

	_ = a.Close(websocket.StatusNormalClosure, "gone")

	final := readMsg(t, b)
	assert.Equal(t, engine.StatusOver, final.Snapshot.Status)
	assert.Equal(t, engine.SeatB, final.Snapshot.Winner)
	assert.Len(t, final.Snapshot.History, 1)
}

func TestHandler_ModeEnsuresArea(t *testing.T) {
	srv := newServer(t, engine.ModeTicTacToe)

	c := dial(t, srv, "code=NEW1&mode=battleship&player=alice")
	assert.Equal(t, "NEW1", readMsg(t, c).Area)
	snap := readMsg(t, c)
	require.NotNil(t, snap.Snapshot)
	assert.Equal(t, engine.ModeBattleship, snap.Snapshot.Mode)

	// an existing area keeps its mode
	c2 := dial(t, srv, "code=ZED123&mode=battleship&player=bob")
	readMsg(t, c2)
	assert.Equal(t, engine.ModeTicTacToe, readMsg(t, c2).Snapshot.Mode)
}
