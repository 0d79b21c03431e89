package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/DoyleJ11/duel-engine/internal/client"
	"github.com/DoyleJ11/duel-engine/internal/engine"
	"github.com/DoyleJ11/duel-engine/internal/logging"
	"github.com/DoyleJ11/duel-engine/internal/types"
	"go.uber.org/zap"
)

const usage = `commands:
  join
  leave
  mark <row> <col>
  place <ship> <row> <col>
  guess <row> <col>`

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "server websocket url")
	code := flag.String("code", "", "area code")
	player := flag.String("player", "", "player id (server assigns one when empty)")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	if err := run(*url, *code, *player, *level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(url, code, player, level string) error {
	if code == "" {
		return errors.New("-code is required")
	}
	log, err := logging.New("dev", level)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := client.Dial(ctx, url, code, player, log)
	if err != nil {
		return err
	}
	conn.Subscribe(func(e client.Event) { logEvent(log, e) })

	go readCommands(ctx, conn, log)
	return conn.Run(ctx)
}

func logEvent(log *zap.Logger, e client.Event) {
	switch ev := e.(type) {
	case client.BoardChanged:
		log.Info("board changed")
		fmt.Print(render(ev.Board))
	case client.TurnChanged:
		log.Info("turn changed", zap.Bool("our_turn", ev.OurTurn))
	case client.GameEnded:
		winner := string(ev.Winner)
		if winner == "" {
			winner = "tie"
		}
		log.Info("game ended", zap.String("winner", winner))
	case client.CommandRejected:
		log.Warn("command rejected", zap.String("code", ev.Code), zap.String("message", ev.Message))
	}
}

func readCommands(ctx context.Context, conn *client.Conn, log *zap.Logger) {
	fmt.Println(usage)
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		build, err := parse(strings.Fields(sc.Text()))
		if err != nil {
			log.Warn("bad command", zap.Error(err))
			continue
		}
		if err := conn.Send(ctx, build); err != nil {
			if errors.Is(err, client.ErrClosed) || ctx.Err() != nil {
				return
			}
			log.Warn("not sent", zap.Error(err))
		}
	}
}

func parse(fields []string) (client.Build, error) {
	if len(fields) == 0 {
		return nil, errors.New(usage)
	}
	ints := func(args []string) ([]int, error) {
		out := make([]int, len(args))
		for i, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", a)
			}
			out[i] = n
		}
		return out, nil
	}
	move := func(mv engine.Move) client.Build {
		return func(m *client.Mirror) (types.ClientMessage, error) { return m.MakeMove(mv) }
	}

	switch cmd, args := fields[0], fields[1:]; {
	case cmd == "join" && len(args) == 0:
		return (*client.Mirror).JoinGame, nil
	case cmd == "leave" && len(args) == 0:
		return (*client.Mirror).LeaveGame, nil
	case (cmd == "mark" || cmd == "guess") && len(args) == 2:
		rc, err := ints(args)
		if err != nil {
			return nil, err
		}
		return move(engine.Move{Kind: engine.MoveKind(cmd), Row: rc[0], Col: rc[1]}), nil
	case cmd == "place" && len(args) == 3:
		rc, err := ints(args[1:])
		if err != nil {
			return nil, err
		}
		return move(engine.Move{Kind: engine.MovePlace, Ship: engine.ShipKind(args[0]), Row: rc[0], Col: rc[1]}), nil
	}
	return nil, fmt.Errorf("unknown command %q\n%s", strings.Join(fields, " "), usage)
}

func render(b client.Board) string {
	var sb strings.Builder
	if b.Waters == nil {
		for _, row := range b.TicTacToe {
			for _, s := range row {
				if s == "" {
					s = "."
				}
				sb.WriteString(string(s))
			}
			sb.WriteByte('\n')
		}
		return sb.String()
	}
	for _, seat := range engine.Seats {
		g, ok := b.Waters[seat]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "seat %s\n", seat)
		for _, row := range g {
			for _, c := range row {
				sb.WriteString(string(c))
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
