// Command wsprobe smoke-tests a running broker. It opens an even number of
// websocket connections, waits for every one of them to be paired, has the
// first player of each session send a run of moves, and checks that the
// opponents receive them unchanged and in order.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// message mirrors the broker's wire frame
type message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type startGame struct {
	IsFirst bool `json:"isFirst"`
}

type move struct {
	Slot int `json:"slot"`
}

// probeOptions controls a single probe run
type probeOptions struct {
	URL     string
	Clients int
	Moves   int
	Timeout time.Duration
}

// probeReport summarizes what the probe observed
type probeReport struct {
	Pairs         int
	MovesSent     int
	MovesReceived int
	Elapsed       time.Duration
}

type player struct {
	conn    *websocket.Conn
	isFirst bool
}

func main() {
	cmd := &cli.Command{
		Name:  "wsprobe",
		Usage: "Check pairing and move relay against a running broker",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:3000/ws", Usage: "Broker websocket URL"},
			&cli.IntFlag{Name: "clients", Value: 2, Usage: "Number of connections to open (even)"},
			&cli.IntFlag{Name: "moves", Value: 5, Usage: "Moves sent by each first player"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "Overall deadline"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			report, err := runProbe(ctx, probeOptions{
				URL:     cmd.String("url"),
				Clients: cmd.Int("clients"),
				Moves:   cmd.Int("moves"),
				Timeout: cmd.Duration("timeout"),
			})
			if report != nil {
				printReport(os.Stdout, report)
			}
			return err
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("probe failed: %v", err)
	}
}

func printReport(w io.Writer, r *probeReport) {
	fmt.Fprintf(w, "Sessions paired: %d\n", r.Pairs)
	fmt.Fprintf(w, "Moves received:  %d/%d\n", r.MovesReceived, r.MovesSent)
	fmt.Fprintf(w, "Elapsed:         %s\n", r.Elapsed.Truncate(time.Millisecond))
}

func (o probeOptions) validate() error {
	if o.Clients < 2 || o.Clients%2 != 0 {
		return fmt.Errorf("clients must be an even number >= 2, got %d", o.Clients)
	}
	if o.Moves < 0 {
		return fmt.Errorf("moves must not be negative, got %d", o.Moves)
	}
	if o.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// runProbe performs one probe. The report is non-nil whenever pairing completed.
func runProbe(ctx context.Context, opts probeOptions) (*probeReport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()
	start := time.Now()

	players := make([]*player, 0, opts.Clients)
	defer func() {
		for _, p := range players {
			p.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			p.conn.Close()
		}
	}()

	for i := 0; i < opts.Clients; i++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("dial client %d: %w", i, err)
		}
		conn.SetReadDeadline(deadline)
		players = append(players, &player{conn: conn})
	}

	g, _ := errgroup.WithContext(ctx)
	for i, p := range players {
		g.Go(func() error {
			first, err := awaitStart(p.conn)
			if err != nil {
				return fmt.Errorf("client %d: %w", i, err)
			}
			p.isFirst = first
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &probeReport{}
	for _, p := range players {
		if p.isFirst {
			report.Pairs++
		}
	}
	if report.Pairs*2 != opts.Clients {
		return report, fmt.Errorf("expected %d first players, got %d", opts.Clients/2, report.Pairs)
	}

	for i, p := range players {
		if !p.isFirst {
			continue
		}
		for slot := 0; slot < opts.Moves; slot++ {
			data, _ := json.Marshal(move{Slot: slot})
			if err := p.conn.WriteJSON(message{Event: "move", Data: data}); err != nil {
				return report, fmt.Errorf("client %d send move: %w", i, err)
			}
			report.MovesSent++
		}
	}

	received := make([]int, len(players))
	g, _ = errgroup.WithContext(ctx)
	for i, p := range players {
		if p.isFirst {
			continue
		}
		g.Go(func() error {
			n, err := collectMoves(p.conn, opts.Moves)
			received[i] = n
			if err != nil {
				return fmt.Errorf("client %d: %w", i, err)
			}
			return nil
		})
	}
	err := g.Wait()

	for _, n := range received {
		report.MovesReceived += n
	}
	report.Elapsed = time.Since(start)
	return report, err
}

// awaitStart reads until startGame and returns the role flag
func awaitStart(conn *websocket.Conn) (bool, error) {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return false, fmt.Errorf("waiting for startGame: %w", err)
		}
		if msg.Event != "startGame" {
			continue
		}
		var start startGame
		if err := json.Unmarshal(msg.Data, &start); err != nil {
			return false, fmt.Errorf("bad startGame data: %w", err)
		}
		return start.IsFirst, nil
	}
}

// collectMoves reads want opponentMove events and checks they arrive in order
func collectMoves(conn *websocket.Conn, want int) (int, error) {
	got := 0
	for got < want {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return got, fmt.Errorf("after %d moves: %w", got, err)
		}

		switch msg.Event {
		case "opponentMove":
			var m move
			if err := json.Unmarshal(msg.Data, &m); err != nil {
				return got, fmt.Errorf("bad move data: %w", err)
			}
			if m.Slot != got {
				return got, fmt.Errorf("move out of order: expected slot %d, got %d", got, m.Slot)
			}
			got++
		case "opponentDisconnect":
			return got, errors.New("opponent disconnected")
		}
	}
	return got, nil
}
