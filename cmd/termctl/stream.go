package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/termhost/internal/client"
)

func attachCmd(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("attach", flag.ContinueOnError)
	replay := fs.Int("replay", 20, "buffered lines to show first")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() != 1 {
		return usagef("expected a session ID")
	}

	conn, err := c.Attach(ctx, fs.Arg(0), client.StreamOptions{Replay: *replay})
	if err != nil {
		return err
	}
	return pipe(ctx, conn)
}

func spawnCmd(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("spawn", flag.ContinueOnError)
	var cfg client.SpawnConfig
	fs.StringVar(&cfg.Shell, "shell", "", "shell binary")
	fs.StringVar(&cfg.WorkingDir, "cwd", "", "working directory")
	fs.IntVar(&cfg.Cols, "cols", 0, "columns")
	fs.IntVar(&cfg.Rows, "rows", 0, "rows")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	conn, err := c.Spawn(ctx, cfg, client.StreamOptions{})
	if err != nil {
		return err
	}
	return pipe(ctx, conn)
}

// pipe copies stdin lines to the connection and output frames to stdout
// until either side ends.
func pipe(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	var mu sync.Mutex
	send := func(msgType int, data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		return conn.WriteMessage(msgType, data)
	}
	closeFrame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			os.Stdout.Write(data)
		}
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := send(websocket.TextMessage, append(scanner.Bytes(), '\n')); err != nil {
				return
			}
		}
		// stdin closed: detach cleanly.
		_ = send(websocket.CloseMessage, closeFrame)
	}()

	select {
	case <-ctx.Done():
		_ = send(websocket.CloseMessage, closeFrame)
		return nil
	case err := <-readErr:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			fmt.Fprintln(os.Stderr, "\r\n[session ended]")
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}
