package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	wsclient "github.com/mcoot/tileworld/internal/client"
	"github.com/mcoot/tileworld/internal/protocol"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Join the world and stream its events",
		Long: `Connect to the world as the logged-in profile and print every event the
server sends. Your avatar appears to other players while connected but never moves.

Events include:
  - init: Your own state and everyone already present
  - joined / left: Players entering and leaving
  - moved / stopped: Movement updates
  - appearanceUpdated: Someone changed their look
  - chatLog / chatBubble: Chat lines

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, os.Stdout, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// StreamedEvent is one printed server event
type StreamedEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func streamEvents(ctx context.Context, w io.Writer, jsonOutput bool) error {
	conn, err := wsclient.Dial(ctx, client.BaseURL(), client.Token())
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Close on interrupt; Read then fails and the loop exits
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if !jsonOutput {
		fmt.Fprintln(w, "Connected to world")
	}

	for {
		env, err := conn.Read()
		if err != nil {
			return endOfStream(ctx, w, err, jsonOutput)
		}
		printEvent(w, env, jsonOutput)
	}
}

// endOfStream turns the error that ended a session into the command result
func endOfStream(ctx context.Context, w io.Writer, err error, jsonOutput bool) error {
	var rejected *wsclient.RejectedError
	if errors.As(err, &rejected) {
		return rejected
	}
	if ctx.Err() != nil {
		if !jsonOutput {
			fmt.Fprintln(w, "\nDisconnected")
		}
		return nil
	}
	if _, reason, ok := wsclient.CloseReason(err); ok {
		if !jsonOutput {
			fmt.Fprintf(w, "Disconnected by server: %s\n", reason)
		}
		if wsclient.IsNormalClose(err) {
			return nil
		}
	}
	return fmt.Errorf("stream error: %w", err)
}

func printEvent(w io.Writer, env protocol.Envelope, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		evt := StreamedEvent{
			Time:  now,
			Event: env.Type,
			Data:  env.Payload,
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Fprintln(w, string(jsonData))
		return
	}

	timestamp := now.Format(time.DateTime)
	displayData := string(env.Payload)
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	displayData = strings.ReplaceAll(displayData, "\n", " ")
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, env.Type, displayData)
}
