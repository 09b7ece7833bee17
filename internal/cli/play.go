package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	wsclient "github.com/mcoot/tileworld/internal/client"
	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/protocol"
)

const playHelp = `Commands:
  w|a|s|d [n]         Step up/left/down/right n times (default 1)
  stop                Stop moving
  say <text>          Chat to everyone
  look                Show yourself and everyone nearby
  chat                Show recent chat
  appearance k=v...   Change your look (skin, hair, haircolor, shirt, pants, hat)
  help                Show this help
  quit                Leave the world`

func newPlayCmd() *cobra.Command {
	var bounded bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join the world interactively",
		Long: `Join the world as the logged-in profile and control your avatar from the prompt.

` + playHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			walkable := wsclient.OpenWorld
			if bounded {
				walkable = wsclient.DefaultBounds.Walkable
			}
			return play(ctx, os.Stdin, os.Stdout, walkable)
		},
	}

	cmd.Flags().BoolVar(&bounded, "bounded", true, "Keep the avatar inside the default map bounds")

	return cmd
}

func play(ctx context.Context, in io.Reader, w io.Writer, walkable wsclient.Walkable) error {
	conn, err := wsclient.Dial(ctx, client.BaseURL(), client.Token())
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	rec := wsclient.NewReconciler(conn, nil, walkable)
	session := newPlaySession(rec, w)

	done := make(chan error, 1)
	go func() {
		done <- conn.Run(rec, session.announce)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Fprintln(w, "Connected. Type 'help' for commands.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			return endOfStream(ctx, w, err, false)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := session.exec(line)
			if err != nil {
				fmt.Fprintf(w, "! %s\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// playSession interprets prompt commands against a reconciler
type playSession struct {
	rec *wsclient.Reconciler
	w   io.Writer
}

func newPlaySession(rec *wsclient.Reconciler, w io.Writer) *playSession {
	return &playSession{rec: rec, w: w}
}

var stepKeys = map[string]model.Facing{
	"w":     model.FacingUp,
	"up":    model.FacingUp,
	"a":     model.FacingLeft,
	"left":  model.FacingLeft,
	"s":     model.FacingDown,
	"down":  model.FacingDown,
	"d":     model.FacingRight,
	"right": model.FacingRight,
}

// exec runs one prompt line and reports whether the session should end
func (s *playSession) exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	if facing, ok := stepKeys[cmd]; ok {
		return false, s.step(facing, args)
	}

	switch cmd {
	case "stop":
		return false, s.rec.Stop()
	case "say":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		if text == "" {
			return false, errors.New("say what?")
		}
		return false, s.rec.Say(text)
	case "look":
		s.look()
		return false, nil
	case "chat":
		for _, m := range s.rec.ChatLog() {
			fmt.Fprintf(s.w, "%s: %s\n", m.DisplayName, m.Text)
		}
		return false, nil
	case "appearance":
		return false, s.appearance(args)
	case "help", "?":
		fmt.Fprintln(s.w, playHelp)
		return false, nil
	case "quit", "exit", "q":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

func (s *playSession) step(facing model.Facing, args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("step count must be a positive number, got %q", args[0])
		}
		n = v
	}
	for i := 0; i < n; i++ {
		moved, err := s.rec.Step(facing)
		if err != nil {
			return err
		}
		if !moved {
			fmt.Fprintln(s.w, "Blocked.")
			break
		}
	}
	if self, ok := s.rec.Self(); ok {
		fmt.Fprintf(s.w, "You are at (%.0f, %.0f) facing %s\n", self.Position.X, self.Position.Y, self.Facing)
	}
	return nil
}

func (s *playSession) appearance(args []string) error {
	self, ok := s.rec.Self()
	if !ok {
		return wsclient.ErrNotInitialized
	}
	if len(args) == 0 {
		return errors.New("usage: appearance key=value...")
	}
	next, err := parseAppearance(Appearance(self.Appearance), args)
	if err != nil {
		return err
	}
	return s.rec.ChangeAppearance(model.Appearance(next))
}

func (s *playSession) look() {
	self, ok := s.rec.Self()
	if !ok {
		fmt.Fprintln(s.w, "Not in the world yet.")
		return
	}
	fmt.Fprintf(s.w, "You: %s at (%.0f, %.0f) facing %s\n", self.DisplayName, self.Position.X, self.Position.Y, self.Facing)

	others := s.rec.Others()
	sort.Slice(others, func(i, j int) bool { return others[i].DisplayName < others[j].DisplayName })
	if len(others) == 0 {
		fmt.Fprintln(s.w, "Nobody else is here.")
	}
	for _, p := range others {
		line := fmt.Sprintf("  %s at (%.0f, %.0f) facing %s", p.DisplayName, p.Position.X, p.Position.Y, p.Facing)
		if p.IsMoving {
			line += ", moving"
		}
		if text, ok := s.rec.Bubble(p.ID); ok {
			line += fmt.Sprintf(" says %q", text)
		}
		fmt.Fprintln(s.w, line)
	}
}

// announce prints the events worth interrupting the prompt for
func (s *playSession) announce(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeInit:
		others := s.rec.Others()
		fmt.Fprintf(s.w, "* Joined the world with %d other player(s)\n", len(others))
	case protocol.TypeJoined:
		var p model.PlayerState
		if json.Unmarshal(env.Payload, &p) == nil {
			fmt.Fprintf(s.w, "* %s joined\n", p.DisplayName)
		}
	case protocol.TypeLeft:
		var p protocol.LeftPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			fmt.Fprintf(s.w, "* %s left\n", p.ID)
		}
	case protocol.TypeChatLog:
		history := s.rec.ChatLog()
		if len(history) > 0 {
			m := history[len(history)-1]
			fmt.Fprintf(s.w, "%s: %s\n", m.DisplayName, m.Text)
		}
	}
}
