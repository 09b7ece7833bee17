package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/tileworld/internal/feed"
	"github.com/mcoot/tileworld/internal/model"
)

func newFeedCmd() *cobra.Command {
	var (
		natsURL    string
		prefix     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Watch the presence feed over NATS",
		Long: `Subscribe to the presence feed the server publishes to NATS: joins, leaves,
appearance changes and chat. Does not connect to the world itself, so no token is needed.

Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sub, err := feed.Subscribe(natsURL, prefix, func(e model.Event, payload json.RawMessage) {
				printFeedEvent(e, payload, jsonOutput)
			})
			if err != nil {
				return err
			}
			defer func() { _ = sub.Close() }()

			if !jsonOutput {
				fmt.Printf("Watching %s.>\n", prefixOrDefault(prefix))
			}
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats", cfg.NATSURL, "NATS URL (env: WORLDCTL_NATS)")
	cmd.Flags().StringVar(&prefix, "prefix", feed.DefaultSubjectPrefix, "Subject prefix")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

func prefixOrDefault(prefix string) string {
	if prefix == "" {
		return feed.DefaultSubjectPrefix
	}
	return prefix
}

func printFeedEvent(e model.Event, payload json.RawMessage, jsonOutput bool) {
	if jsonOutput {
		e.Payload = payload
		data, _ := json.Marshal(e)
		fmt.Fprintln(os.Stdout, string(data))
		return
	}
	fmt.Printf("[%s] %s %s (%s): %s\n",
		e.Timestamp.Local().Format(time.DateTime), e.Type, e.IdentityID, e.ConnectionID, string(payload))
}
