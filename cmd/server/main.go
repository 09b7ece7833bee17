package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/tileworld/internal/api"
	"github.com/mcoot/tileworld/internal/config"
	"github.com/mcoot/tileworld/internal/factory"
	"github.com/mcoot/tileworld/internal/logging"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "tileworld",
	Short: "Shared tile world presence server",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	serveCmd.Flags().StringVar(&configFile, "config", "", "YAML config file (env overrides use the TILEWORLD_ prefix)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}
	// app.Close stops the relay once the listener is down
	app.Start(context.Background())

	// Create server
	server := api.NewServer(app.Router, cfg.Server, logger)
	if err := server.Listen(); err != nil {
		_ = app.Close()
		return err
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("session_policy", cfg.Session.Policy),
	)

	// Wait for shutdown or error
	var serveErr error
	select {
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("server error", slog.String("error", serveErr.Error()))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			serveErr = err
		}
	}

	if err := app.Close(); err != nil {
		logger.Error("application close error", slog.String("error", err.Error()))
		if serveErr == nil {
			serveErr = fmt.Errorf("close: %w", err)
		}
	}

	logger.Info("server stopped")
	return serveErr
}
