package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/dossierbot/dossier/pkg/dossier/bot"
	"github.com/dossierbot/dossier/pkg/dossier/channels/discord"
	"github.com/dossierbot/dossier/pkg/dossier/config"
)

// newServeCmd creates the `dossier serve` command that starts the bot.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bot and connect to Discord",
		Long: `Start Dossier, connecting to Discord and relaying eligible messages
to the configured completion endpoints.

Examples:
  dossier serve
  dossier serve --config ./config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logger := newLogger(cfg.Logging, verbose)

	assistant := bot.New(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dc := discord.New(cfg.Discord, logger)
	if err := assistant.ChannelManager().Register(dc); err != nil {
		return fmt.Errorf("registering discord channel: %w", err)
	}

	if err := assistant.Start(ctx); err != nil {
		return fmt.Errorf("starting: %w", err)
	}

	logger.Info("Dossier running. Press Ctrl+C to stop.", "name", cfg.Name)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	done := make(chan struct{})
	go func() {
		assistant.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || cfg.Level == "debug" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
