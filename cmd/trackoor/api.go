package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/serbench/trackoor/pkg/api"
	"github.com/serbench/trackoor/pkg/tracker"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the history API server",
	Long: `Start the HTTP API server. The server records posted results
documents and serves run history, trends, alerts and statistics.`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	tr, err := tracker.New(log, cfg)
	if err != nil {
		return err
	}

	if err := tr.Start(ctx); err != nil {
		return fmt.Errorf("starting tracker: %w", err)
	}

	srv := api.NewServer(log, &cfg.Server, tr)

	if err := srv.Start(ctx); err != nil {
		_ = tr.Stop()

		return fmt.Errorf("starting api server: %w", err)
	}

	// Wait for shutdown signal.
	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down API server")
	cancel()

	if err := srv.Stop(); err != nil {
		log.WithError(err).Warn("Failed to stop api server")
	}

	if err := tr.Stop(); err != nil {
		return fmt.Errorf("stopping tracker: %w", err)
	}

	return nil
}
