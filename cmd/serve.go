package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-stats/internal/server"
	"github.com/naka-gawa/repo-stats/internal/sink/postgres"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the report pipeline over HTTP",
	Long: `Starts an HTTP server whose POST /api/v1/stats endpoint runs the same pipeline
as "repo-stats update" and responds with the report. When postgres.dsn is set,
stored reports are served from GET /api/v1/stats/{account}.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, log, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		profiles := profileStore(cfg)
		aggregator, err := newAggregator(cfg, profiles, log)
		if err != nil {
			return fmt.Errorf("failed to create GitHub gateway: %w", err)
		}

		var snapshots server.SnapshotReader
		if cfg.Postgres.DSN != "" {
			store := postgres.New(log, postgresOptions(cfg))
			if err := store.Open(ctx); err != nil {
				return fmt.Errorf("failed to open report store: %w", err)
			}
			defer store.Close()
			snapshots = store
		}

		h := server.NewHandler(log, aggregator, profiles, snapshots, cfg.Server.RequestTimeout)
		app := server.NewApp(log, h, cfg.Server.RequestTimeout)

		listenErr := make(chan error, 1)
		go func() {
			log.Infow("listening", "addr", cfg.ServerAddr())
			listenErr <- app.Listen(cfg.ServerAddr())
		}()

		select {
		case err := <-listenErr:
			return fmt.Errorf("failed to start server: %w", err)
		case <-ctx.Done():
		}
		stop()

		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Warnw("server shutdown", "error", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
