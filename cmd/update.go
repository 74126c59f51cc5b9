package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/repo-stats/internal/config"
	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/naka-gawa/repo-stats/internal/gateway"
	"github.com/naka-gawa/repo-stats/internal/profile"
	"github.com/naka-gawa/repo-stats/internal/sink"
	"github.com/naka-gawa/repo-stats/internal/sink/postgres"
	"github.com/naka-gawa/repo-stats/internal/usecase"
)

const formatPostgres = "postgres"

// updater is the pipeline as seen by the update command.
type updater interface {
	Aggregate(ctx context.Context, account string, out sink.ReportSink) (*domain.Summary, error)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Builds the repository report for the configured account",
	Long: `Enumerates the account's public repositories, estimates open issues and pull
requests for each one and writes the report. Progress is printed to stderr.
A failed run leaves an existing --output file untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, log, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		applyUpdateFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		profiles := profileStore(cfg)
		account, err := resolveAccount(cmd, cfg, profiles)
		if err != nil {
			return err
		}
		if account == "" {
			return fmt.Errorf("%w: pass --account or set it in %s (see \"repo-stats init\")", domain.ErrMissingAccount, profiles.Path())
		}

		// Inject dependencies and run the main business logic.
		aggregator, err := newAggregator(cfg, profiles, log)
		if err != nil {
			return fmt.Errorf("failed to create GitHub gateway: %w", err)
		}
		return runUpdate(ctx, cfg, aggregator, account, sink.NewNotifier(cmd.ErrOrStderr()), cmd.OutOrStdout(), log)
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringP("account", "a", "", "Target GitHub account (defaults to the profile's account)")
	updateCmd.Flags().StringP("format", "f", "", "Report format: table, csv, json or postgres")
	updateCmd.Flags().StringP("output", "o", "", "Report file (defaults to stdout)")
	updateCmd.Flags().IntP("workers", "w", 0, "Concurrent repository enrichments; the batch delay grows with the worker count so the request budget stays shared")
}

// runUpdate writes one report for account to the configured output.
func runUpdate(ctx context.Context, cfg *config.Config, u updater, account string, n *sink.Notifier, stdout io.Writer, log *zap.SugaredLogger) error {
	out, finish, err := openSink(ctx, cfg, account, n, stdout, log)
	if err != nil {
		return fmt.Errorf("failed to open report output: %w", err)
	}

	_, err = u.Aggregate(ctx, account, out)
	if finishErr := finish(err); err == nil {
		err = finishErr
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNoRepositories):
		return err
	default:
		return fmt.Errorf("failed to update stats: %w", err)
	}
}

func applyUpdateFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("format") {
		cfg.Report.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		cfg.Report.Output, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Enrich.Workers, _ = cmd.Flags().GetInt("workers")
	}
}

// resolveAccount prefers the flag, then configuration, then the profile file.
func resolveAccount(cmd *cobra.Command, cfg *config.Config, profiles *profile.Store) (string, error) {
	if account, _ := cmd.Flags().GetString("account"); strings.TrimSpace(account) != "" {
		return strings.TrimSpace(account), nil
	}
	if account := strings.TrimSpace(cfg.Account); account != "" {
		return account, nil
	}
	return profiles.Account()
}

func newAggregator(cfg *config.Config, profiles usecase.ProfileRecorder, log *zap.SugaredLogger) (*usecase.Aggregator, error) {
	githubGateway, err := gateway.NewGitHubGateway(gateway.Options{
		Token:      cfg.GitHub.Token,
		BaseURL:    cfg.GitHub.BaseURL,
		GraphQLURL: cfg.GitHub.GraphQLURL,
	}, log)
	if err != nil {
		return nil, err
	}
	return usecase.NewAggregator(githubGateway, usecase.Options{
		Pacing: usecase.PacingConfig{
			PageDelay:    cfg.Pacing.PageDelay,
			BatchDelay:   cfg.Pacing.BatchDelay,
			BatchSize:    cfg.Pacing.BatchSize,
			MinRemaining: cfg.Pacing.MinRemaining,
			MaxWait:      cfg.Pacing.MaxWait,
		},
		Workers:       cfg.Enrich.Workers,
		VerifyAccount: cfg.GitHub.Token != "",
	}, profiles, log), nil
}

// openSink returns the configured report sink and a function that completes it
// with the outcome of the run.
func openSink(ctx context.Context, cfg *config.Config, account string, n *sink.Notifier, stdout io.Writer, log *zap.SugaredLogger) (sink.ReportSink, func(runErr error) error, error) {
	if cfg.Report.Format == formatPostgres {
		store := postgres.New(log, postgresOptions(cfg))
		if err := store.Open(ctx); err != nil {
			return nil, nil, err
		}
		return store.Sink(account, n), func(error) error { store.Close(); return nil }, nil
	}

	if cfg.Report.Output == "" {
		out, err := sink.New(cfg.Report.Format, stdout, n)
		if err != nil {
			return nil, nil, err
		}
		return out, func(error) error { return nil }, nil
	}

	f, err := createReportFile(cfg.Report.Output)
	if err != nil {
		return nil, nil, err
	}
	out, err := sink.New(cfg.Report.Format, f, n)
	if err != nil {
		_ = f.finish(err)
		return nil, nil, err
	}
	return out, f.finish, nil
}

func postgresOptions(cfg *config.Config) postgres.Options {
	return postgres.Options{
		DSN:          cfg.Postgres.DSN,
		QueryTimeout: cfg.Postgres.QueryTimeout,
		MaxConns:     cfg.Postgres.MaxConns,
	}
}
