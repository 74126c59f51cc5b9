// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/naka-gawa/repo-stats/internal/gateway"
	"github.com/naka-gawa/repo-stats/internal/sink"
	"go.uber.org/zap"
)

// ProfileRecorder receives the outcome of a successful run.
type ProfileRecorder interface {
	RecordRun(lastUpdated time.Time, totalRepositories int) error
}

// Options tunes an Aggregator.
type Options struct {
	Pacing  PacingConfig
	Workers int
	// VerifyAccount compares the enumerated total with the account's own count.
	// The lookup uses the GraphQL API, which requires a token.
	VerifyAccount bool
}

// Aggregator is the use case for building a repository report.
// It orchestrates enumeration, enrichment and output of a single stateless run.
type Aggregator struct {
	fetcher    gateway.Fetcher
	enumerator *Enumerator
	builder    *ReportBuilder
	profiles   ProfileRecorder
	verify     bool
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewAggregator creates a new Aggregator instance. profiles may be nil.
func NewAggregator(fetcher gateway.Fetcher, opts Options, profiles ProfileRecorder, logger *zap.SugaredLogger) *Aggregator {
	pacer := NewPacer(sharedBudget(opts.Pacing, opts.Workers), logger)
	return &Aggregator{
		fetcher:    fetcher,
		enumerator: NewEnumerator(fetcher, pacer, logger),
		builder:    NewReportBuilder(NewRepoEnricher(fetcher, pacer, logger), pacer, opts.Workers, logger),
		profiles:   profiles,
		verify:     opts.VerifyAccount,
		logger:     logger.Named("aggregator"),
		now:        time.Now,
	}
}

// Aggregate performs the main business logic.
// It enumerates the account's public repositories, enriches each one and writes the
// resulting rows to out. Missing account, empty enumeration, an ended ctx and sink write
// failures are fatal; nothing is written or recorded after ctx ends.
func (a *Aggregator) Aggregate(ctx context.Context, account string, out sink.ReportSink) (*domain.Summary, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, domain.ErrMissingAccount
	}
	a.logger.Debugw("starting data aggregation", "account", account)
	startedAt := a.now()

	enumeration := a.enumerator.Enumerate(ctx, account)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregation interrupted during enumeration: %w", err)
	}
	if len(enumeration.Repositories) == 0 {
		return nil, fmt.Errorf("%w for user: %s", domain.ErrNoRepositories, account)
	}

	summary := &domain.Summary{
		Account:   account,
		Partial:   enumeration.Err != nil,
		StartedAt: startedAt,
	}
	if a.verify {
		a.verifyAccount(ctx, account, len(enumeration.Repositories), summary)
	}

	if err := out.WriteHeader(domain.Columns); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	rows := a.builder.Build(ctx, enumeration.Repositories, account, out.NotifyProgress)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregation interrupted during enrichment: %w", err)
	}
	if err := out.WriteRows(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to write report rows: %w", err)
	}

	summarize(summary, rows)
	summary.FinishedAt = a.now()
	out.NotifySummary(*summary)

	if a.profiles != nil {
		if err := a.profiles.RecordRun(summary.FinishedAt, summary.Repositories); err != nil {
			a.logger.Warnw("failed to update profile", "error", err)
		}
	}

	a.logger.Debugw("aggregation complete", "account", account, "repositories", summary.Repositories, "degraded", summary.Degraded)
	return summary, nil
}

// sharedBudget stretches the batch delay by the worker count, so concurrent
// enrichment spends the same request budget per second as a single worker.
func sharedBudget(cfg PacingConfig, workers int) PacingConfig {
	if workers > 1 {
		cfg.BatchDelay *= time.Duration(workers)
	}
	return cfg
}

func (a *Aggregator) verifyAccount(ctx context.Context, account string, enumerated int, summary *domain.Summary) {
	info, err := a.fetcher.LookupAccount(ctx, account)
	if err != nil {
		a.logger.Warnw("failed to look up account", "account", account, "error", err)
		return
	}
	summary.ExpectedRepositories = info.PublicRepos
	if enumerated < info.PublicRepos {
		a.logger.Warnw("enumerated fewer repositories than the account reports",
			"account", account, "enumerated", enumerated, "expected", info.PublicRepos)
	}
}

// summarize fills the row-derived totals of summary.
func summarize(summary *domain.Summary, rows []domain.ReportRow) {
	stars := make(stats.Float64Data, 0, len(rows))
	sizes := make(stats.Float64Data, 0, len(rows))
	for _, row := range rows {
		summary.TotalStars += row.Stars
		if row.Degraded {
			summary.Degraded++
		}
		stars = append(stars, float64(row.Stars))
		sizes = append(sizes, row.SizeMB)
	}
	summary.Repositories = len(rows)
	if len(rows) == 0 {
		return
	}

	summary.MedianStars, _ = stars.Median()
	mean, _ := sizes.Mean()
	summary.MeanSizeMB, _ = stats.Round(mean, 2)
	total, _ := sizes.Sum()
	summary.TotalSizeMB, _ = stats.Round(total, 2)
}
