package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives one human-readable progress message per repository.
type ProgressFunc func(msg string)

// ReportBuilder turns enumerated repositories into report rows.
type ReportBuilder struct {
	enricher Enricher
	pacer    *Pacer
	workers  int
	logger   *zap.SugaredLogger
}

// NewReportBuilder creates a new ReportBuilder. Fewer than one worker means one.
func NewReportBuilder(enricher Enricher, pacer *Pacer, workers int, logger *zap.SugaredLogger) *ReportBuilder {
	if workers < 1 {
		workers = 1
	}
	return &ReportBuilder{
		enricher: enricher,
		pacer:    pacer,
		workers:  workers,
		logger:   logger.Named("builder"),
	}
}

// Build enriches every repository and returns exactly one row per repository, in input order.
// Repositories whose enrichment fails still get a row, flagged as degraded.
func (b *ReportBuilder) Build(ctx context.Context, repos []domain.Repository, account string, progress ProgressFunc) []domain.ReportRow {
	rows := make([]domain.ReportRow, len(repos))
	var progressMu sync.Mutex

	// A plain group: one repository's failure must not cancel the others.
	var eg errgroup.Group
	eg.SetLimit(b.workers)

	for i, repo := range repos {
		eg.Go(func() error {
			if progress != nil {
				progressMu.Lock()
				progress(fmt.Sprintf("Processing repository %d of %d: %s", i+1, len(repos), repo.Name))
				progressMu.Unlock()
			}
			rows[i] = b.buildRow(ctx, account, repo)
			return nil
		})
		if err := b.pacer.AfterRepository(ctx, i, len(repos)); err != nil {
			b.logger.Debugw("pacing interrupted", "error", err)
		}
	}
	_ = eg.Wait()

	return rows
}

func (b *ReportBuilder) buildRow(ctx context.Context, account string, repo domain.Repository) domain.ReportRow {
	enrichment, err := b.enricher.Enrich(ctx, account, repo.Name)
	if err != nil {
		b.logger.Warnw("error processing repository, using basic data", "repo", repo.Name, "error", err)
		return domain.DegradedReportRow(repo)
	}
	return domain.NewReportRow(repo, enrichment)
}
