package usecase

import (
	"context"
	"errors"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/naka-gawa/repo-stats/internal/gateway"
	"go.uber.org/zap"
)

// Enricher derives the per-repository counts the list endpoint does not provide.
type Enricher interface {
	Enrich(ctx context.Context, owner, repo string) (domain.EnrichmentResult, error)
}

// RateObserver receives rate limit snapshots from enrichment responses.
type RateObserver interface {
	Observe(rate domain.RateLimit)
}

// RepoEnricher estimates open issue and pull request counts with two single-item requests.
type RepoEnricher struct {
	fetcher  gateway.Fetcher
	observer RateObserver
	logger   *zap.SugaredLogger
}

// NewRepoEnricher creates a new RepoEnricher. observer may be nil.
func NewRepoEnricher(fetcher gateway.Fetcher, observer RateObserver, logger *zap.SugaredLogger) *RepoEnricher {
	return &RepoEnricher{
		fetcher:  fetcher,
		observer: observer,
		logger:   logger.Named("enricher"),
	}
}

// Enrich reports the open pull request count and the open issue count with pull requests
// subtracted, clamped at zero. A FetchError on either request yields zero counts instead of
// an error; only a cancelled context or an unexpected error is returned.
func (e *RepoEnricher) Enrich(ctx context.Context, owner, repo string) (domain.EnrichmentResult, error) {
	issues, err := e.fetcher.EstimateOpenIssues(ctx, owner, repo)
	if err != nil {
		return e.fallback(ctx, repo, err)
	}
	e.observe(issues.Rate)

	pulls, err := e.fetcher.EstimateOpenPullRequests(ctx, owner, repo)
	if err != nil {
		return e.fallback(ctx, repo, err)
	}
	e.observe(pulls.Rate)

	return domain.EnrichmentResult{
		Issues:       domain.Known(max(0, issues.Count-pulls.Count)),
		PullRequests: domain.Known(pulls.Count),
	}, nil
}

func (e *RepoEnricher) fallback(ctx context.Context, repo string, err error) (domain.EnrichmentResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.EnrichmentResult{}, ctxErr
	}
	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		return domain.EnrichmentResult{}, err
	}
	e.logger.Warnw("failed to get additional stats", "repo", repo, "error", err)
	return domain.EnrichmentResult{Issues: domain.Known(0), PullRequests: domain.Known(0)}, nil
}

func (e *RepoEnricher) observe(rate domain.RateLimit) {
	if e.observer != nil {
		e.observer.Observe(rate)
	}
}
