package usecase

import (
	"context"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/naka-gawa/repo-stats/internal/gateway"
	"go.uber.org/zap"
)

// MaxPageSize is the largest page the repository list endpoint serves.
const MaxPageSize = 100

// EnumerationResult is everything one enumeration run collected.
type EnumerationResult struct {
	Repositories []domain.Repository
	Requests     int
	// Err is the fetch failure that truncated enumeration, if any. It is never fatal.
	Err error
}

// Enumerator collects the full set of an account's public repositories.
type Enumerator struct {
	fetcher  gateway.Fetcher
	pacer    *Pacer
	logger   *zap.SugaredLogger
	pageSize int
}

// NewEnumerator creates a new Enumerator instance.
func NewEnumerator(fetcher gateway.Fetcher, pacer *Pacer, logger *zap.SugaredLogger) *Enumerator {
	return &Enumerator{
		fetcher:  fetcher,
		pacer:    pacer,
		logger:   logger.Named("enumerator"),
		pageSize: MaxPageSize,
	}
}

// Enumerate walks the repository pages starting at page 1 until a page comes back empty.
// The list endpoint's total count is not trusted; only the empty page ends the loop.
// A failed page stops the walk and the repositories gathered so far are returned.
func (e *Enumerator) Enumerate(ctx context.Context, account string) *EnumerationResult {
	result := &EnumerationResult{Repositories: []domain.Repository{}}
	for page := 1; ; page++ {
		result.Requests++
		p, err := e.fetcher.FetchRepoPage(ctx, account, page, e.pageSize)
		if err != nil {
			e.logger.Warnw("stopping enumeration early", "account", account, "page", page, "collected", len(result.Repositories), "error", err)
			result.Err = err
			return result
		}
		e.pacer.Observe(p.Rate)

		if len(p.Repositories) == 0 {
			e.logger.Debugw("enumeration complete", "account", account, "pages", result.Requests, "repositories", len(result.Repositories))
			return result
		}
		result.Repositories = append(result.Repositories, p.Repositories...)

		if len(p.Repositories) == e.pageSize {
			if err := e.pacer.AfterPage(ctx); err != nil {
				result.Err = err
				return result
			}
		}
	}
}
