package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/naka-gawa/repo-stats/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchRepoPage(ctx context.Context, account string, page, perPage int) (*domain.RepoPage, error) {
	args := m.Called(ctx, account, page, perPage)
	// We need to handle the case where the returned page is nil (e.g., when an error occurs).
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepoPage), args.Error(1)
}

func (m *mockFetcher) EstimateOpenIssues(ctx context.Context, owner, repo string) (*domain.Estimate, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Estimate), args.Error(1)
}

func (m *mockFetcher) EstimateOpenPullRequests(ctx context.Context, owner, repo string) (*domain.Estimate, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Estimate), args.Error(1)
}

func (m *mockFetcher) LookupAccount(ctx context.Context, login string) (*domain.Account, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// mockProfiles records what the aggregator reports back after a run.
type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) RecordRun(lastUpdated time.Time, totalRepositories int) error {
	args := m.Called(lastUpdated, totalRepositories)
	return args.Error(0)
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// makeRepos builds n repositories named prefix-1..prefix-n.
func makeRepos(prefix string, n int) []domain.Repository {
	repos := make([]domain.Repository, n)
	for i := range repos {
		repos[i] = domain.Repository{
			Owner:           "octocat",
			Name:            fmt.Sprintf("%s-%d", prefix, i+1),
			Stars:           i + 1,
			SizeKB:          1024 * (i + 1),
			OpenIssuesCount: 10 + i,
			CreatedAt:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	return repos
}

func pageOf(repos []domain.Repository) *domain.RepoPage {
	return &domain.RepoPage{Repositories: repos, StatusCode: 200}
}

func TestAggregator_Aggregate(t *testing.T) {
	failure := &domain.FetchError{Op: "failed to list repositories", StatusCode: 500, Err: errors.New("boom")}

	testCases := []struct {
		name            string
		account         string
		setup           func(f *mockFetcher, p *mockProfiles)
		verify          bool
		expectedErr     error
		expectedSummary *domain.Summary
		expectedRows    []string
	}{
		{
			name:    "happy path - enriches every repository and records the run",
			account: "octocat",
			setup: func(f *mockFetcher, p *mockProfiles) {
				repos := makeRepos("repo", 2)
				f.On("FetchRepoPage", mock.Anything, "octocat", 1, MaxPageSize).Return(pageOf(repos), nil)
				f.On("FetchRepoPage", mock.Anything, "octocat", 2, MaxPageSize).Return(pageOf(nil), nil)
				f.On("EstimateOpenIssues", mock.Anything, "octocat", "repo-1").Return(&domain.Estimate{Count: 12}, nil)
				f.On("EstimateOpenPullRequests", mock.Anything, "octocat", "repo-1").Return(&domain.Estimate{Count: 5}, nil)
				f.On("EstimateOpenIssues", mock.Anything, "octocat", "repo-2").Return(&domain.Estimate{Count: 3}, nil)
				f.On("EstimateOpenPullRequests", mock.Anything, "octocat", "repo-2").Return(&domain.Estimate{Count: 5}, nil)
				p.On("RecordRun", mock.Anything, 2).Return(nil)
			},
			expectedSummary: &domain.Summary{
				Account: "octocat", Repositories: 2, TotalStars: 3, MedianStars: 1.5, MeanSizeMB: 1.5, TotalSizeMB: 3,
			},
			expectedRows: []string{"repo-1:7:5", "repo-2:0:5"},
		},
		{
			name:        "missing account - fails before any network activity",
			account:     "   ",
			setup:       func(f *mockFetcher, p *mockProfiles) {},
			expectedErr: domain.ErrMissingAccount,
		},
		{
			name:    "empty account - no repositories is fatal",
			account: "ghost",
			setup: func(f *mockFetcher, p *mockProfiles) {
				f.On("FetchRepoPage", mock.Anything, "ghost", 1, MaxPageSize).Return(pageOf(nil), nil)
			},
			expectedErr: domain.ErrNoRepositories,
		},
		{
			name:    "first page fails - nothing to report is fatal",
			account: "octocat",
			setup: func(f *mockFetcher, p *mockProfiles) {
				f.On("FetchRepoPage", mock.Anything, "octocat", 1, MaxPageSize).Return(nil, failure)
			},
			expectedErr: domain.ErrNoRepositories,
		},
		{
			name:    "partial enumeration and account verification",
			account: "octocat",
			verify:  true,
			setup: func(f *mockFetcher, p *mockProfiles) {
				f.On("FetchRepoPage", mock.Anything, "octocat", 1, MaxPageSize).Return(pageOf(makeRepos("repo", 1)), nil)
				f.On("FetchRepoPage", mock.Anything, "octocat", 2, MaxPageSize).Return(nil, failure)
				f.On("LookupAccount", mock.Anything, "octocat").Return(&domain.Account{Login: "octocat", PublicRepos: 4}, nil)
				f.On("EstimateOpenIssues", mock.Anything, "octocat", "repo-1").Return(nil, failure)
				p.On("RecordRun", mock.Anything, 1).Return(errors.New("read-only profile"))
			},
			expectedSummary: &domain.Summary{
				Account: "octocat", Repositories: 1, Partial: true, ExpectedRepositories: 4,
				TotalStars: 1, MedianStars: 1, MeanSizeMB: 1, TotalSizeMB: 1,
			},
			expectedRows: []string{"repo-1:0:0"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			fetcher := new(mockFetcher)
			profiles := new(mockProfiles)
			tc.setup(fetcher, profiles)
			aggregator := NewAggregator(fetcher, Options{Workers: 1, VerifyAccount: tc.verify}, profiles, testLogger())
			out := &sink.Memory{}

			// --- Act ---
			summary, err := aggregator.Aggregate(context.Background(), tc.account, out)

			// --- Assert ---
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, summary)
				assert.Empty(t, out.Rows)
				assert.Nil(t, out.Columns)
				profiles.AssertNotCalled(t, "RecordRun", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				summary.StartedAt, summary.FinishedAt = time.Time{}, time.Time{}
				assert.Equal(t, tc.expectedSummary, summary)
				assert.Equal(t, domain.Columns, out.Columns)
				assert.Equal(t, tc.expectedRows, rowDigest(out.Rows))
				assert.Len(t, out.Progress, len(tc.expectedRows))
				require.NotNil(t, out.Summary)
				assert.Equal(t, summary.Repositories, out.Summary.Repositories)
			}
			if tc.account == "   " {
				fetcher.AssertNotCalled(t, "FetchRepoPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}

			// Verify that the mock methods were called as expected
			fetcher.AssertExpectations(t)
			profiles.AssertExpectations(t)
		})
	}
}

func TestAggregator_AggregateStopsWhenContextEnds(t *testing.T) {
	cancelled := &domain.FetchError{Op: "failed to list repositories", Err: context.Canceled}

	testCases := []struct {
		name  string
		setup func(f *mockFetcher, cancel context.CancelFunc)
	}{
		{
			name: "cancelled during enumeration",
			setup: func(f *mockFetcher, cancel context.CancelFunc) {
				f.On("FetchRepoPage", mock.Anything, "octocat", 1, MaxPageSize).
					Run(func(mock.Arguments) { cancel() }).
					Return(pageOf(makeRepos("repo", 3)), nil)
				f.On("FetchRepoPage", mock.Anything, "octocat", 2, MaxPageSize).Return(nil, cancelled)
			},
		},
		{
			name: "cancelled during enrichment",
			setup: func(f *mockFetcher, cancel context.CancelFunc) {
				f.On("FetchRepoPage", mock.Anything, "octocat", 1, MaxPageSize).Return(pageOf(makeRepos("repo", 3)), nil)
				f.On("FetchRepoPage", mock.Anything, "octocat", 2, MaxPageSize).Return(pageOf(nil), nil)
				f.On("EstimateOpenIssues", mock.Anything, "octocat", mock.Anything).
					Run(func(mock.Arguments) { cancel() }).
					Return(nil, cancelled)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			fetcher := new(mockFetcher)
			profiles := new(mockProfiles)
			tc.setup(fetcher, cancel)
			aggregator := NewAggregator(fetcher, Options{Workers: 1}, profiles, testLogger())
			out := &sink.Memory{}

			// --- Act ---
			summary, err := aggregator.Aggregate(ctx, "octocat", out)

			// --- Assert ---
			assert.ErrorIs(t, err, context.Canceled)
			assert.Nil(t, summary)
			assert.Empty(t, out.Rows)
			assert.Nil(t, out.Summary)
			profiles.AssertNotCalled(t, "RecordRun", mock.Anything, mock.Anything)
			fetcher.AssertExpectations(t)
		})
	}
}

func TestAggregator_AggregateIsRepeatable(t *testing.T) {
	fetcher := new(mockFetcher)
	repos := makeRepos("repo", 3)
	fetcher.On("FetchRepoPage", mock.Anything, "octocat", 1, MaxPageSize).Return(pageOf(repos), nil)
	fetcher.On("FetchRepoPage", mock.Anything, "octocat", 2, MaxPageSize).Return(pageOf(nil), nil)
	fetcher.On("EstimateOpenIssues", mock.Anything, "octocat", mock.Anything).Return(&domain.Estimate{Count: 4}, nil)
	fetcher.On("EstimateOpenPullRequests", mock.Anything, "octocat", mock.Anything).Return(&domain.Estimate{Count: 1}, nil)

	aggregator := NewAggregator(fetcher, Options{Workers: 2}, nil, testLogger())

	var runs [2]*sink.Memory
	for i := range runs {
		runs[i] = &sink.Memory{}
		_, err := aggregator.Aggregate(context.Background(), "octocat", runs[i])
		require.NoError(t, err)
	}

	assert.Equal(t, runs[0].Rows, runs[1].Rows)
	for i := range runs[0].Rows {
		assert.Equal(t, runs[0].Rows[i].Cells(), runs[1].Rows[i].Cells())
	}
}

func TestSharedBudget(t *testing.T) {
	base := PacingConfig{PageDelay: 200 * time.Millisecond, BatchDelay: 500 * time.Millisecond, BatchSize: 10}

	testCases := []struct {
		name          string
		workers       int
		expectedDelay time.Duration
	}{
		{name: "unset workers", workers: 0, expectedDelay: 500 * time.Millisecond},
		{name: "single worker", workers: 1, expectedDelay: 500 * time.Millisecond},
		{name: "four workers share the budget", workers: 4, expectedDelay: 2 * time.Second},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := sharedBudget(base, tc.workers)

			assert.Equal(t, tc.expectedDelay, cfg.BatchDelay)
			assert.Equal(t, base.PageDelay, cfg.PageDelay)
			assert.Equal(t, base.BatchSize, cfg.BatchSize)
		})
	}

	aggregator := NewAggregator(new(mockFetcher), Options{Pacing: base, Workers: 3}, nil, testLogger())
	assert.Equal(t, 1500*time.Millisecond, aggregator.builder.pacer.cfg.BatchDelay)
}

// rowDigest reduces rows to "name:issues:prs" for compact comparison.
func rowDigest(rows []domain.ReportRow) []string {
	digest := make([]string, 0, len(rows))
	for _, row := range rows {
		digest = append(digest, fmt.Sprintf("%s:%s:%s", row.Name, row.OpenIssues, row.OpenPRs))
	}
	return digest
}
