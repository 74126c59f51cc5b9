// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	// FetchRepoPage fetches one page of an account's public repositories.
	FetchRepoPage(ctx context.Context, account string, page, perPage int) (*domain.RepoPage, error)
	// EstimateOpenIssues approximates the open issue count (pull requests included).
	EstimateOpenIssues(ctx context.Context, owner, repo string) (*domain.Estimate, error)
	// EstimateOpenPullRequests approximates the open pull request count.
	EstimateOpenPullRequests(ctx context.Context, owner, repo string) (*domain.Estimate, error)
	// LookupAccount reports the account's public repository total. Requires a token.
	LookupAccount(ctx context.Context, login string) (*domain.Account, error)
}

// Options configures the clients built by NewGitHubGateway.
type Options struct {
	Token      string
	BaseURL    string
	GraphQLURL string
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *zap.SugaredLogger
}

// accountQuery counts the public repositories owned by a user or organization.
type accountQuery struct {
	RepositoryOwner struct {
		Login        string
		Repositories struct {
			TotalCount int
		} `graphql:"repositories(privacy: PUBLIC, ownerAffiliations: [OWNER])"`
	} `graphql:"repositoryOwner(login: $login)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// The bearer token is optional; without it requests run against the unauthenticated quota.
func NewGitHubGateway(opts Options, logger *zap.SugaredLogger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	var transport http.RoundTripper = rateLimitWaiter
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}),
		}
	}
	httpClient := &http.Client{Transport: transport}

	restClient := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		restClient.BaseURL = baseURL
	}

	graphqlClient := githubv4.NewClient(httpClient)
	if opts.GraphQLURL != "" {
		graphqlClient = githubv4.NewEnterpriseClient(opts.GraphQLURL, httpClient)
	}

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        logger.Named("gateway"),
	}, nil
}

// FetchRepoPage requests a single page of the account's repositories, most recently updated first.
// It performs no retries; the caller decides whether a failure is fatal.
func (g *GitHubGateway) FetchRepoPage(ctx context.Context, account string, page, perPage int) (*domain.RepoPage, error) {
	opts := &github.RepositoryListByUserOptions{
		Type:        "public",
		Sort:        "updated",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	repos, resp, err := g.restClient.Repositories.ListByUser(ctx, account, opts)
	if err != nil {
		return nil, fetchError("failed to list repositories", resp, err)
	}
	g.logger.Debugw("fetched repository page", "account", account, "page", page, "count", len(repos))

	result := &domain.RepoPage{
		Repositories: make([]domain.Repository, 0, len(repos)),
		StatusCode:   resp.StatusCode,
		Header:       resp.Header,
		Rate:         rateOf(resp),
	}
	for _, repo := range repos {
		result.Repositories = append(result.Repositories, toDomainRepository(repo))
	}
	return result, nil
}

// EstimateOpenIssues issues one per_page=1 request against the open issues collection.
func (g *GitHubGateway) EstimateOpenIssues(ctx context.Context, owner, repo string) (*domain.Estimate, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 1},
	}
	issues, resp, err := g.restClient.Issues.ListByRepo(ctx, owner, repo, opts)
	if err != nil {
		return nil, fetchError("failed to estimate open issues", resp, err)
	}
	return estimateFromResponse(resp, len(issues)), nil
}

// EstimateOpenPullRequests issues one per_page=1 request against the open pull requests collection.
func (g *GitHubGateway) EstimateOpenPullRequests(ctx context.Context, owner, repo string) (*domain.Estimate, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 1},
	}
	pulls, resp, err := g.restClient.PullRequests.List(ctx, owner, repo, opts)
	if err != nil {
		return nil, fetchError("failed to estimate open pull requests", resp, err)
	}
	return estimateFromResponse(resp, len(pulls)), nil
}

// LookupAccount asks the GraphQL API how many public repositories the account owns.
func (g *GitHubGateway) LookupAccount(ctx context.Context, login string) (*domain.Account, error) {
	var q accountQuery
	variables := map[string]interface{}{"login": githubv4.String(login)}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for account: %w", err)
	}
	if q.RepositoryOwner.Login == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, login)
	}
	return &domain.Account{
		Login:       q.RepositoryOwner.Login,
		PublicRepos: q.RepositoryOwner.Repositories.TotalCount,
	}, nil
}

// estimateFromResponse derives a collection size from a per_page=1 response.
// With one item per page the rel="last" page number is the item count. Without
// a "last" link the whole collection fit on the returned page.
func estimateFromResponse(resp *github.Response, itemsOnPage int) *domain.Estimate {
	count := itemsOnPage
	if resp.LastPage > 0 {
		count = resp.LastPage
	}
	return &domain.Estimate{Count: count, Rate: rateOf(resp)}
}

func rateOf(resp *github.Response) domain.RateLimit {
	if resp == nil {
		return domain.RateLimit{}
	}
	return domain.RateLimit{
		Limit:     resp.Rate.Limit,
		Remaining: resp.Rate.Remaining,
		Reset:     resp.Rate.Reset.Time,
	}
}

func fetchError(op string, resp *github.Response, err error) error {
	fe := &domain.FetchError{Op: op, Err: err}
	var errResp *github.ErrorResponse
	switch {
	case errors.As(err, &errResp) && errResp.Response != nil:
		fe.StatusCode = errResp.Response.StatusCode
	case resp != nil && resp.Response != nil:
		fe.StatusCode = resp.StatusCode
	}
	return fe
}

func toDomainRepository(repo *github.Repository) domain.Repository {
	var license string
	if repo.License != nil {
		license = repo.GetLicense().GetName()
	}
	return domain.Repository{
		Owner:           repo.GetOwner().GetLogin(),
		Name:            repo.GetName(),
		Description:     repo.GetDescription(),
		Language:        repo.GetLanguage(),
		License:         license,
		Fork:            repo.GetFork(),
		SizeKB:          repo.GetSize(),
		Stars:           repo.GetStargazersCount(),
		Forks:           repo.GetForksCount(),
		Watchers:        repo.GetWatchersCount(),
		OpenIssuesCount: repo.GetOpenIssuesCount(),
		CreatedAt:       repo.GetCreatedAt().Time,
		UpdatedAt:       repo.GetUpdatedAt().Time,
		URL:             repo.GetHTMLURL(),
	}
}
