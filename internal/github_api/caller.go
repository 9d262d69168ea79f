// Package githubapi wraps the GitHub REST API calls the crawl needs: repository
// search for a single creation day, top-level contents listings and commit
// history pages. Every call goes through a limiter.Guard.
package githubapi

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/internal/limiter"
	"github.com/thep200/github-stats-pipeline/internal/model"
	"github.com/thep200/github-stats-pipeline/pkg/log"
	"golang.org/x/oauth2"
)

type Caller struct {
	Logger   log.Logger
	Config   *cfg.Config
	client   *github.Client
	search   *limiter.Guard
	core     *limiter.Guard
	perPage  int
	maxPages int
}

// NewHTTPClient authenticates with the configured token on top of a waiter for
// secondary rate limits.
func NewHTTPClient(config *cfg.Config) (*http.Client, error) {
	maxSleep := time.Duration(config.GithubApi.SecondaryLimitMaxMin) * time.Minute
	waiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(maxSleep, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	if config.GithubApi.AccessToken == "" {
		return &http.Client{Timeout: config.Timeout(), Transport: waiter}, nil
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.GithubApi.AccessToken})
	return &http.Client{
		Timeout: config.Timeout(),
		Transport: &oauth2.Transport{
			Base:   waiter,
			Source: ts,
		},
	}, nil
}

// NewCaller uses one guard for the search API and one for the core API, since
// GitHub meters them separately.
func NewCaller(logger log.Logger, config *cfg.Config, httpClient *http.Client, clock limiter.Clock) (*Caller, error) {
	client := github.NewClient(httpClient)
	if config.GithubApi.ApiUrl != "" {
		base := config.GithubApi.ApiUrl
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		baseURL, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github_api.api_url: %w", err)
		}
		client.BaseURL = baseURL
	}

	policy := limiter.PolicyFromConfig(config)
	perSecond := config.GithubApi.RequestsPerSecond

	perPage := config.GithubApi.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	maxPages := config.GithubApi.MaxPages
	if ceiling := cfg.SearchResultCeiling / perPage; maxPages <= 0 || maxPages > ceiling {
		maxPages = ceiling
	}

	return &Caller{
		Logger:   logger,
		Config:   config,
		client:   client,
		search:   limiter.NewGuard(logger, "search", policy, clock).WithPacer(perSecond),
		core:     limiter.NewGuard(logger, "core", policy, clock).WithPacer(perSecond),
		perPage:  perPage,
		maxPages: maxPages,
	}, nil
}

func (c *Caller) PerPage() int {
	return c.perPage
}

func (c *Caller) MaxPages() int {
	return c.maxPages
}

func (c *Caller) SearchState() limiter.RateLimitState {
	return c.search.State()
}

func (c *Caller) CoreState() limiter.RateLimitState {
	return c.core.State()
}

// DayQuery matches repositories created on the UTC calendar day of day.
func DayQuery(day time.Time) string {
	return "created:" + day.UTC().Format(model.DayLayout)
}

// Search yields the repositories created on day, oldest first. Each call starts
// from page 1; it stops on an empty or short page and never reads past the
// search result ceiling. The first error ends the sequence.
func (c *Caller) Search(ctx context.Context, day time.Time) iter.Seq2[model.RepositoryRecord, error] {
	return func(yield func(model.RepositoryRecord, error) bool) {
		query := DayQuery(day)
		for page := 1; page <= c.maxPages; page++ {
			records, fetched, err := c.SearchPage(ctx, query, page)
			if err != nil {
				yield(model.RepositoryRecord{}, err)
				return
			}
			for _, record := range records {
				if !yield(record, nil) {
					return
				}
			}
			if fetched < c.perPage {
				return
			}
		}
		c.Logger.Debug(ctx, "Reached the %d item search ceiling for %s", c.maxPages*c.perPage, query)
	}
}

// SearchPage returns usable records and the raw item count of the page.
func (c *Caller) SearchPage(ctx context.Context, query string, page int) ([]model.RepositoryRecord, int, error) {
	opts := &github.SearchOptions{
		Sort:        "created",
		Order:       "asc",
		ListOptions: github.ListOptions{Page: page, PerPage: c.perPage},
	}

	var result *github.RepositoriesSearchResult
	_, err := c.search.Do(ctx, func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		result, resp, err = c.client.Search.Repositories(ctx, query, opts)
		return resp, err
	})
	if err != nil {
		return nil, 0, remoteError("search "+query, err)
	}

	records := make([]model.RepositoryRecord, 0, len(result.Repositories))
	for _, repo := range result.Repositories {
		record, ok := toRecord(repo)
		if !ok {
			c.Logger.Warn(ctx, "Skipping search item without full name on page %d of %s", page, query)
			continue
		}
		records = append(records, record)
	}

	c.Logger.Debug(ctx, "Search %s page %d: %d items, total %d", query, page, len(result.Repositories), result.GetTotal())
	return records, len(result.Repositories), nil
}

func toRecord(repo *github.Repository) (model.RepositoryRecord, bool) {
	fullName := repo.GetFullName()
	owner, name := splitFullName(fullName)
	if owner == "" || name == "" {
		return model.RepositoryRecord{}, false
	}
	if login := repo.GetOwner().GetLogin(); login != "" {
		owner = login
	}
	return model.RepositoryRecord{
		Owner:         owner,
		Name:          name,
		FullName:      fullName,
		Language:      repo.GetLanguage(),
		DefaultBranch: repo.GetDefaultBranch(),
		CreatedAt:     repo.GetCreatedAt().Time,
	}, true
}

// splitFullName splits "owner/name".
func splitFullName(fullName string) (string, string) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", ""
}

// ListContents lists one directory of a repository, the root when path is empty.
// A path that is a file yields no entries.
func (c *Caller) ListContents(ctx context.Context, owner, repo, path string) ([]model.ContentEntry, error) {
	var dir []*github.RepositoryContent
	_, err := c.core.Do(ctx, func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		_, dir, resp, err = c.client.Repositories.GetContents(ctx, owner, repo, path, nil)
		return resp, err
	})
	if err != nil {
		return nil, remoteError(fmt.Sprintf("contents %s/%s/%s", owner, repo, path), err)
	}

	entries := make([]model.ContentEntry, 0, len(dir))
	for _, item := range dir {
		entries = append(entries, model.ContentEntry{
			Name: item.GetName(),
			Path: item.GetPath(),
			Type: item.GetType(),
		})
	}
	return entries, nil
}

// ListCommitsPage counts the commits on one page of branch history.
func (c *Caller) ListCommitsPage(ctx context.Context, owner, repo, branch string, page int) (int, error) {
	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{Page: page, PerPage: c.perPage},
	}

	var commits []*github.RepositoryCommit
	_, err := c.core.Do(ctx, func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		commits, resp, err = c.client.Repositories.ListCommits(ctx, owner, repo, opts)
		return resp, err
	})
	if err != nil {
		err = remoteError(fmt.Sprintf("commits %s/%s", owner, repo), err)
		if IsStatus(err, http.StatusConflict) {
			return 0, ErrNoCommits
		}
		return 0, err
	}
	return len(commits), nil
}

// CountCommits pages through branch history up to the result ceiling. An empty or
// short page, or a 409, ends it.
func (c *Caller) CountCommits(ctx context.Context, owner, repo, branch string) (int, error) {
	total := 0
	for page := 1; page <= c.maxPages; page++ {
		n, err := c.ListCommitsPage(ctx, owner, repo, branch, page)
		if errors.Is(err, ErrNoCommits) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		total += n
		if n < c.perPage {
			break
		}
	}
	return total, nil
}
