package collector

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
)

const (
	defaultPerPage     = 100
	defaultHTTPTimeout = 60 * time.Second
)

// GitHubOptions configures the GitHub source
type GitHubOptions struct {
	Token    string        // optional, anonymous access when empty
	BaseURL  string        // optional API base URL, e.g. for GitHub Enterprise
	PerPage  int           // page size, default 100
	MinDelay time.Duration // minimum delay between API calls
	Logger   *slog.Logger
}

// githubSource implements Source using the GitHub API
type githubSource struct {
	client      *github.Client
	rateLimiter RateLimiter
	perPage     int
	log         *slog.Logger
}

// NewGitHubSource creates a new GitHub repository source
func NewGitHubSource(opts GitHubOptions) (Source, error) {
	httpClient := &http.Client{}
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: opts.Token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = defaultHTTPTimeout
	client := github.NewClient(httpClient)

	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, apperrors.NewConfigError("GITHUB_API_URL", err.Error())
		}
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		client.BaseURL = base
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	return &githubSource{
		client:      client,
		rateLimiter: NewRateLimiter(opts.MinDelay, log),
		perPage:     perPage,
		log:         log,
	}, nil
}

// ListRepositories pages through the repositories owned by account
func (s *githubSource) ListRepositories(ctx context.Context, account string) iter.Seq2[*domain.Repository, error] {
	return func(yield func(*domain.Repository, error) bool) {
		opts := &github.RepositoryListByUserOptions{
			Type:        "owner",
			ListOptions: github.ListOptions{PerPage: s.perPage},
		}

		for {
			if err := s.rateLimiter.Wait(ctx); err != nil {
				yield(nil, apperrors.NewRemoteUnavailableError(account, err))
				return
			}

			repos, resp, err := s.client.Repositories.ListByUser(ctx, account, opts)
			if err != nil {
				yield(nil, apperrors.NewRemoteUnavailableError(account, describeAPIError(err)))
				return
			}
			s.updateRateLimitFromResponse(resp)
			s.log.Debug("fetched repository page", "account", account, "page", pageNumber(opts.Page), "count", len(repos))

			for _, repo := range repos {
				r, err := toDomain(account, repo)
				if err != nil {
					yield(nil, apperrors.NewRemoteUnavailableError(account, err))
					return
				}
				if !yield(r, nil) {
					return
				}
			}

			if resp.NextPage == 0 {
				return
			}
			opts.Page = resp.NextPage
		}
	}
}

func toDomain(account string, repo *github.Repository) (*domain.Repository, error) {
	raw := repo.GetCloneURL()
	if raw == "" {
		raw = repo.GetGitURL()
	}
	cloneURL, err := NormaliseCloneURL(raw)
	if err != nil {
		return nil, fmt.Errorf("repository %s: %w", repo.GetName(), err)
	}

	return &domain.Repository{
		Owner:         account,
		Name:          repo.GetName(),
		CloneURL:      cloneURL,
		Description:   repo.GetDescription(),
		Size:          int64(repo.GetSize()),
		DefaultBranch: repo.GetDefaultBranch(),
		Fork:          repo.GetFork(),
		Archived:      repo.GetArchived(),
		CreatedAt:     repo.GetCreatedAt().Time,
		UpdatedAt:     repo.GetUpdatedAt().Time,
		PushedAt:      repo.GetPushedAt().Time,
	}, nil
}

func describeAPIError(err error) error {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return fmt.Errorf("rate limit exceeded until %s: %w", rateLimitErr.Rate.Reset.Time.Format(time.RFC3339), err)
	}
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return fmt.Errorf("GitHub API returned %d: %w", errResp.Response.StatusCode, err)
	}
	return err
}

func pageNumber(page int) int {
	if page == 0 {
		return 1
	}
	return page
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (s *githubSource) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Limit > 0 && resp.Rate.Remaining >= 0 {
		s.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}
