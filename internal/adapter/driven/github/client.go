// Package github implements the SignalSource port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
	"github.com/ericfisherdev/gatekeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SignalSource = (*Client)(nil)

// maxBranchRedirects is how many renamed-branch redirects GetBranch follows.
const maxBranchRedirects = 3

// Client implements the driven.SignalSource port using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client, PAT auth when token is non-empty)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// FetchOpenPullRequest returns the most recently updated open pull request
// against base, optionally restricted to PRs carrying label. It returns nil,
// nil when no pull request matches.
func (c *Client) FetchOpenPullRequest(ctx context.Context, repoFullName, base, label string) (*model.PullRequestRef, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListOptions{
		State:     "open",
		Base:      base,
		Sort:      "updated",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests for %s (page %d): %w", repoFullName, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/pulls", opts.Page, len(prs))

		for _, pr := range prs {
			ref := mapPullRequest(pr)
			if label == "" || slices.Contains(ref.Labels, label) {
				return &ref, nil
			}
		}

		// Without a label filter the first result is always taken.
		if label == "" || resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

// FetchBranchHead returns the commit SHA at the head of branch. A branch that
// does not exist yields an empty SHA rather than an error.
func (c *Client) FetchBranchHead(ctx context.Context, repoFullName, branch string) (string, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return "", err
	}

	b, resp, err := c.gh.Repositories.GetBranch(ctx, owner, repo, branch, maxBranchRedirects)
	if err != nil {
		if isNotFound(resp, err) {
			slog.Debug("branch not found", "repo", repoFullName, "branch", branch)
			return "", nil
		}
		return "", fmt.Errorf("fetching branch %s for %s: %w", branch, repoFullName, err)
	}

	logRateLimit(resp, repoFullName+"/branches", 0, 1)

	return b.GetCommit().GetSHA(), nil
}

// FetchLatestWorkflowRun returns the most recent GitHub Actions workflow run
// for sha, or nil, nil if there is none.
func (c *Client) FetchLatestWorkflowRun(ctx context.Context, repoFullName, sha string) (*model.WorkflowRun, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListWorkflowRunsOptions{
		HeadSHA:     sha,
		ListOptions: gh.ListOptions{PerPage: 1},
	}

	runs, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("listing workflow runs for %s@%s: %w", repoFullName, sha, err)
	}

	logRateLimit(resp, repoFullName+"/actions/runs", 0, len(runs.WorkflowRuns))

	if len(runs.WorkflowRuns) == 0 {
		return nil, nil
	}

	wr := runs.WorkflowRuns[0]
	return &model.WorkflowRun{
		Status:     wr.GetStatus(),
		Conclusion: wr.GetConclusion(),
		URL:        wr.GetHTMLURL(),
	}, nil
}

// FetchCheckRuns retrieves all check runs for the given ref (commit SHA or branch)
// in the order GitHub returns them. It handles pagination automatically.
func (c *Client) FetchCheckRuns(ctx context.Context, repoFullName, ref string) ([]model.CheckRun, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListCheckRunsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	allRuns := []model.CheckRun{}

	for {
		result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, opts)
		if err != nil {
			return nil, fmt.Errorf("listing check runs for %s@%s (page %d): %w", repoFullName, ref, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/check-runs", opts.Page, len(result.CheckRuns))

		for _, cr := range result.CheckRuns {
			allRuns = append(allRuns, model.CheckRun{
				Name:       cr.GetName(),
				Conclusion: cr.GetConclusion(),
				URL:        cr.GetHTMLURL(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRuns, nil
}

// FetchBlockers returns the open issues carrying every label in labels.
// Pull requests, which the issues endpoint also returns, are skipped.
func (c *Client) FetchBlockers(ctx context.Context, repoFullName string, labels []string) ([]model.Issue, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListByRepoOptions{
		State:       "open",
		Labels:      labels,
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	blockers := []model.Issue{}

	for {
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing blocker issues for %s (page %d): %w", repoFullName, opts.ListOptions.Page, err)
		}

		logRateLimit(resp, repoFullName+"/issues", opts.ListOptions.Page, len(issues))

		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			blockers = append(blockers, mapIssue(issue))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	return blockers, nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapPullRequest converts a go-github PullRequest to a domain PullRequestRef.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest) model.PullRequestRef {
	return model.PullRequestRef{
		Number:     pr.GetNumber(),
		HeadSHA:    pr.GetHead().GetSHA(),
		BaseBranch: pr.GetBase().GetRef(),
		URL:        pr.GetHTMLURL(),
		Labels:     labelNames(pr.Labels),
	}
}

func mapIssue(issue *gh.Issue) model.Issue {
	return model.Issue{
		Title:  issue.GetTitle(),
		Labels: labelNames(issue.Labels),
		URL:    issue.GetHTMLURL(),
	}
}

func labelNames(labels []*gh.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.GetName())
	}
	return names
}

func isNotFound(resp *gh.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
