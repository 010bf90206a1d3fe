// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

// Package github implements the upstream GitHub Actions API client
// used by the dashboard's pipeline views, plus the OAuth code
// exchange for dashboard login. The client carries its own token
// bucket so pipewatch stays inside GitHub's secondary rate limits,
// and callers normally wrap it in CircuitBreakerClient.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/pipewatch/internal/config"
	"github.com/tomtom215/pipewatch/internal/metrics"
	"github.com/tomtom215/pipewatch/internal/models"
)

// maxErrorBodySize limits how much of an error response body is read
// for diagnostics.
const maxErrorBodySize = 64 * 1024 // 64KB

// maxLogBodySize caps job log downloads.
const maxLogBodySize = 4 << 20 // 4MB

// ClientInterface defines the GitHub API operations pipewatch uses.
// Implemented by Client for production and by mocks in tests.
// All methods are safe for concurrent use.
type ClientInterface interface {
	Ping(ctx context.Context) error
	ListWorkflowRuns(ctx context.Context, page, perPage int) (*models.WorkflowRunList, error)
	ListRunJobs(ctx context.Context, runID int64) (*models.WorkflowJobList, error)
	GetJobLogs(ctx context.Context, jobID int64) (string, error)
	GetAuthenticatedUser(ctx context.Context, token string) (*models.GitHubUser, error)
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// Client talks to the GitHub REST API for a single configured
// repository. Each request waits on a client-side token bucket before
// going out; HTTP 429 and secondary-limit 403 responses are retried
// with exponential backoff.
type Client struct {
	apiBaseURL     string
	tokenURL       string
	owner          string
	repo           string
	token          string
	oauthClientID  string
	oauthSecret    string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a GitHub API client from configuration.
func NewClient(cfg *config.GitHubConfig) *Client {
	return &Client{
		apiBaseURL:    cfg.APIBaseURL,
		tokenURL:      "https://github.com/login/oauth/access_token",
		owner:         cfg.Owner,
		repo:          cfg.Repo,
		token:         cfg.Token,
		oauthClientID: cfg.OAuthClientID,
		oauthSecret:   cfg.OAuthClientSecret,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		maxRetries:     5,
		retryBaseDelay: time.Second,
	}
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// doRequest performs one API request with rate limiting and backoff
// on HTTP 429. The Retry-After header is honored when present.
func (c *Client) doRequest(ctx context.Context, method, reqURL, bearer string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				delay = time.Duration(seconds) * time.Second
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// makeRequest performs a GET against an API path and decodes the JSON
// response into result.
func (c *Client) makeRequest(ctx context.Context, endpoint, path string, params url.Values, result interface{}) error {
	reqURL := c.apiBaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, c.token)
	if err != nil {
		metrics.RecordGitHubRequest(endpoint, "error", time.Since(start).Seconds())
		return fmt.Errorf("failed to make %s request: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.RecordGitHubRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s returned HTTP %d: %s", endpoint, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) repoPath(suffix string) string {
	return fmt.Sprintf("/repos/%s/%s%s", c.owner, c.repo, suffix)
}

// Ping verifies API connectivity and repository access.
func (c *Client) Ping(ctx context.Context) error {
	var repo struct {
		ID int64 `json:"id"`
	}
	return c.makeRequest(ctx, "get_repo", c.repoPath(""), nil, &repo)
}

// ListWorkflowRuns returns a page of workflow runs for the configured
// repository, newest first.
func (c *Client) ListWorkflowRuns(ctx context.Context, page, perPage int) (*models.WorkflowRunList, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	result := &models.WorkflowRunList{}
	if err := c.makeRequest(ctx, "list_workflow_runs", c.repoPath("/actions/runs"), params, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListRunJobs returns the jobs of one workflow run.
func (c *Client) ListRunJobs(ctx context.Context, runID int64) (*models.WorkflowJobList, error) {
	result := &models.WorkflowJobList{}
	path := c.repoPath(fmt.Sprintf("/actions/runs/%d/jobs", runID))
	if err := c.makeRequest(ctx, "list_run_jobs", path, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetJobLogs downloads the plain-text log of one job. GitHub answers
// with a redirect to short-lived blob storage, which the HTTP client
// follows transparently.
func (c *Client) GetJobLogs(ctx context.Context, jobID int64) (string, error) {
	reqURL := c.apiBaseURL + c.repoPath(fmt.Sprintf("/actions/jobs/%d/logs", jobID))

	start := time.Now()
	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, c.token)
	if err != nil {
		metrics.RecordGitHubRequest("get_job_logs", "error", time.Since(start).Seconds())
		return "", fmt.Errorf("failed to fetch job logs: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.RecordGitHubRequest("get_job_logs", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return "", fmt.Errorf("job logs returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	logs, err := io.ReadAll(io.LimitReader(resp.Body, maxLogBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read job logs: %w", err)
	}
	return string(logs), nil
}

// GetAuthenticatedUser returns the user owning the given OAuth token.
func (c *Client) GetAuthenticatedUser(ctx context.Context, token string) (*models.GitHubUser, error) {
	reqURL := c.apiBaseURL + "/user"

	start := time.Now()
	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, token)
	if err != nil {
		metrics.RecordGitHubRequest("get_user", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to fetch authenticated user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.RecordGitHubRequest("get_user", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("user endpoint returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	user := &models.GitHubUser{}
	if err := json.NewDecoder(resp.Body).Decode(user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	return user, nil
}
