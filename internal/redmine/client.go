// Package redmine provides a client for the subset of the Redmine REST API
// used by the importer: listing projects, listing a project's issues and
// creating issues.
package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultRetryMaxElapsed = 30 * time.Second

	// APIKeyHeader carries the user's API key on every request.
	APIKeyHeader = "X-Redmine-API-Key"

	// PageLimit is the largest page Redmine serves. Listings are fetched as a
	// single page; see ProjectList.TotalCount to detect truncation.
	PageLimit = 100

	maxResponseSize = 10 * 1024 * 1024
)

// Client provides methods to interact with the Redmine REST API.
type Client struct {
	BaseURL    string // always ends with "/"
	APIKey     string
	HTTPClient *http.Client

	// RetryMaxElapsed bounds retries of transient failures. Zero disables
	// retries: the first failure is returned.
	RetryMaxElapsed time.Duration
}

// NewClient creates a new Redmine client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: NormalizeBaseURL(baseURL),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		RetryMaxElapsed: DefaultRetryMaxElapsed,
	}
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	return &Client{
		BaseURL:         c.BaseURL,
		APIKey:          c.APIKey,
		HTTPClient:      httpClient,
		RetryMaxElapsed: c.RetryMaxElapsed,
	}
}

// WithRetryMaxElapsed returns a new client with a different retry budget.
func (c *Client) WithRetryMaxElapsed(d time.Duration) *Client {
	return &Client{
		BaseURL:         c.BaseURL,
		APIKey:          c.APIKey,
		HTTPClient:      c.HTTPClient,
		RetryMaxElapsed: d,
	}
}

// NormalizeBaseURL trims whitespace and guarantees a trailing slash.
func NormalizeBaseURL(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s
}

// ListProjects fetches the projects visible to the API key.
func (c *Client) ListProjects(ctx context.Context) (*ProjectList, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(PageLimit))

	var list ProjectList
	if err := c.request(ctx, http.MethodGet, "projects.json", params, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}
	return &list, nil
}

// ListIssues fetches the issues of one project. Redmine's default filter
// applies: open issues of non-archived projects.
func (c *Client) ListIssues(ctx context.Context, projectID int) (*IssueList, error) {
	params := url.Values{}
	params.Set("project_id", strconv.Itoa(projectID))
	params.Set("limit", strconv.Itoa(PageLimit))

	var list IssueList
	if err := c.request(ctx, http.MethodGet, "issues.json", params, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch issues of project %d: %w", projectID, err)
	}
	return &list, nil
}

// CreateIssue creates an issue and returns it as stored by Redmine.
func (c *Client) CreateIssue(ctx context.Context, issue *NewIssue) (*Issue, error) {
	var created issueEnvelope
	if err := c.request(ctx, http.MethodPost, "issues.json", nil, newIssueEnvelope{Issue: issue}, &created); err != nil {
		return nil, fmt.Errorf("failed to create issue %q: %w", issue.Subject, err)
	}
	return &created.Issue, nil
}

// request sends a request, retrying transient failures with exponential
// backoff, and decodes a JSON response into out.
func (c *Client) request(ctx context.Context, method, path string, params url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	urlStr := c.BaseURL + path
	if len(params) > 0 {
		urlStr += "?" + params.Encode()
	}

	if c.RetryMaxElapsed <= 0 {
		return c.do(ctx, method, path, urlStr, payload, out)
	}

	op := func() error {
		err := c.do(ctx, method, path, urlStr, payload, out)
		if err == nil {
			return nil
		}
		if isRetryable(method, err) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.RetryMaxElapsed
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// do performs a single HTTP round trip.
func (c *Client) do(ctx context.Context, method, path, urlStr string, payload []byte, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	_ = resp.Body.Close()
	if err != nil {
		return &transportError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil {
			apiErr.Messages = eb.Errors
		}
		return apiErr
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// transportError marks a failure before a status code was received.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "request failed: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// isRetryable decides whether a failed attempt may be repeated. Reads are
// retried on any transient failure. Writes are only retried when the server
// certainly did not apply them (429, 503): a lost response to a POST could
// otherwise create the same issue twice.
func isRetryable(method string, err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return true
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
			return method == http.MethodGet
		}
		return false
	}
	var tErr *transportError
	if errors.As(err, &tErr) {
		return method == http.MethodGet
	}
	return false
}
