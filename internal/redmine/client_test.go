package redmine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := NewClient("https://redmine.example.com", "test-key")

	assert.Equal(t, "https://redmine.example.com/", client.BaseURL)
	assert.Equal(t, "test-key", client.APIKey)
	assert.Equal(t, DefaultRetryMaxElapsed, client.RetryMaxElapsed)
	require.NotNil(t, client.HTTPClient)
	assert.Equal(t, DefaultTimeout, client.HTTPClient.Timeout)
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://r.example.com", want: "https://r.example.com/"},
		{in: "https://r.example.com/", want: "https://r.example.com/"},
		{in: "  https://r.example.com/sub  ", want: "https://r.example.com/sub/"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeBaseURL(tt.in), "input %q", tt.in)
	}
}

func TestWithRetryMaxElapsedCopiesClient(t *testing.T) {
	base := NewClient("https://r.example.com", "k")
	other := base.WithRetryMaxElapsed(0)

	assert.Equal(t, time.Duration(0), other.RetryMaxElapsed)
	assert.Equal(t, DefaultRetryMaxElapsed, base.RetryMaxElapsed)
	assert.Same(t, base.HTTPClient, other.HTTPClient)
}

func TestListProjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/projects.json", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret", r.Header.Get(APIKeyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"projects":[{"id":1,"name":"Alpha","identifier":"alpha"},{"id":2,"name":"Beta"}],"total_count":2,"offset":0,"limit":100}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	list, err := client.ListProjects(context.Background())
	require.NoError(t, err)

	require.Len(t, list.Projects, 2)
	assert.Equal(t, 1, list.Projects[0].ID)
	assert.Equal(t, "Alpha", list.Projects[0].Name)
	assert.Equal(t, "alpha", list.Projects[0].Identifier)
	assert.Equal(t, 2, list.TotalCount)
}

func TestListIssues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/issues.json", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("project_id"))

		_, _ = w.Write([]byte(`{"issues":[{"id":10,"subject":"First","parent":{"id":3}},{"id":11,"subject":"Second"}],"total_count":2}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "secret")
	list, err := client.ListIssues(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, list.Issues, 2)
	assert.Equal(t, "First", list.Issues[0].Subject)
	require.NotNil(t, list.Issues[0].Parent)
	assert.Equal(t, 3, list.Issues[0].Parent.ID)
	assert.Nil(t, list.Issues[1].Parent)
}

func TestCreateIssuePayload(t *testing.T) {
	var got map[string]map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/issues.json", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"issue":{"id":99,"subject":"Task One","project":{"id":1,"name":"Alpha"}}}`))
	}))
	defer server.Close()

	parent, done := 12, 0
	client := NewClient(server.URL, "secret")
	created, err := client.CreateIssue(context.Background(), &NewIssue{
		ProjectID:     1,
		Subject:       "Task One",
		ParentIssueID: &parent,
		DoneRatio:     &done,
	})
	require.NoError(t, err)
	assert.Equal(t, 99, created.ID)
	assert.Equal(t, "Task One", created.Subject)

	issue := got["issue"]
	require.NotNil(t, issue)
	assert.EqualValues(t, 1, issue["project_id"])
	assert.Equal(t, "Task One", issue["subject"])
	assert.EqualValues(t, 12, issue["parent_issue_id"])
	// An explicit zero must still be sent.
	assert.Contains(t, issue, "done_ratio")
	assert.NotContains(t, issue, "priority_id")
	assert.NotContains(t, issue, "assigned_to_id")
}

func TestRequestErrorSentinels(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{status: http.StatusUnauthorized, want: ErrUnauthorized},
		{status: http.StatusForbidden, want: ErrForbidden},
		{status: http.StatusNotFound, want: ErrNotFound},
		{status: http.StatusUnprocessableEntity, body: `{"errors":["Subject cannot be blank"]}`, want: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "secret")
			_, err := client.CreateIssue(context.Background(), &NewIssue{ProjectID: 1, Subject: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{
		Method:     http.MethodPost,
		Path:       "issues.json",
		StatusCode: http.StatusUnprocessableEntity,
		Messages:   []string{"Subject cannot be blank", "Tracker is invalid"},
	}
	assert.Equal(t, "API error: POST issues.json: Subject cannot be blank; Tracker is invalid (status 422)", err.Error())

	err = &APIError{Method: http.MethodGet, Path: "projects.json", StatusCode: http.StatusBadGateway}
	assert.Contains(t, err.Error(), "Bad Gateway")
	assert.ErrorIs(t, err, ErrServer)
}

func TestRequestRetriesGetOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"projects":[{"id":5,"name":"Gamma"}],"total_count":1}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret").WithRetryMaxElapsed(10 * time.Second)
	list, err := client.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, list.Projects, 1)
	assert.Equal(t, 3, attempts)
}

func TestRequestDoesNotRetryPostOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret").WithRetryMaxElapsed(10 * time.Second)
	_, err := client.CreateIssue(context.Background(), &NewIssue{ProjectID: 1, Subject: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, 1, attempts)
}

func TestRequestRetriesPostWhenRateLimited(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"issue":{"id":3,"subject":"x"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret").WithRetryMaxElapsed(10 * time.Second)
	created, err := client.CreateIssue(context.Background(), &NewIssue{ProjectID: 1, Subject: "x"})
	require.NoError(t, err)
	assert.Equal(t, 3, created.ID)
	assert.Equal(t, 2, attempts)
}

func TestRequestWithoutRetryFailsFast(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret").WithRetryMaxElapsed(0)
	_, err := client.ListProjects(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRequestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, "secret").WithRetryMaxElapsed(0)
	_, err := client.ListProjects(context.Background())
	require.Error(t, err)

	var tErr *transportError
	assert.True(t, errors.As(err, &tErr))
}

func TestRequestMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"projects": [`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	_, err := client.ListProjects(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name   string
		method string
		err    error
		want   bool
	}{
		{"get 502", http.MethodGet, &APIError{StatusCode: http.StatusBadGateway}, true},
		{"post 502", http.MethodPost, &APIError{StatusCode: http.StatusBadGateway}, false},
		{"post 503", http.MethodPost, &APIError{StatusCode: http.StatusServiceUnavailable}, true},
		{"post 429", http.MethodPost, &APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"get 404", http.MethodGet, &APIError{StatusCode: http.StatusNotFound}, false},
		{"get 422", http.MethodGet, &APIError{StatusCode: http.StatusUnprocessableEntity}, false},
		{"get transport", http.MethodGet, &transportError{err: io.ErrUnexpectedEOF}, true},
		{"post transport", http.MethodPost, &transportError{err: io.ErrUnexpectedEOF}, false},
		{"decode", http.MethodGet, errors.New("failed to parse response"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.method, tt.err))
		})
	}
}

func TestWithHTTPClientTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, "secret").
		WithRetryMaxElapsed(0).
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond})
	assert.Equal(t, time.Duration(0), client.RetryMaxElapsed)

	_, err := client.ListProjects(context.Background())
	require.Error(t, err)
	var tErr *transportError
	assert.ErrorAs(t, err, &tErr)
}
