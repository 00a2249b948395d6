// Package client provides a Go client for the wikihop HTTP API.
//
// It covers synchronous path searches, asynchronous search tasks and
// title prefix listing. The client handles HTTP communication, JSON
// encoding and standardized error handling.
package client

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

	"github.com/sanonone/wikihop/pkg/search"
)

// --- Custom Errors ---

// APIError represents an error returned by the wikihop API (status >= 400).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// ErrTaskFailed is returned by Wait when the server reports a failed task.
var ErrTaskFailed = errors.New("client: task failed")

// DefaultPollInterval is used by Wait when no positive interval is given.
const DefaultPollInterval = 500 * time.Millisecond

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// --- JSON Response Structs ---

// PathResult is the response of FindPath.
type PathResult struct {
	search.Result
	URLs []string `json:"urls,omitempty"`
}

type titlesResponse struct {
	Prefix string   `json:"prefix"`
	Titles []string `json:"titles"`
}

// Task represents an asynchronous search on the server.
type Task struct {
	ID              string         `json:"id"`
	From            string         `json:"from"`
	To              string         `json:"to"`
	Status          string         `json:"status"`
	ProgressMessage string         `json:"progress_message,omitempty"`
	Error           string         `json:"error,omitempty"`
	Result          *search.Result `json:"result,omitempty"`

	client *Client // Reference to the client for polling.
}

// --- Client ---

// Client is the Go client for a wikihop server.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:9094". An empty authToken sends no Authorization header.
func New(baseURL, authToken string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		// Searches are bounded by the context, not by a client timeout.
		httpClient: &http.Client{},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// jsonRequest executes a request and decodes the JSON response into out.
func (c *Client) jsonRequest(ctx context.Context, method, endpoint string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		if json.Unmarshal(respBody, &errResp) == nil {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp["error"]}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("invalid JSON response for %s %s: %w", method, endpoint, err)
	}
	return nil
}

// Healthz checks that the server is up.
func (c *Client) Healthz(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/healthz", nil, nil)
}

// FindPath runs a search synchronously. Cancelling ctx aborts it on the server.
func (c *Client) FindPath(ctx context.Context, from, to string) (*PathResult, error) {
	q := url.Values{"from": {from}, "to": {to}}
	var res PathResult
	if err := c.jsonRequest(ctx, http.MethodGet, "/v1/path?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// StartSearch starts an asynchronous search and returns its task.
func (c *Client) StartSearch(ctx context.Context, from, to string) (*Task, error) {
	var task Task
	payload := map[string]string{"from": from, "to": to}
	if err := c.jsonRequest(ctx, http.MethodPost, "/v1/searches", payload, &task); err != nil {
		return nil, err
	}
	task.client = c
	return &task, nil
}

// GetTask retrieves the current state of a task.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := c.jsonRequest(ctx, http.MethodGet, "/v1/searches/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	task.client = c
	return &task, nil
}

// WaitForTask polls a task until it completes or fails.
func (c *Client) WaitForTask(ctx context.Context, id string, interval time.Duration) (*Task, error) {
	task := &Task{ID: id, client: c}
	if err := task.Wait(ctx, interval); err != nil {
		return task, err
	}
	return task, nil
}

// Titles lists up to limit stored titles starting with prefix. limit <= 0
// uses the server default.
func (c *Client) Titles(ctx context.Context, prefix string, limit int) ([]string, error) {
	q := url.Values{"prefix": {prefix}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp titlesResponse
	if err := c.jsonRequest(ctx, http.MethodGet, "/v1/titles?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Titles, nil
}

// Refresh updates the task's status by querying the server.
func (t *Task) Refresh(ctx context.Context) error {
	if t.client == nil {
		return fmt.Errorf("client is not associated with the task")
	}
	updated, err := t.client.GetTask(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *updated
	return nil
}

// Wait blocks until the task is completed, checking its status at regular
// intervals. The deadline comes from ctx. interval <= 0 selects
// DefaultPollInterval.
func (t *Task) Wait(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := t.Refresh(ctx); err != nil {
			return err
		}
		switch t.Status {
		case "completed":
			return nil
		case "failed":
			return fmt.Errorf("%w: task %s: %s", ErrTaskFailed, t.ID, t.Error)
		case "running", "started":
			// Continue waiting.
		default:
			return fmt.Errorf("unknown task status: %s", t.Status)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for task %s: %w", t.ID, ctx.Err())
		case <-ticker.C:
		}
	}
}
