// Package backend provides the remote store client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/podiumhq/podium-core/internal/config"
)

// HTTPError carries the backend's structured error response.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Client implements RemoteStore over the backend's REST and websocket APIs.
type Client struct {
	baseURL        string
	wsURL          string
	token          string
	congregationID string
	httpClient     *http.Client
	maxRetries     int
	baseDelay      time.Duration
	maxDelay       time.Duration
}

// NewClient builds a client from configuration. A nil httpClient gets a
// default with the configured request timeout.
func NewClient(cfg config.BackendConfig, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.GetRequestTimeout()}
	}
	return &Client{
		baseURL:        baseURL,
		wsURL:          strings.TrimSpace(cfg.WebsocketURL),
		token:          strings.TrimSpace(cfg.Token),
		congregationID: cfg.CongregationID,
		httpClient:     httpClient,
		maxRetries:     3,
		baseDelay:      100 * time.Millisecond,
		maxDelay:       2 * time.Second,
	}
}

// CongregationID returns the tenant this client is scoped to.
func (c *Client) CongregationID() string {
	return c.congregationID
}

// Select fetches rows matching the filter (exact-match per field).
func (c *Client) Select(ctx context.Context, table string, filter map[string]interface{}) ([]map[string]interface{}, error) {
	q := url.Values{}
	for k, v := range filter {
		q.Set(k, fmt.Sprint(v))
	}
	path := c.tablePath(table)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var rows []map[string]interface{}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert creates one row.
func (c *Client) Insert(ctx context.Context, table string, row map[string]interface{}) error {
	return c.doJSON(ctx, http.MethodPost, c.tablePath(table), row, nil)
}

// Update patches the named fields of one row by id.
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]interface{}) error {
	return c.doJSON(ctx, http.MethodPatch, c.tablePath(table)+"/"+url.PathEscape(id), fields, nil)
}

// Delete removes one row by id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.doJSON(ctx, http.MethodDelete, c.tablePath(table)+"/"+url.PathEscape(id), nil, nil)
}

func (c *Client) tablePath(table string) string {
	return fmt.Sprintf("%s/api/v1/%s/%s", c.baseURL, url.PathEscape(c.congregationID), url.PathEscape(table))
}

// doJSON sends a request with bounded retry on transient failures
// (network errors, 429 and 5xx responses), exponential backoff capped at
// maxDelay. Non-transient HTTP errors return an *HTTPError immediately.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << uint(attempt-1)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		retry, err := c.decodeResponse(resp, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return lastErr
}

// decodeResponse reads one response. The bool result reports whether the
// failure is worth retrying.
func (c *Client) decodeResponse(resp *http.Response, out interface{}) (bool, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return true, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return false, nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return false, fmt.Errorf("failed to decode response: %w", err)
		}
		return false, nil
	}

	httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	var structured struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &structured) == nil && structured.Code != "" {
		httpErr.Code = structured.Code
		httpErr.Message = structured.Message
	}

	retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return retry, httpErr
}
