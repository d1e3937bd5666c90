package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reportwell/notifyfeed/internal/apperr"
	"github.com/reportwell/notifyfeed/internal/model"
)

// Client is a thin HTTP client for the Reportwell REST API.
// It handles Bearer token authentication, JSON decoding, and
// retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a REST client rooted at baseURL
// (e.g. https://api.reportwell.com/api).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 3,
	}
}

// ListNotifications fetches the full notification list for receiverID.
func (c *Client) ListNotifications(
	ctx context.Context,
	token string,
	receiverID string,
) ([]model.Notification, error) {
	if receiverID == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "receiver id required")
	}

	var resp ListResponse
	path := "/notifications/list/" + url.PathEscape(receiverID) + "/"
	if err := c.get(ctx, token, path, &resp); err != nil {
		return nil, err
	}
	if resp.Notifications == nil {
		return []model.Notification{}, nil
	}
	return resp.Notifications, nil
}

// get performs a GET, handles auth and rate limiting, and decodes the
// JSON response into result.
func (c *Client) get(
	ctx context.Context,
	token string,
	path string,
	result interface{},
) error {
	endpoint := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, err, "creating request")
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.Wrap(apperr.CodeDependency, err,
				fmt.Sprintf("executing request GET %s", path))
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return apperr.Wrap(apperr.CodeDependency, readErr, "reading response body")
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on GET %s", path)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}

		case resp.StatusCode == http.StatusUnauthorized:
			return apperr.New(apperr.CodeUnauthorized,
				fmt.Sprintf("authentication failed (401) on GET %s", path))

		case resp.StatusCode == http.StatusNotFound:
			return apperr.New(apperr.CodeNotFound,
				fmt.Sprintf("not found (404) on GET %s", path))

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			var apiErr ErrorResponse
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Detail != "" {
				return apperr.New(apperr.CodeDependency, fmt.Sprintf(
					"api error (%d) on GET %s: %s",
					resp.StatusCode, path, apiErr.Detail,
				))
			}
			return apperr.New(apperr.CodeDependency, fmt.Sprintf(
				"unexpected status %d on GET %s: %s",
				resp.StatusCode, path, string(respBody),
			))
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return apperr.Wrap(apperr.CodeDecode, err,
				fmt.Sprintf("unmarshaling response from GET %s", path))
		}

		return nil
	}

	return apperr.Wrap(apperr.CodeDependency, lastErr,
		fmt.Sprintf("max retries (%d) exceeded", c.maxRetries))
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
