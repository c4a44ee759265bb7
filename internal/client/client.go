// Package client fetches sanitized articles from a running toolinger server
// and tracks what a page embedding them should display.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/toolinger/toolinger/internal/errors"
	"github.com/toolinger/toolinger/internal/view"
)

// DefaultTimeout bounds a fetch when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// FetchError is a non-2xx answer from the delivery endpoint.
type FetchError struct {
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed with status %d: %s", e.Status, e.Message)
}

// Client talks to the /api/article endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the sanitized markup of file.
func (c *Client) Fetch(ctx context.Context, file string) (string, error) {
	endpoint := c.baseURL + "/api/article?file=" + url.QueryEscape(file)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "invalid server address "+c.baseURL)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.WrapNetwork(err, errors.ErrCodeFetchFailed, "failed to fetch "+file)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &FetchError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.WrapNetwork(err, errors.ErrCodeFetchFailed, "failed to read "+file)
	}
	return string(body), nil
}

// errorMessage prefers the JSON error field, then the raw text, then the status.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

// ThemeStylesheet returns the stylesheet applied to rendered articles.
func ThemeStylesheet() string {
	return view.ThemeStylesheet()
}
