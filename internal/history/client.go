// Package history talks to the platform bridge's HTTP API to retrieve
// recent group messages for cold-start backfill. The bridge is an
// external collaborator; the core only depends on this narrow fetch.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchGroupHistory returns up to count recent event envelopes for the
// group, oldest first. Entries are returned raw so the backfill replayer
// can skip malformed ones individually.
func (c *Client) FetchGroupHistory(ctx context.Context, groupID string, count int) ([]json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("platform history URL not configured")
	}

	q := url.Values{}
	q.Set("group_id", groupID)
	q.Set("count", strconv.Itoa(count))
	reqURL := c.baseURL + "/api/v1/history?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read history response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform returned %d for group %s", resp.StatusCode, groupID)
	}

	var payload struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse history response: %w", err)
	}
	return payload.Events, nil
}
