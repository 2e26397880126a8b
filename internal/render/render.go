package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Payload is the flat rendering contract handed to the external card
// renderer. The core never inspects the resulting artifact.
type Payload struct {
	RequestID string            `json:"request_id"`
	UserID    string            `json:"user_id"`
	UserName  string            `json:"user_name"`
	GroupID   string            `json:"group_id"`
	Title     string            `json:"title"`    // archetype display title
	Label     string            `json:"label"`    // archetype key
	Score     int               `json:"score"`    // composite
	Metrics   map[string]string `json:"metrics"`  // named sub-metrics
	Insights  []string          `json:"insights"` // narrative lines
	Verdict   string            `json:"verdict"`
	Equation  string            `json:"equation"` // display equation
	Generated string            `json:"generated_time"`
}

// Client posts payloads to the render service and returns the opaque
// artifact reference it responds with.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Render submits the payload. The returned string is an opaque artifact
// reference (typically a URL or file handle minted by the renderer).
func (c *Client) Render(ctx context.Context, p Payload) (string, error) {
	if p.RequestID == "" {
		p.RequestID = uuid.New().String()
	}

	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal render payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("render post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read render response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("renderer returned %d: %s", resp.StatusCode, string(respBody))
	}

	var renderResp struct {
		ArtifactRef string `json:"artifact_ref"`
		Error       string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &renderResp); err != nil {
		return "", fmt.Errorf("parse render response: %w", err)
	}
	if renderResp.ArtifactRef == "" {
		return "", fmt.Errorf("renderer error: %s", renderResp.Error)
	}

	c.logger.Info("card rendered", "request_id", p.RequestID, "artifact", renderResp.ArtifactRef)
	return renderResp.ArtifactRef, nil
}
