// Package client fetches queue snapshots from the ingestion API. The
// tracker and the CLI both read through it rather than reaching into the
// store, so rendered output always reflects what consumers would see.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teralabs/queuewatch/internal/queue"
	"github.com/teralabs/queuewatch/internal/render"
)

// QueueClient reads snapshots for one server from the API.
type QueueClient struct {
	httpClient *http.Client
	baseURL    string
	server     string
	logger     *zap.Logger
}

// New creates a QueueClient for the server's queues at baseURL.
func New(baseURL, server string, timeout time.Duration, logger *zap.Logger) *QueueClient {
	return &QueueClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		server:     server,
		logger:     logger,
	}
}

type kindResponse struct {
	Server string      `json:"server"`
	Type   string      `json:"type"`
	Data   []queue.Row `json:"data"`
}

// FetchSnapshot reads both queue kinds.
func (c *QueueClient) FetchSnapshot(ctx context.Context) (render.Snapshot, error) {
	dungeons, err := c.fetchKind(ctx, "dungeons")
	if err != nil {
		return render.Snapshot{}, fmt.Errorf("fetching dungeons: %w", err)
	}
	battlegrounds, err := c.fetchKind(ctx, "battlegrounds")
	if err != nil {
		return render.Snapshot{}, fmt.Errorf("fetching battlegrounds: %w", err)
	}

	snap := render.Snapshot{
		Dungeons:      dungeons,
		Battlegrounds: battlegrounds,
		LastUpdated:   time.Now(),
	}
	if len(dungeons) > 0 {
		snap.LastUpdated = dungeons[0].LastSeen
	} else if len(battlegrounds) > 0 {
		snap.LastUpdated = battlegrounds[0].LastSeen
	}
	return snap, nil
}

// Clear wipes the server's queue state. The API treats clears as
// mutations, so the call carries the bearer credential.
func (c *QueueClient) Clear(ctx context.Context, apiKey string) error {
	url := fmt.Sprintf("%s/api/v1/servers/%s/queues", c.baseURL, c.server)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return fmt.Errorf("unauthorized: check the configured API key")
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func (c *QueueClient) fetchKind(ctx context.Context, kind string) ([]queue.Row, error) {
	url := fmt.Sprintf("%s/api/v1/servers/%s/queues/%s", c.baseURL, c.server, kind)
	c.logger.Debug("fetching queues", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed kindResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return parsed.Data, nil
}
