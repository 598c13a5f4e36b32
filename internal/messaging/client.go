package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teralabs/queuewatch/internal/retry"
)

// Client talks to a chat REST surface (Discord-compatible message
// routes). Every operation is rate limited and wrapped in the resilient
// delivery policy; the final error after exhausted retries is logged and
// surfaced to the caller, never fatal.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	retryOpts  retry.Options
	logger     *zap.Logger
}

// NewClient creates a messaging client for baseURL authenticated with
// the bot token.
func NewClient(baseURL, token string, ratePerSec int, timeout time.Duration, opts retry.Options, logger *zap.Logger) *Client {
	if ratePerSec < 1 {
		ratePerSec = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryOpts:  opts,
		logger:     logger,
	}
}

var _ Surface = (*Client)(nil)

// Send posts a new message to the channel.
func (c *Client) Send(ctx context.Context, channelID string, payload Payload) (*Message, error) {
	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)

	var msg Message
	err := retry.Do(ctx, func(ctx context.Context) error {
		return c.call(ctx, http.MethodPost, url, payload, &msg)
	}, c.retryOpts)
	if err != nil {
		c.logger.Warn("send failed", zap.String("channel", channelID), zap.Error(err))
		return nil, err
	}
	return &msg, nil
}

// Edit replaces the content of an existing message.
func (c *Client) Edit(ctx context.Context, msg *Message, payload Payload) error {
	url := fmt.Sprintf("%s/channels/%s/messages/%s", c.baseURL, msg.ChannelID, msg.ID)

	err := retry.Do(ctx, func(ctx context.Context) error {
		return c.call(ctx, http.MethodPatch, url, payload, nil)
	}, c.retryOpts)
	if err != nil {
		c.logger.Warn("edit failed", zap.String("message", msg.ID), zap.Error(err))
	}
	return err
}

// Reply posts a message referencing msg in the same channel.
func (c *Client) Reply(ctx context.Context, msg *Message, content string) (*Message, error) {
	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, msg.ChannelID)
	body := struct {
		Payload
		Reference struct {
			MessageID string `json:"message_id"`
		} `json:"message_reference"`
	}{Payload: Payload{Content: content}}
	body.Reference.MessageID = msg.ID

	var reply Message
	err := retry.Do(ctx, func(ctx context.Context) error {
		return c.call(ctx, http.MethodPost, url, body, &reply)
	}, c.retryOpts)
	if err != nil {
		c.logger.Warn("reply failed", zap.String("message", msg.ID), zap.Error(err))
		return nil, err
	}
	return &reply, nil
}

// call performs one HTTP round trip. Non-2xx responses map to *APIError
// so the retry classifier can tell transient from permanent failures.
func (c *Client) call(ctx context.Context, method, url string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bot "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var detail struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &detail) == nil {
			apiErr.Code = detail.Code
			apiErr.Message = detail.Message
		}
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
