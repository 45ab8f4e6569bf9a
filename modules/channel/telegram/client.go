package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	maxAttempts      = 3
	initialBackoff   = time.Second
	maxResponseBytes = 10 << 20
)

// Client calls Telegram Bot API methods over HTTPS. Only the handful of
// methods the relay needs are exposed.
type Client struct {
	token   string
	baseURL string
	http    *http.Client

	// wait blocks for d or until ctx is done. Replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Bot API client. A timeout <= 0 means 60 seconds.
func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		token:   token,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		wait:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) endpoint(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// invoke calls a Bot API method and returns its result. A 429 answer is
// retried after the advertised retry_after (or a doubling backoff) until
// maxAttempts is reached; the last 429 is returned as an *APIError.
func invoke[T any](ctx context.Context, c *Client, method string, payload any) (*T, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("telegram: marshal %s request: %w", method, err)
		}
		body = b
	}

	delay := initialBackoff
	for attempt := 1; ; attempt++ {
		status, raw, err := c.post(ctx, method, body)
		if err != nil {
			return nil, err
		}
		if status == http.StatusTooManyRequests && attempt < maxAttempts {
			delay = retryDelay(raw, delay)
			if err := c.wait(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
			continue
		}
		return decodeResult[T](method, status, raw)
	}
}

// post performs a single HTTP round trip and returns the status and the
// size-limited body.
func (c *Client) post(ctx context.Context, method string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// The *url.Error carries the token in its URL.
		return 0, nil, fmt.Errorf("telegram: %s request failed: %w", method, redactURLError(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}
	return resp.StatusCode, raw, nil
}

// retryDelay prefers the server's retry_after hint over the current
// backoff.
func retryDelay(raw []byte, current time.Duration) time.Duration {
	var resp APIResponse[json.RawMessage]
	if json.Unmarshal(raw, &resp) != nil || resp.Parameters == nil || resp.Parameters.RetryAfter <= 0 {
		return current
	}
	return time.Duration(resp.Parameters.RetryAfter) * time.Second
}

func decodeResult[T any](method string, status int, raw []byte) (*T, error) {
	var resp APIResponse[T]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response (status %d): %w", method, status, err)
	}
	if !resp.OK {
		apiErr := &APIError{Code: resp.ErrorCode, Description: resp.Description}
		if resp.Parameters != nil {
			apiErr.RetryAfter = resp.Parameters.RetryAfter
		}
		return nil, apiErr
	}
	return &resp.Result, nil
}

// GetUpdatesRequest is the request body for the getUpdates method.
type GetUpdatesRequest struct {
	Offset         int      `json:"offset,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// SetWebhookRequest is the request body for the setWebhook method.
type SetWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
	MaxConnections int      `json:"max_connections,omitempty"`
}

// SendMessageRequest is the request body for the sendMessage method.
type SendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID      int    `json:"reply_to_message_id,omitempty"`
}

// sendChatActionRequest is the request body for the sendChatAction method.
type sendChatActionRequest struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
}

// GetMe returns the bot account. Used at startup to check the token.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	return invoke[User](ctx, c, "getMe", nil)
}

// GetUpdates long-polls for updates after req.Offset.
func (c *Client) GetUpdates(ctx context.Context, req GetUpdatesRequest) ([]Update, error) {
	result, err := invoke[[]Update](ctx, c, "getUpdates", req)
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// SetWebhook points Telegram at the relay's webhook endpoint.
func (c *Client) SetWebhook(ctx context.Context, req SetWebhookRequest) error {
	_, err := invoke[bool](ctx, c, "setWebhook", req)
	return err
}

// DeleteWebhook clears any webhook so getUpdates can be used.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := invoke[bool](ctx, c, "deleteWebhook", nil)
	return err
}

// SendMessage posts a reply to a chat.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	return invoke[Message](ctx, c, "sendMessage", req)
}

// SendChatAction shows an action such as "typing" in a chat for a few
// seconds.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	_, err := invoke[bool](ctx, c, "sendChatAction", sendChatActionRequest{
		ChatID: chatID,
		Action: action,
	})
	return err
}
