package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SecretTokenHeader carries the secret_token given to setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookReceiver processes incoming Telegram webhook payloads.
// It implements gateway.WebhookHandler. The gateway dispatcher checks
// the secret token before the payload reaches it.
type WebhookReceiver struct {
	handler *updateHandler
}

// NewWebhookReceiver creates a new WebhookReceiver.
func NewWebhookReceiver(handler *updateHandler) *WebhookReceiver {
	return &WebhookReceiver{handler: handler}
}

// HandleWebhook parses an update and pushes it to the inbox.
func (w *WebhookReceiver) HandleWebhook(_ context.Context, _ string, body []byte, _ http.Header) error {
	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("telegram: invalid update JSON: %w", err)
	}
	return w.handler.handle(&update)
}
