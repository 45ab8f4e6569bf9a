package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/flemzord/tgrelay/internal/channel"
	"github.com/flemzord/tgrelay/pkg/message"
)

// sendOutbound sends an OutboundMessage through the Telegram API, split
// into chunks that fit the configured maximum length.
// Fail-fast: a failed chunk aborts the remaining ones.
func (t *Telegram) sendOutbound(ctx context.Context, msg message.OutboundMessage) error {
	if msg.Text == "" {
		return nil
	}

	chunks := channel.SplitMessage(msg, channel.ChunkConfig{
		MaxLength:      t.config.MaxMessageLength,
		PreserveBlocks: true,
	})

	for i, chunk := range chunks {
		if _, err := t.client.SendMessage(ctx, t.sendRequest(chunk)); err != nil {
			return fmt.Errorf("telegram: send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

func (t *Telegram) sendRequest(msg message.OutboundMessage) SendMessageRequest {
	req := SendMessageRequest{
		ChatID:           msg.ConversationID,
		Text:             msg.Text,
		ParseMode:        t.config.ParseMode,
		ReplyToMessageID: t.parseReplyTo(msg.ReplyToID),
	}
	if h := msg.Hints; h != nil {
		if h.ParseMode != "" {
			req.ParseMode = h.ParseMode
		}
		req.DisableWebPagePreview = h.DisablePreview
		req.DisableNotification = h.DisableNotification
	}
	return req
}

// parseReplyTo converts a platform message ID, returning 0 for empty or
// invalid values.
func (t *Telegram) parseReplyTo(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		t.logger.Warn("ignoring invalid reply_to id", "value", s, "error", err)
		return 0
	}
	return v
}
