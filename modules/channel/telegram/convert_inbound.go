package telegram

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/flemzord/tgrelay/internal/id"
	"github.com/flemzord/tgrelay/pkg/message"
)

// convertInbound transforms a Telegram Update into a platform-agnostic
// InboundMessage. Chat and text are copied only when present, so the
// relay can tell a missing field from an empty one. It fails only when
// the update carries no message at all.
func convertInbound(update *Update, channelName string) (message.InboundMessage, error) {
	msg := extractMessage(update)
	if msg == nil {
		return message.InboundMessage{}, fmt.Errorf("telegram: update %d contains no message", update.UpdateID)
	}

	raw, err := json.Marshal(update)
	if err != nil {
		return message.InboundMessage{}, fmt.Errorf("telegram: marshal update: %w", err)
	}

	inbound := message.InboundMessage{
		ID:         id.New(),
		Timestamp:  time.Unix(int64(msg.Date), 0),
		Channel:    channelName,
		Sender:     convertSender(msg.From),
		PlatformID: strconv.Itoa(msg.MessageID),
		Raw:        raw,
	}

	if msg.Chat != nil {
		chatID := msg.Chat.ID
		inbound.ConversationID = &chatID
		inbound.ChatType = mapChatType(msg.Chat.Type)
	}
	if msg.Text != "" {
		text := msg.Text
		inbound.Text = &text
	}

	return inbound, nil
}

// extractMessage returns the actual message from an Update, checking
// Message, EditedMessage, and ChannelPost in order.
func extractMessage(update *Update) *Message {
	if update.Message != nil {
		return update.Message
	}
	if update.EditedMessage != nil {
		return update.EditedMessage
	}
	return update.ChannelPost
}

// convertSender maps a Telegram User to a platform-agnostic Sender.
func convertSender(user *User) message.Sender {
	if user == nil {
		return message.Sender{}
	}
	displayName := user.FirstName
	if user.LastName != "" {
		displayName += " " + user.LastName
	}
	return message.Sender{
		ID:          strconv.FormatInt(user.ID, 10),
		Username:    user.Username,
		DisplayName: displayName,
	}
}

// mapChatType converts Telegram chat type strings to message.ChatType.
func mapChatType(tgType string) message.ChatType {
	switch tgType {
	case "private":
		return message.ChatDM
	case "channel":
		return message.ChatBroadcast
	default:
		return message.ChatGroup
	}
}

// updateHandler converts updates and pushes them to the router inbox.
// Both delivery modes share it.
type updateHandler struct {
	inbox       func(message.InboundMessage) error
	logger      *slog.Logger
	channelName string
}

// handle delivers one update. Updates without a message are skipped.
func (h *updateHandler) handle(update *Update) error {
	msg, err := convertInbound(update, h.channelName)
	if err != nil {
		h.logger.Debug("skipping update", "update_id", update.UpdateID, "reason", err)
		return nil
	}

	if err := h.inbox(msg); err != nil {
		return fmt.Errorf("telegram: deliver update %d: %w", update.UpdateID, err)
	}
	return nil
}
