package message

import (
	"encoding/json"
	"time"
)

// InboundMessage represents a message received from a channel.
// ConversationID and Text are optional: platforms deliver updates without a
// chat (inline queries) or without text (stickers, photos).
type InboundMessage struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Channel        string          `json:"channel"`
	Sender         Sender          `json:"sender"`
	ConversationID *int64          `json:"conversation_id,omitempty"`
	ChatType       ChatType        `json:"chat_type,omitempty"`
	PlatformID     string          `json:"platform_id,omitempty"`
	Text           *string         `json:"text,omitempty"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}

// Conversation returns the conversation ID and whether it is present.
func (m *InboundMessage) Conversation() (int64, bool) {
	if m.ConversationID == nil {
		return 0, false
	}
	return *m.ConversationID, true
}

// TextContent returns the message text and whether it is present.
// Present-but-empty text is reported as present.
func (m *InboundMessage) TextContent() (string, bool) {
	if m.Text == nil {
		return "", false
	}
	return *m.Text, true
}

// IsGroup reports whether the message was sent in a group chat.
func (m *InboundMessage) IsGroup() bool {
	return m.ChatType == ChatGroup
}
