package message

// OutboundMessage represents a message to be sent through a channel.
type OutboundMessage struct {
	Channel        string         `json:"channel"`
	ConversationID int64          `json:"conversation_id"`
	ReplyToID      string         `json:"reply_to_id,omitempty"`
	Text           string         `json:"text"`
	Hints          *OutboundHints `json:"hints,omitempty"`
}

// OutboundHints carries optional delivery hints for channels.
// Zero value means no hints are set.
type OutboundHints struct {
	DisablePreview      bool   `json:"disable_preview,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
	ParseMode           string `json:"parse_mode,omitempty"`
}

// NewTextMessage creates an outbound text message for a conversation.
func NewTextMessage(channel string, conversationID int64, text string) OutboundMessage {
	return OutboundMessage{
		Channel:        channel,
		ConversationID: conversationID,
		Text:           text,
	}
}
