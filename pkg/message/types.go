// Package message defines the platform-agnostic data contract between
// channels and the relay.
package message

import "strconv"

// ChatType indicates the kind of conversation.
type ChatType string

const (
	// ChatDM is a direct (one-to-one) conversation.
	ChatDM ChatType = "dm"
	// ChatGroup is a multi-participant group conversation.
	ChatGroup ChatType = "group"
	// ChatBroadcast is a one-to-many broadcast channel.
	ChatBroadcast ChatType = "broadcast"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Name returns the best available label for logs: the username, then the
// display name, then the ID.
func (s Sender) Name() string {
	switch {
	case s.Username != "":
		return s.Username
	case s.DisplayName != "":
		return s.DisplayName
	default:
		return s.ID
	}
}

// ConversationKey formats a conversation ID for platform APIs and logs.
func ConversationKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
