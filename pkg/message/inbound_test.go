package message

import (
	"encoding/json"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestInboundMessage_Conversation(t *testing.T) {
	m := &InboundMessage{}
	if _, ok := m.Conversation(); ok {
		t.Error("Conversation() ok = true for nil ID")
	}

	m.ConversationID = ptr(int64(42))
	id, ok := m.Conversation()
	if !ok || id != 42 {
		t.Errorf("Conversation() = (%d, %v), want (42, true)", id, ok)
	}
}

func TestInboundMessage_TextContent(t *testing.T) {
	tests := []struct {
		name     string
		text     *string
		wantText string
		wantOK   bool
	}{
		{"absent", nil, "", false},
		{"empty but present", ptr(""), "", true},
		{"text", ptr("hello"), "hello", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &InboundMessage{Text: tt.text}
			got, ok := m.TextContent()
			if got != tt.wantText || ok != tt.wantOK {
				t.Errorf("TextContent() = (%q, %v), want (%q, %v)", got, ok, tt.wantText, tt.wantOK)
			}
		})
	}
}

func TestInboundMessage_IsGroup(t *testing.T) {
	m := &InboundMessage{ChatType: ChatGroup}
	if !m.IsGroup() {
		t.Error("IsGroup() = false, want true")
	}
	m.ChatType = ChatDM
	if m.IsGroup() {
		t.Error("IsGroup() = true, want false")
	}
}

func TestInboundMessage_JSONOmitsAbsentFields(t *testing.T) {
	m := InboundMessage{
		ID:        "1",
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Channel:   "telegram",
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"conversation_id", "text"} {
		if _, ok := raw[key]; ok {
			t.Errorf("key %q present for absent field", key)
		}
	}
}
