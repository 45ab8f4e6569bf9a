// Package channeltest provides test doubles for the channel package.
package channeltest

import (
	"context"
	"sync"

	"github.com/flemzord/tgrelay/internal/channel"
	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/pkg/message"
)

// MockChannel is a test double that implements channel.TypingChannel. It
// records sent messages and typing indicators, and simulates inbound
// messages via SimulateMessage.
type MockChannel struct {
	name  string
	mu    sync.Mutex
	inbox func(msg message.InboundMessage) error
	sent  []message.OutboundMessage
	typed []int64

	// SendFunc, if set, is called instead of the default recording behavior.
	SendFunc func(ctx context.Context, msg message.OutboundMessage) error
}

// Compile-time interface guards.
var _ channel.TypingChannel = (*MockChannel)(nil)

// NewMockChannel creates a MockChannel with the given name.
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID("channel." + m.name),
		New: func() core.Module { return NewMockChannel(m.name) },
	}
}

// Send records the outbound message. If SendFunc is set, it delegates to it.
func (m *MockChannel) Send(ctx context.Context, msg message.OutboundMessage) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// SendTyping records the conversation that received a typing indicator.
func (m *MockChannel) SendTyping(_ context.Context, conversationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typed = append(m.typed, conversationID)
	return nil
}

// SetInbox stores the inbox callback provided by the router.
func (m *MockChannel) SetInbox(fn func(msg message.InboundMessage) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// SimulateMessage tags msg with this channel's module ID and pushes it into the
// inbox. It returns channel.ErrNoInbox if SetInbox has not been called.
func (m *MockChannel) SimulateMessage(msg message.InboundMessage) error {
	m.mu.Lock()
	inbox := m.inbox
	m.mu.Unlock()

	if inbox == nil {
		return channel.ErrNoInbox
	}
	msg.Channel = "channel." + m.name
	return inbox(msg)
}

// SentMessages returns a copy of all outbound messages recorded by Send.
func (m *MockChannel) SentMessages() []message.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]message.OutboundMessage, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// TypingConversations returns a copy of the conversations that received
// typing indicators.
func (m *MockChannel) TypingConversations() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]int64, len(m.typed))
	copy(cp, m.typed)
	return cp
}

// Reset clears recorded messages and typing indicators.
func (m *MockChannel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.typed = nil
}
