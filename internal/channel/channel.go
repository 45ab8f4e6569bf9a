// Package channel defines the bridge between messaging platforms and the
// router. It provides the Channel interface, typing indicators, reply
// chunking, and the outbound Dispatcher.
package channel

import (
	"context"
	"errors"

	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/pkg/message"
)

var (
	// ErrNoChannel is returned when a reply names a channel the
	// dispatcher does not know.
	ErrNoChannel = errors.New("channel: no such channel")
	// ErrDuplicateChannel is returned when two channels share a name.
	ErrDuplicateChannel = errors.New("channel: name already registered")
	// ErrNoInbox means the channel was started before the router wired
	// its inbox.
	ErrNoInbox = errors.New("channel: inbox not wired")
)

// Channel is the bridge between a messaging platform and the router.
//
// A channel receives updates from its platform, converts them to
// message.InboundMessage and pushes them to the router via the inbox
// callback. It also receives replies via Send().
type Channel interface {
	core.Module

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg message.OutboundMessage) error

	// SetInbox gives the channel a function to push inbound messages to the router.
	// The router calls this during wiring, before Start().
	SetInbox(fn func(msg message.InboundMessage) error)
}

// TypingChannel is implemented by channels that can show typing indicators
// while a reply is being generated.
type TypingChannel interface {
	Channel

	// SendTyping sends a single typing indicator to the conversation.
	SendTyping(ctx context.Context, conversationID int64) error
}
