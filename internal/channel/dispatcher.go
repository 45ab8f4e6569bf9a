package channel

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/flemzord/tgrelay/pkg/message"
)

// Dispatcher routes outbound messages to the correct registered channel.
// It implements relay.Replier so the orchestrator can answer on whichever
// channel a message arrived from.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel under the given name.
// Returns ErrDuplicateChannel if the name is already taken.
func (d *Dispatcher) Register(name string, ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.channels[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	d.channels[name] = ch
	return nil
}

// Get returns the channel registered under name, or false if none.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ch, ok := d.channels[name]
	return ch, ok
}

// Send dispatches an outbound message to the channel identified by
// msg.Channel. It returns ErrNoChannel if no channel is registered
// under that name.
func (d *Dispatcher) Send(ctx context.Context, msg message.OutboundMessage) error {
	ch, ok := d.Get(msg.Channel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, msg.Channel)
	}
	return ch.Send(ctx, msg)
}

// Typing starts a typing indicator on the named channel until ctx is done.
// Channels without typing support are ignored.
func (d *Dispatcher) Typing(ctx context.Context, channelName string, conversationID int64) {
	ch, ok := d.Get(channelName)
	if !ok {
		return
	}
	if tc, ok := ch.(TypingChannel); ok {
		StartTypingLoop(ctx, tc, conversationID, DefaultTypingInterval)
	}
}

// Channels returns the names of all registered channels, sorted.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
