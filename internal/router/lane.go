package router

import (
	"sync"

	"github.com/flemzord/tgrelay/pkg/message"
)

// LaneKey identifies a conversation across channels.
type LaneKey struct {
	Channel        string
	ConversationID int64
}

// LaneKeyFromMessage returns the lane for msg, or false when the message
// carries no conversation ID.
func LaneKeyFromMessage(msg message.InboundMessage) (LaneKey, bool) {
	id, ok := msg.Conversation()
	if !ok {
		return LaneKey{}, false
	}
	return LaneKey{Channel: msg.Channel, ConversationID: id}, true
}

// LaneLock provides per-conversation serialization: messages within one
// conversation are handled one at a time while different conversations
// proceed in parallel.
//
// A global mutex protects the lane map and is held only to look up or
// create the per-conversation mutex. Lanes are removed once no goroutine
// holds or waits on them.
type LaneLock struct {
	mu    sync.Mutex
	lanes map[LaneKey]*lane
}

type lane struct {
	mu   sync.Mutex
	refs int
}

// NewLaneLock creates a ready-to-use LaneLock.
func NewLaneLock() *LaneLock {
	return &LaneLock{
		lanes: make(map[LaneKey]*lane),
	}
}

// Acquire locks the lane for key, creating it if needed.
// The caller must call Release with the same key when done.
func (l *LaneLock) Acquire(key LaneKey) {
	l.mu.Lock()
	ln, ok := l.lanes[key]
	if !ok {
		ln = &lane{}
		l.lanes[key] = ln
	}
	ln.refs++
	l.mu.Unlock()

	// Lock outside the global mutex so other conversations are not blocked.
	ln.mu.Lock()
}

// Release unlocks the lane for key.
func (l *LaneLock) Release(key LaneKey) {
	l.mu.Lock()
	ln, ok := l.lanes[key]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 {
		delete(l.lanes, key)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// Len returns the number of lanes currently held or awaited.
func (l *LaneLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}
