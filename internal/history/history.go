// Package history holds per-conversation exchange history as immutable
// snapshots. A snapshot is never mutated: every successful exchange produces
// a new snapshot that replaces the previous one as a whole.
package history

import "slices"

// Role identifies who produced a stored turn.
type Role string

// Role constants for stored turns. System instructions are never stored.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one exchanged message in a conversation.
type Turn struct {
	Role    Role
	Content string
}

// History maps a conversation ID to its ordered turns, oldest first.
// The zero value is an empty history and is ready to use.
//
// Turns are always stored in adjacent (user, assistant) pairs. The only
// way to add turns is Append, which adds both halves of a pair at once.
type History struct {
	conversations map[int64][]Turn
}

// Get returns the turns stored for id, or an empty slice if the
// conversation has never completed an exchange. The returned slice is
// shared with the snapshot and must be treated as read-only.
func Get(h History, id int64) []Turn {
	turns, ok := h.conversations[id]
	if !ok {
		return []Turn{}
	}
	return turns
}

// Append returns a new History equal to h except that id maps to its
// previous turns followed by the user turn and the assistant turn. h is
// left unmodified, so readers holding it keep a consistent view.
func Append(h History, id int64, userText, assistantText string) History {
	prev := h.conversations[id]

	turns := make([]Turn, len(prev), len(prev)+2)
	copy(turns, prev)
	turns = append(turns,
		Turn{Role: RoleUser, Content: userText},
		Turn{Role: RoleAssistant, Content: assistantText},
	)

	next := make(map[int64][]Turn, len(h.conversations)+1)
	for k, v := range h.conversations {
		next[k] = v
	}
	next[id] = turns

	return History{conversations: next}
}

// Len returns the number of conversations with at least one exchange.
func (h History) Len() int {
	return len(h.conversations)
}

// TurnCount returns the total number of stored turns across conversations.
func (h History) TurnCount() int {
	n := 0
	for _, turns := range h.conversations {
		n += len(turns)
	}
	return n
}

// IDs returns the conversation IDs in ascending order.
func (h History) IDs() []int64 {
	ids := make([]int64, 0, len(h.conversations))
	for id := range h.conversations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
