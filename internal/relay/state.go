package relay

// State is a step in the handling of one inbound message.
//
//	Received → ContextBuilt → Completing → Succeeded | Failed → Done
//
// A message without a conversation ID or text goes from Received
// straight to Done.
type State int

const (
	StateReceived State = iota
	StateContextBuilt
	StateCompleting
	StateSucceeded
	StateFailed
	StateDone
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateContextBuilt:
		return "context_built"
	case StateCompleting:
		return "completing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Result reports how an event ended.
type Result struct {
	// State is StateSucceeded, StateFailed, or StateDone for skipped
	// events.
	State State

	// Reply is the assistant text sent back; empty unless Succeeded.
	Reply string

	// Skipped is true when the event lacked a conversation ID or text.
	Skipped bool
}

// outcome labels a Result for metrics.
func (r Result) outcome() string {
	if r.Skipped {
		return "skipped"
	}
	return r.State.String()
}
