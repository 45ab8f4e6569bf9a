package relay

import (
	"context"
	"time"
)

// Exchange is one handled message as seen by the debug side channel.
// Output is empty when no reply was produced.
type Exchange struct {
	MessageID      string
	Channel        string
	ConversationID int64
	Sender         string
	Input          string
	Output         string
	Succeeded      bool
	Timestamp      time.Time
	Duration       time.Duration
}

// DebugSink receives exchanges when debug mode is on. Errors are logged
// and never affect the exchange.
type DebugSink interface {
	Record(ctx context.Context, ex Exchange) error
}
