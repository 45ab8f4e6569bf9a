package channel

import (
	"context"
	"time"
)

// DefaultTypingInterval keeps Telegram's indicator alive; it expires after
// about five seconds.
const DefaultTypingInterval = 4 * time.Second

// StartTypingLoop launches a goroutine that sends typing indicators at the
// given interval until ctx is cancelled. Errors are ignored: the indicator
// is cosmetic.
func StartTypingLoop(ctx context.Context, ch TypingChannel, conversationID int64, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTypingInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		_ = ch.SendTyping(ctx, conversationID)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = ch.SendTyping(ctx, conversationID)
			}
		}
	}()
}
