package telegram

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	maxConsecutivePollingErrors = 5
	errorPauseDuration          = 30 * time.Second
)

// Poller implements long-polling for receiving Telegram updates.
type Poller struct {
	client  *Client
	handler *updateHandler
	logger  *slog.Logger
	config  Config

	// pause is how long polling stops after repeated errors.
	pause time.Duration

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a new Poller.
func NewPoller(client *Client, handler *updateHandler, logger *slog.Logger, config Config) *Poller {
	return &Poller{
		client:  client,
		handler: handler,
		logger:  logger,
		config:  config,
		pause:   errorPauseDuration,
		done:    make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine. The loop runs until
// Stop is called.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.loop(ctx)
}

// Stop cancels the in-flight poll and waits for the loop to finish.
// It is safe to call Stop multiple times.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
	if p.cancel != nil {
		<-p.done
	}
}

// loop runs the long-polling loop until ctx is cancelled.
func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	var offset int
	var consecutiveErrors int

	for ctx.Err() == nil {
		updates, err := p.client.GetUpdates(ctx, GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.config.PollingTimeout,
			AllowedUpdates: p.config.AllowedUpdates,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			consecutiveErrors++
			p.logger.Error("polling getUpdates failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)

			if consecutiveErrors >= maxConsecutivePollingErrors {
				p.logger.Warn("polling paused after consecutive errors",
					"pause", p.pause,
				)
				if sleepContext(ctx, p.pause) != nil {
					return
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0

		for i := range updates {
			offset = updates[i].UpdateID + 1
			if err := p.handler.handle(&updates[i]); err != nil {
				p.logger.Error("failed to deliver update to inbox", "error", err)
			}
		}
	}
}
