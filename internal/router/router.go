package router

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/flemzord/tgrelay/internal/security"
	"github.com/flemzord/tgrelay/pkg/message"
)

const defaultInboxSize = 256

// Handler processes one inbound message. Implementations own their error
// handling; the router only recovers panics.
type Handler interface {
	Handle(ctx context.Context, msg message.InboundMessage)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg message.InboundMessage)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg message.InboundMessage) {
	f(ctx, msg)
}

// Config holds the configuration for a Router.
type Config struct {
	WorkerCount int
	InboxSize   int
	Handler     Handler
	Logger      *slog.Logger

	// Serialize handles messages of one conversation one at a time.
	// Off by default: concurrent exchanges in a conversation each see the
	// history as it was when they started.
	Serialize bool

	// MaxMessageSize bounds the raw platform payload in bytes.
	// Zero means use the default (1 MiB).
	MaxMessageSize int
}

// withDefaults returns a copy of the config with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Stats is a point-in-time view of router activity.
type Stats struct {
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Dropped   int64 `json:"dropped"`
	Panics    int64 `json:"panics"`
}

// Router is the dispatch layer between channels and the relay. Channels
// submit without blocking; a fixed pool of workers hands each message to
// the Handler.
type Router struct {
	config   Config
	inbox    chan message.InboundMessage
	inboxMu  sync.RWMutex
	laneLock *LaneLock
	pool     *WorkerPool
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *slog.Logger
	stopped  atomic.Bool

	submitted atomic.Int64
	dropped   atomic.Int64
	panics    atomic.Int64
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg Config) (*Router, error) {
	cfg = cfg.withDefaults()

	if cfg.Handler == nil {
		return nil, ErrNoHandler
	}

	return &Router{
		config:   cfg,
		inbox:    make(chan message.InboundMessage, cfg.InboxSize),
		laneLock: NewLaneLock(),
		pool:     NewWorkerPool(cfg.WorkerCount),
		logger:   cfg.Logger,
	}, nil
}

// Start launches the worker pool and begins processing messages.
func (r *Router) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.inboxMu.Lock()
	if r.stopped.Load() {
		r.inboxMu.Unlock()
		cancel()
		r.logger.Warn("router: start ignored, router already stopped")
		return
	}
	r.cancel = cancel
	r.inboxMu.Unlock()

	r.pool.Start(ctx, r.inbox, r.execute)
	r.logger.Info("router: started",
		"workers", r.config.WorkerCount,
		"inbox_size", r.config.InboxSize,
		"serialize", r.config.Serialize,
	)
}

// Submit enqueues an inbound message for processing. It never blocks: if
// the inbox is full, the message is dropped with a warning log.
func (r *Router) Submit(msg message.InboundMessage) error {
	r.inboxMu.RLock()
	defer r.inboxMu.RUnlock()

	if r.stopped.Load() {
		return ErrRouterStopped
	}

	if len(msg.Raw) > 0 {
		if err := security.ValidatePayload(msg.Raw, r.config.MaxMessageSize, 0); err != nil {
			r.logger.Warn("router: payload rejected",
				"size", len(msg.Raw),
				"channel", msg.Channel,
				"error", err,
			)
			return err
		}
	}

	select {
	case r.inbox <- msg:
		r.submitted.Add(1)
		return nil
	default:
		r.dropped.Add(1)
		r.logger.Warn("router: inbox full, message dropped",
			"channel", msg.Channel,
			"message_id", msg.ID,
		)
		return ErrInboxFull
	}
}

// execute runs the handler for one message, serialized per conversation
// when configured. A panic is logged and the worker keeps running.
func (r *Router) execute(ctx context.Context, msg message.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.panics.Add(1)
			r.logger.Error("router: handler panicked",
				"message_id", msg.ID,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
		}
	}()

	if r.config.Serialize {
		if key, ok := LaneKeyFromMessage(msg); ok {
			r.laneLock.Acquire(key)
			defer r.laneLock.Release(key)
		}
	}

	r.config.Handler.Handle(ctx, msg)
}

// Stop gracefully shuts down the router: closes the inbox, lets workers
// drain it, and cancels the handler context.
func (r *Router) Stop(ctx context.Context) {
	r.stopOnce.Do(func() {
		r.logger.Info("router: stopping", "queued", len(r.inbox))

		r.inboxMu.Lock()
		r.stopped.Store(true)
		close(r.inbox)
		cancel := r.cancel
		r.inboxMu.Unlock()

		done := make(chan struct{})
		go func() {
			r.pool.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			r.logger.Warn("router: shutdown deadline reached, cancelling in-flight messages")
		}

		if cancel != nil {
			cancel()
		}
		<-done
		r.logger.Info("router: stopped")
	})
}

// Stats returns current counters.
func (r *Router) Stats() Stats {
	return Stats{
		Queued:    len(r.inbox),
		Submitted: r.submitted.Load(),
		Dropped:   r.dropped.Load(),
		Panics:    r.panics.Load(),
	}
}
