// Package relay turns inbound chat messages into LLM completions and
// sends the replies back, keeping per-conversation history.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/tgrelay/internal/channel"
	ctxengine "github.com/flemzord/tgrelay/internal/context"
	"github.com/flemzord/tgrelay/internal/history"
	"github.com/flemzord/tgrelay/internal/logging"
	"github.com/flemzord/tgrelay/internal/provider"
	"github.com/flemzord/tgrelay/internal/telemetry"
	"github.com/flemzord/tgrelay/pkg/message"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultContextLimit = "5"
)

// Completer produces a reply for a message window. It returns false when
// no reply is available; failures are handled behind this boundary.
type Completer interface {
	Complete(ctx context.Context, messages []provider.LLMMessage, model string) (string, bool)
}

// Replier delivers a reply to the conversation it belongs to.
type Replier interface {
	Send(ctx context.Context, msg message.OutboundMessage) error
}

// Typer is implemented by repliers that can show a typing indicator while
// the completion runs. The indicator stops when ctx is done.
type Typer interface {
	Typing(ctx context.Context, channel string, conversationID int64)
}

// Config holds the orchestrator configuration.
type Config struct {
	SystemPrompt string
	ContextLimit string
	Debug        bool

	// Model overrides the provider's configured model. Empty defers to
	// the provider.
	Model string

	// Chunk splits long replies before sending. The zero value sends the
	// reply as a single message.
	Chunk channel.ChunkConfig

	Logger  *slog.Logger
	Metrics *Metrics
	Sinks   []DebugSink
}

func (c Config) withDefaults() Config {
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.ContextLimit == "" {
		c.ContextLimit = DefaultContextLimit
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Orchestrator handles one inbound message at a time per call and is safe
// for concurrent use. The history it owns lives only in memory.
type Orchestrator struct {
	config    Config
	policy    ctxengine.Policy
	store     *history.Store
	completer Completer
	logger    *slog.Logger
	tracer    trace.Tracer

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewOrchestrator creates an Orchestrator. The context limit is parsed
// once here; an unparseable value keeps the full history and is logged.
func NewOrchestrator(store *history.Store, completer Completer, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	if store == nil {
		store = history.NewStore()
	}

	policy := ctxengine.ParseLimit(cfg.ContextLimit)
	if policy.Fallback() {
		cfg.Logger.Warn("invalid context limit, sending full history",
			"context_limit", cfg.ContextLimit,
		)
	}

	return &Orchestrator{
		config:    cfg,
		policy:    policy,
		store:     store,
		completer: completer,
		logger:    cfg.Logger,
		tracer:    telemetry.Tracer(),
		now:       time.Now,
	}
}

// Policy returns the context limit in effect.
func (o *Orchestrator) Policy() ctxengine.Policy {
	return o.policy
}

// Store returns the history store the orchestrator publishes to.
func (o *Orchestrator) Store() *history.Store {
	return o.store
}

// Handle runs one message through the relay. Messages without a
// conversation ID or text are skipped. On a successful completion the
// exchange is appended to history and the reply is sent through replier.
// On failure history is untouched and nothing is sent. Handle never
// panics.
func (o *Orchestrator) Handle(ctx context.Context, msg message.InboundMessage, replier Replier) (res Result) {
	start := o.now()

	id, hasID := msg.Conversation()
	text, hasText := msg.TextContent()
	if !hasID || !hasText || text == "" {
		o.logger.DebugContext(ctx, "skipping message without conversation or text",
			"message_id", msg.ID,
			"channel", msg.Channel,
			"has_conversation", hasID,
		)
		res = Result{State: StateDone, Skipped: true}
		o.config.Metrics.observeResult(res)
		return res
	}

	ctx = logging.WithLogFields(ctx, logging.LogFields{
		ConversationID: logging.Ptr(id),
		MessageID:      logging.Ptr(msg.ID),
		Channel:        msg.Channel,
	})
	ctx, span := o.tracer.Start(ctx, "relay.handle", trace.WithAttributes(
		attribute.Int64("conversation.id", id),
		attribute.String("message.channel", msg.Channel),
	))
	defer span.End()

	o.logger.InfoContext(ctx, "message received",
		"from", msg.Sender.Name(),
		"text", text,
	)

	defer func() {
		if r := recover(); r != nil {
			o.logger.ErrorContext(ctx, "panic while handling message",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			span.RecordError(fmt.Errorf("relay panic: %v", r))
			res = Result{State: StateFailed}
		}
		if res.State == StateFailed {
			span.SetStatus(codes.Error, "no reply")
		}
		span.SetAttributes(attribute.String("relay.outcome", res.outcome()))
		o.config.Metrics.observeResult(res)
		o.done(ctx, msg, id, text, res, start)
	}()

	turns := history.Get(o.store.Snapshot(), id)
	window := ctxengine.BuildWindow(turns, text, o.policy, o.config.SystemPrompt)
	o.logger.DebugContext(ctx, "context built",
		"state", StateContextBuilt.String(),
		"stored_turns", len(turns),
		"window", len(window),
		"policy", o.policy.String(),
	)

	reply, ok := o.complete(ctx, msg, id, window, replier)
	if !ok {
		return Result{State: StateFailed}
	}

	o.store.Publish(id, text, reply)

	out := message.NewTextMessage(msg.Channel, id, reply)
	out.ReplyToID = msg.PlatformID
	o.send(ctx, replier, out)

	return Result{State: StateSucceeded, Reply: reply}
}

func (o *Orchestrator) complete(ctx context.Context, msg message.InboundMessage, id int64, window []provider.LLMMessage, replier Replier) (string, bool) {
	attrs := []attribute.KeyValue{attribute.Int("llm.messages", len(window))}
	if o.config.Model != "" {
		attrs = append(attrs, attribute.String("llm.model", o.config.Model))
	}
	ctx, span := o.tracer.Start(ctx, "relay.complete", trace.WithAttributes(attrs...))
	defer span.End()

	typingCtx, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	if t, ok := replier.(Typer); ok {
		t.Typing(typingCtx, msg.Channel, id)
	}

	start := o.now()
	reply, ok := o.completer.Complete(ctx, window, o.config.Model)
	o.config.Metrics.observeCompletion(o.now().Sub(start), len(window))

	if !ok {
		span.SetStatus(codes.Error, "completion unavailable")
	}
	return reply, ok
}

func (o *Orchestrator) send(ctx context.Context, replier Replier, out message.OutboundMessage) {
	if replier == nil {
		o.logger.WarnContext(ctx, "no replier, reply dropped")
		return
	}
	for _, chunk := range channel.SplitMessage(out, o.config.Chunk) {
		if err := replier.Send(ctx, chunk); err != nil {
			o.logger.ErrorContext(ctx, "failed to send reply", "error", err)
			return
		}
	}
}

// done emits the debug side channel. It never changes the result.
func (o *Orchestrator) done(ctx context.Context, msg message.InboundMessage, id int64, text string, res Result, start time.Time) {
	if !o.config.Debug {
		return
	}

	ex := Exchange{
		MessageID:      msg.ID,
		Channel:        msg.Channel,
		ConversationID: id,
		Sender:         msg.Sender.Name(),
		Input:          text,
		Output:         res.Reply,
		Succeeded:      res.State == StateSucceeded,
		Timestamp:      o.now(),
		Duration:       o.now().Sub(start),
	}

	o.logger.InfoContext(ctx, "exchange",
		"sender", ex.Sender,
		"input", ex.Input,
		"output", ex.Output,
		"succeeded", ex.Succeeded,
		"timestamp", ex.Timestamp.Format(time.RFC3339),
		"duration", ex.Duration,
	)

	for _, sink := range o.config.Sinks {
		if err := o.record(ctx, sink, ex); err != nil {
			o.config.Metrics.sinkError()
			o.logger.WarnContext(ctx, "debug sink failed", "error", err)
		}
	}
}

func (o *Orchestrator) record(ctx context.Context, sink DebugSink, ex Exchange) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("debug sink panic: %v", r)
		}
	}()
	return sink.Record(ctx, ex)
}
