package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Completer wraps a Provider and reduces each call to an optional reply.
// Failures are logged here and never reach the caller as errors.
type Completer struct {
	provider Provider
	logger   *slog.Logger
	health   *healthTracker
}

// NewCompleter creates a Completer around p. A nil logger discards logs.
func NewCompleter(p Provider, logger *slog.Logger, cfg HealthConfig) *Completer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Completer{
		provider: p,
		logger:   logger,
		health:   newHealthTracker(cfg),
	}
	c.health.onStateChange = func(from, to HealthState) {
		c.logger.Warn("provider health changed", "from", from.String(), "to", to.String())
	}
	return c
}

// Complete sends messages to the provider using model (or the provider's
// configured model when empty). It returns the reply text and true when
// the provider produced a non-empty reply, and ("", false) otherwise.
func (c *Completer) Complete(ctx context.Context, messages []LLMMessage, model string) (reply string, ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("provider panic: %v", r)
			c.health.RecordFailure(err)
			c.logger.Error("completion panicked", "panic", r)
			reply, ok = "", false
		}
	}()

	resp, err := c.provider.Complete(ctx, CompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		c.health.RecordFailure(err)
		c.logger.Error("completion failed",
			"error", err,
			"transient", IsTransient(err),
			"duration", time.Since(start),
		)
		return "", false
	}
	c.health.RecordSuccess()

	if resp.Content == "" {
		c.logger.Warn("completion returned no content",
			"finish_reason", string(resp.FinishReason),
			"duration", time.Since(start),
		)
		return "", false
	}

	c.logger.Debug("completion done",
		"finish_reason", string(resp.FinishReason),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration", time.Since(start),
	)
	return resp.Content, true
}

// Health returns the provider health observed from completion outcomes.
func (c *Completer) Health() HealthReport {
	return c.health.Report()
}

// ModelName returns the model configured on the wrapped provider.
func (c *Completer) ModelName() string {
	return c.provider.ModelName()
}

// Probe runs the provider's active health check when it implements
// HealthChecker. Providers without one report nil.
func (c *Completer) Probe(ctx context.Context) error {
	hc, ok := c.provider.(HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}
