// Package openaicompat provides an OpenAI-compatible LLM provider module.
// It targets Groq by default and works with any API that implements the
// OpenAI chat completions interface via a configurable base_url.
package openaicompat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/provider"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Provider is an OpenAI-compatible LLM provider backed by openai-go.
type Provider struct {
	config Config
	client openai.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai_compatible",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return fmt.Errorf("provider.openai_compatible: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. It builds the SDK client and
// registers the provider as the relay's completion backend.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.config.defaults()
	p.logger = ctx.Logger
	p.client = newClient(p.config)
	ctx.RegisterService(provider.ServiceName, p)
	return nil
}

// newClient builds the SDK client. SDK retries are disabled: a failed
// completion yields no reply and is not retried.
func newClient(cfg Config) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL + "/"),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	return openai.NewClient(opts...)
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// Complete implements provider.Provider. The request model overrides the
// configured one when set. An empty choice list yields an empty response.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: convertMessages(req.Messages),
	}
	if n := firstPositive(req.MaxTokens, p.config.MaxTokens); n > 0 {
		params.MaxTokens = openai.Int(int64(n))
	}
	if t := req.Temperature; t != nil {
		params.Temperature = openai.Float(*t)
	} else if t := p.config.Temperature; t != nil {
		params.Temperature = openai.Float(*t)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.CompletionResponse{}, mapError(err)
	}

	p.logger.DebugContext(ctx, "chat completion done",
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
		"choices", len(resp.Choices),
	)

	return parseResponse(resp), nil
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// HealthCheck implements provider.HealthChecker. It lists models, which
// exercises the key without spending tokens.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("provider.openai_compatible: health check: %w", mapError(err))
	}
	return nil
}

func convertMessages(msgs []provider.LLMMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case provider.MessageRoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case provider.MessageRoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func parseResponse(resp *openai.ChatCompletion) provider.CompletionResponse {
	out := provider.CompletionResponse{
		Usage: provider.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Content = choice.Message.Content
	out.FinishReason = mapFinishReason(string(choice.FinishReason))
	return out
}

func mapFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "length":
		return provider.FinishReasonLength
	case "content_filter":
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReasonStop
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

// Compile-time interface assertions.
var (
	_ core.Module            = (*Provider)(nil)
	_ core.Configurable      = (*Provider)(nil)
	_ core.Provisioner       = (*Provider)(nil)
	_ core.Validator         = (*Provider)(nil)
	_ provider.Provider      = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
)
