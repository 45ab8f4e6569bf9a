package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/channel"
	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/gateway"
	"github.com/flemzord/tgrelay/pkg/message"
)

// ModuleID is the registered module and channel name.
const ModuleID = "channel.telegram"

// webhookSource is the gateway path segment: POST /webhooks/telegram.
const webhookSource = "telegram"

func init() {
	core.RegisterModule(&Telegram{})
}

// Compile-time interface guards.
var (
	_ channel.Channel        = (*Telegram)(nil)
	_ channel.TypingChannel  = (*Telegram)(nil)
	_ gateway.WebhookHandler = (*WebhookReceiver)(nil)
	_ core.Configurable      = (*Telegram)(nil)
	_ core.Provisioner       = (*Telegram)(nil)
	_ core.Validator         = (*Telegram)(nil)
	_ core.Starter           = (*Telegram)(nil)
	_ core.Stopper           = (*Telegram)(nil)
)

// Telegram implements the Telegram Bot API channel.
type Telegram struct {
	config  Config
	client  *Client
	logger  *slog.Logger
	inbox   func(message.InboundMessage) error
	botUser *User
	appCtx  *core.AppContext

	// Set during Start() depending on mode.
	poller   *Poller
	webhooks *gateway.WebhookDispatcher
}

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Telegram{} },
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.config.defaults()
	t.appCtx = ctx
	t.logger = ctx.Logger
	t.client = NewClient(t.config.Token, t.config.APIURL, t.config.RequestTimeout)
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	if t.config.Token == "" {
		return errors.New("telegram: token is required")
	}
	switch t.config.Mode {
	case ModePolling, ModeWebhook:
	default:
		return fmt.Errorf("telegram: invalid mode %q (must be %q or %q)", t.config.Mode, ModePolling, ModeWebhook)
	}
	if t.config.Mode == ModeWebhook && t.config.WebhookURL == "" {
		return errors.New("telegram: webhook_url is required when mode is \"webhook\"")
	}
	return t.config.validate()
}

// Start implements core.Starter. It checks the bot token with getMe, then
// starts either polling or webhook mode.
func (t *Telegram) Start() error {
	if t.inbox == nil {
		return errors.New("telegram: inbox not set, call SetInbox before Start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.config.RequestTimeout)
	defer cancel()

	user, err := t.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	t.botUser = user
	t.logger.Info("telegram bot authenticated",
		"id", user.ID,
		"username", user.Username,
	)

	handler := &updateHandler{
		inbox:       t.inbox,
		logger:      t.logger,
		channelName: ModuleID,
	}

	switch t.config.Mode {
	case ModePolling:
		// A webhook left over from an earlier run makes getUpdates fail.
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("telegram: deleteWebhook before polling failed", "error", err)
		}
		t.poller = NewPoller(t.client, handler, t.logger, t.config)
		t.poller.Start()
		t.logger.Info("telegram polling started",
			"timeout", t.config.PollingTimeout,
		)

	case ModeWebhook:
		if t.config.WebhookSecret == "" {
			t.logger.Warn("telegram webhook running without webhook_secret; anyone can post updates")
		}
		if err := t.registerWebhook(handler); err != nil {
			return err
		}

		if err := t.client.SetWebhook(ctx, SetWebhookRequest{
			URL:            t.config.WebhookURL,
			SecretToken:    t.config.WebhookSecret,
			AllowedUpdates: t.config.AllowedUpdates,
		}); err != nil {
			t.webhooks.Unregister(webhookSource)
			return fmt.Errorf("telegram: setWebhook failed: %w", err)
		}
		t.logger.Info("telegram webhook configured",
			"url", t.config.WebhookURL,
		)
	}

	return nil
}

// registerWebhook resolves the gateway webhook dispatcher from the service
// registry and registers a WebhookReceiver for the telegram source.
func (t *Telegram) registerWebhook(handler *updateHandler) error {
	svc, ok := t.appCtx.GetService(gateway.ServiceWebhooks)
	if !ok {
		return fmt.Errorf("telegram: %s service not found (is the gateway module loaded?)", gateway.ServiceWebhooks)
	}

	dispatcher, ok := svc.(*gateway.WebhookDispatcher)
	if !ok {
		return fmt.Errorf("telegram: %s is not a *gateway.WebhookDispatcher", gateway.ServiceWebhooks)
	}

	var verifier gateway.Verifier
	if t.config.WebhookSecret != "" {
		verifier = gateway.HeaderTokenVerifier(SecretTokenHeader, t.config.WebhookSecret)
	}
	dispatcher.Register(webhookSource, NewWebhookReceiver(handler), verifier)
	t.webhooks = dispatcher
	return nil
}

// Stop implements core.Stopper.
func (t *Telegram) Stop(ctx context.Context) error {
	t.logger.Info("telegram channel stopping")

	switch t.config.Mode {
	case ModePolling:
		if t.poller != nil {
			t.poller.Stop()
		}
	case ModeWebhook:
		if t.webhooks != nil {
			t.webhooks.Unregister(webhookSource)
		}
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("telegram: failed to delete webhook on shutdown", "error", err)
		}
	}

	return nil
}

// Send implements channel.Channel.
func (t *Telegram) Send(ctx context.Context, msg message.OutboundMessage) error {
	return t.sendOutbound(ctx, msg)
}

// SetInbox implements channel.Channel.
func (t *Telegram) SetInbox(fn func(msg message.InboundMessage) error) {
	t.inbox = fn
}

// SendTyping implements channel.TypingChannel.
func (t *Telegram) SendTyping(ctx context.Context, conversationID int64) error {
	return t.client.SendChatAction(ctx, conversationID, "typing")
}

// BotUser returns the account resolved by getMe, or nil before Start.
func (t *Telegram) BotUser() *User {
	return t.botUser
}
