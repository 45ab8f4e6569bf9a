package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/tgrelay/internal/security"
)

// WebhookHandler processes a verified webhook payload. It should return
// quickly; platforms such as Telegram retry slow deliveries.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, source string, body []byte, headers http.Header) error
}

// Verifier authenticates a webhook request before its handler runs.
type Verifier interface {
	Verify(body []byte, headers http.Header) bool
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(body []byte, headers http.Header) bool

// Verify calls f.
func (f VerifierFunc) Verify(body []byte, headers http.Header) bool { return f(body, headers) }

// HMACVerifier checks an "sha256=<hex>" HMAC of the body in the
// X-Signature-256 header.
func HMACVerifier(secret string) Verifier {
	return VerifierFunc(func(body []byte, headers http.Header) bool {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
		return constantTimeEqual(expected, headers.Get("X-Signature-256"))
	})
}

// HeaderTokenVerifier checks that header carries token verbatim. Telegram
// uses X-Telegram-Bot-Api-Secret-Token this way.
func HeaderTokenVerifier(header, token string) Verifier {
	return VerifierFunc(func(_ []byte, headers http.Header) bool {
		return constantTimeEqual(headers.Get(header), token)
	})
}

type webhookEntry struct {
	handler  WebhookHandler
	verifier Verifier
}

// WebhookDispatcher routes POST /webhooks/{source} to registered handlers.
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]webhookEntry
	secrets  map[string]string
	maxBody  int64
	logger   *slog.Logger
}

// NewWebhookDispatcher creates a dispatcher. secrets maps a source to the
// HMAC secret used when its handler registers without a Verifier.
func NewWebhookDispatcher(logger *slog.Logger, secrets map[string]string) *WebhookDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if secrets == nil {
		secrets = map[string]string{}
	}
	return &WebhookDispatcher{
		handlers: make(map[string]webhookEntry),
		secrets:  secrets,
		maxBody:  security.DefaultMaxPayloadSize,
		logger:   logger,
	}
}

// Register adds a handler for source. A nil verifier falls back to the
// configured HMAC secret for source, if any.
func (d *WebhookDispatcher) Register(source string, h WebhookHandler, v Verifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v == nil {
		if secret := d.secrets[source]; secret != "" {
			v = HMACVerifier(secret)
		}
	}
	d.handlers[source] = webhookEntry{handler: h, verifier: v}
}

// Unregister removes the handler for source.
func (d *WebhookDispatcher) Unregister(source string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, source)
}

// ServeHTTP implements http.Handler.
func (d *WebhookDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	source := chi.URLParam(r, "source")
	if source == "" {
		http.Error(w, "missing source", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	d.mu.RLock()
	entry, ok := d.handlers[source]
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("webhook received for unregistered source", "source", source)
		http.Error(w, "unknown source", http.StatusNotFound)
		return
	}

	if entry.verifier != nil && !entry.verifier.Verify(body, r.Header) {
		d.logger.Warn("webhook signature rejected", "source", source)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	if err := entry.handler.HandleWebhook(r.Context(), source, body, r.Header); err != nil {
		d.logger.Error("webhook handler failed", "source", source, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
