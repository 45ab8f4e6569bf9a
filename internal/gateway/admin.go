// Package gateway serves the relay's HTTP surface: health, Prometheus
// metrics, platform webhooks, and an authenticated admin API. It binds
// to loopback by default and follows the module system pattern.
package gateway

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/history"
)

// conversationJSON summarizes one stored conversation.
type conversationJSON struct {
	ID    int64 `json:"id"`
	Turns int   `json:"turns"`
}

// handleListConversations lists conversation IDs with their turn counts.
func (g *Gateway) handleListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := []conversationJSON{}
		if g.history != nil {
			snap := g.history.Snapshot()
			for _, id := range snap.IDs() {
				out = append(out, conversationJSON{ID: id, Turns: len(history.Get(snap, id))})
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// turnJSON is one stored turn.
type turnJSON struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// handleGetConversation returns the stored turns of one conversation.
func (g *Gateway) handleGetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid conversation id", http.StatusBadRequest)
			return
		}
		if g.history == nil {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}

		turns := history.Get(g.history.Snapshot(), id)
		if len(turns) == 0 {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}

		out := make([]turnJSON, len(turns))
		for i, t := range turns {
			out[i] = turnJSON{Role: string(t.Role), Content: t.Content}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// handleListModules lists the modules compiled into the binary.
func (g *Gateway) handleListModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// secretPattern matches keys that likely hold secrets.
var secretPattern = regexp.MustCompile(`(?i)(secret|token|password|key|pass)`)

// handleGetConfig returns the loaded config file with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			http.Error(w, "config path not set", http.StatusServiceUnavailable)
			return
		}

		raw, err := config.LoadRaw(g.configPath)
		if err != nil {
			g.logger.Error("gateway: loading config", "error", err)
			http.Error(w, "failed to load config", http.StatusInternalServerError)
			return
		}

		redactSecrets(raw)
		writeJSON(w, http.StatusOK, raw)
	}
}

// redactSecrets walks m and masks string values whose keys look secret.
func redactSecrets(m map[string]any) {
	for k, v := range m {
		if secretPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = "***REDACTED***"
			}
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			redactSecrets(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					redactSecrets(sub)
				}
			}
		}
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
