package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/tgrelay/internal/history"
	"github.com/flemzord/tgrelay/internal/provider"
	"github.com/flemzord/tgrelay/internal/router"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime   float64                `json:"uptime_seconds"`
	Channels []string               `json:"channels"`
	History  history.Stats          `json:"history"`
	Router   router.Stats           `json:"router"`
	Provider *provider.HealthReport `json:"provider,omitempty"`
}

func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:   time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			Channels: []string{},
		}
		if g.channels != nil {
			resp.Channels = g.channels.Channels()
		}
		if g.history != nil {
			resp.History = g.history.Stats()
		}
		if g.router != nil {
			resp.Router = g.router.Stats()
		}
		if g.health != nil {
			report := g.health.Health()
			resp.Provider = &report
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
