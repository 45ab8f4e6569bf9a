package gateway

import (
	"net/http"

	"github.com/flemzord/tgrelay/internal/history"
	"github.com/flemzord/tgrelay/internal/provider"
	"github.com/flemzord/tgrelay/internal/router"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string                 `json:"status"` // "ok" or "degraded"
	History  *history.Stats         `json:"history,omitempty"`
	Router   *router.Stats          `json:"router,omitempty"`
	Provider *provider.HealthReport `json:"provider,omitempty"`
}

// handleHealth serves GET /health. It answers 503 once the provider has
// been reported down.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if g.history != nil {
			stats := g.history.Stats()
			resp.History = &stats
		}
		if g.router != nil {
			stats := g.router.Stats()
			resp.Router = &stats
		}
		if g.health != nil {
			report := g.health.Health()
			resp.Provider = &report
			if report.State == provider.StateDown.String() {
				resp.Status = "degraded"
			}
		}

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
