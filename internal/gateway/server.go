package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if g.httpStats != nil {
		r.Use(g.httpStats.middleware)
	}

	// Public.
	r.Get("/health", g.handleHealth())
	if g.gatherer != nil {
		r.Handle(g.config.MetricsPath, promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{}))
	}

	// Webhooks carry their own verification per source.
	r.Post("/webhooks/{source}", g.dispatcher.ServeHTTP)

	// Admin endpoints are not mounted without auth.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.logger))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/conversations", g.handleListConversations())
				r.Get("/conversations/{id}", g.handleGetConversation())
				r.Get("/modules", g.handleListModules())
				r.Get("/config", g.handleGetConfig())
			})
		})
	}

	return r
}
