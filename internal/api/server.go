package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shehryarbajwa/crossbrowse/internal/agent"
	"github.com/shehryarbajwa/crossbrowse/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes(connectLimiter *ratelimit.Limiter) *mux.Router {
	r := mux.NewRouter()

	// Agent rendezvous (rate limited per remote address)
	agents := r.PathPrefix("/" + agent.PathPrefix).Subrouter()
	if connectLimiter != nil {
		agents.Use(RateLimitMiddleware(connectLimiter))
	}
	agents.HandleFunc("/{agentId}", h.ServeAgent).Methods("GET")

	// API v1 routes
	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/progress", h.GetProgress).Methods("GET")
	api.HandleFunc("/agents", h.GetAgents).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}
