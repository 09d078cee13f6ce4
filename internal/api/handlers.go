package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/crossbrowse/internal/agent"
	"github.com/shehryarbajwa/crossbrowse/internal/runner"
)

// ProgressSource reports the state of the running analysis
type ProgressSource interface {
	Progress() runner.Progress
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	agents   *agent.Controller
	progress ProgressSource
}

// NewHandler creates a new HTTP handler
func NewHandler(agents *agent.Controller, progress ProgressSource) *Handler {
	return &Handler{
		agents:   agents,
		progress: progress,
	}
}

// ServeAgent handles GET /firefox-agent/{agentId}: the start page and the websocket upgrade
func (h *Handler) ServeAgent(w http.ResponseWriter, r *http.Request) {
	h.agents.ServeAgent(w, r, mux.Vars(r)["agentId"])
}

// GetProgress handles GET /v1/progress
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.progress.Progress())
}

// GetAgents handles GET /v1/agents
func (h *Handler) GetAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"awaiting": h.agents.Awaiting(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
