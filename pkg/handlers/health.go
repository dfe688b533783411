package handlers

import (
	"net/http"

	"github.com/datapanel-io/datapanel-engine/pkg/database"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db      *database.DB
	version string
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(db *database.DB, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// RegisterRoutes registers the health endpoints.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
}

// Health reports process liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready reports readiness, including database reachability.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "database_unavailable", "database ping failed")
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
