package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/datapanel-io/datapanel-engine/pkg/models"
	"github.com/datapanel-io/datapanel-engine/pkg/preview"
	"github.com/datapanel-io/datapanel-engine/pkg/services"
)

// SourcesHandler serves the data source registry endpoints, sync
// control, and previews.
type SourcesHandler struct {
	sources      services.SourceService
	orchestrator services.SyncOrchestrator
	previews     *preview.Service
	logger       *zap.Logger
}

// NewSourcesHandler creates a sources handler.
func NewSourcesHandler(
	sources services.SourceService,
	orchestrator services.SyncOrchestrator,
	previews *preview.Service,
	logger *zap.Logger,
) *SourcesHandler {
	return &SourcesHandler{
		sources:      sources,
		orchestrator: orchestrator,
		previews:     previews,
		logger:       logger,
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *SourcesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sources", h.List)
	mux.HandleFunc("POST /api/sources", h.Create)
	mux.HandleFunc("GET /api/sources/{id}", h.Get)
	mux.HandleFunc("PUT /api/sources/{id}", h.Update)
	mux.HandleFunc("DELETE /api/sources/{id}", h.Delete)
	mux.HandleFunc("POST /api/sources/{id}/sync", h.StartSync)
	mux.HandleFunc("GET /api/sources/{id}/sync", h.PollSync)
	mux.HandleFunc("POST /api/sources/{id}/preview", h.Preview)
}

// List returns all sources with display decoration and aggregate stats.
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	listing, err := h.sources.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list sources", zap.Error(err))
		WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, listing)
}

// Create registers a new source.
func (h *SourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateSourceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	src, err := h.sources.Create(r.Context(), input)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, src)
}

// Get returns a single source.
func (h *SourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}

	src, err := h.sources.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, src)
}

// Update applies a partial patch to a source.
func (h *SourcesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}

	var patch models.SourcePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	src, err := h.sources.Update(r.Context(), id, patch)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, src)
}

// Delete removes a source.
func (h *SourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}

	if err := h.sources.Delete(r.Context(), id); err != nil {
		WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StartSync launches a sync run and returns the job handle. The run is
// detached from the request context so it survives the response.
func (h *SourcesHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}

	status, err := h.orchestrator.StartSync(context.WithoutCancel(r.Context()), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusAccepted, status)
}

// PollSync reports the live job for the source.
func (h *SourcesHandler) PollSync(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}

	status, err := h.orchestrator.PollSync(id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, status)
}

// Preview renders a windowed, filtered view of the source's snapshot.
func (h *SourcesHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}

	var spec preview.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	src, err := h.sources.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	result, err := h.previews.Preview(r.Context(), src, spec)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *SourcesHandler) sourceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "source id must be an integer")
		return 0, false
	}
	return id, true
}
