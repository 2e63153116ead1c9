package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vaultops/vault-audit-engine/pkg/apperrors"
	"github.com/vaultops/vault-audit-engine/pkg/models"
	"github.com/vaultops/vault-audit-engine/pkg/services"
)

// ImportListResponse for GET /api/imports.
type ImportListResponse struct {
	Imports []*models.ImportBatch `json:"imports"`
	Total   int                   `json:"total"`
}

// StaleListResponse for GET /api/stale.
type StaleListResponse struct {
	StaleLabels []models.StaleLabel `json:"stale_labels"`
	Total       int                 `json:"total"`
}

// TrackingHandler handles import history HTTP requests.
type TrackingHandler struct {
	tracking services.TrackingService
	logger   *zap.Logger
}

// NewTrackingHandler creates a new tracking handler.
func NewTrackingHandler(tracking services.TrackingService, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{
		tracking: tracking,
		logger:   logger,
	}
}

// RegisterRoutes registers the tracking handler's routes on the given mux.
func (h *TrackingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/imports", h.ListImports)
	mux.HandleFunc("GET /api/labels/{label}/history", h.LabelHistory)
	mux.HandleFunc("GET /api/stale", h.ListStale)
}

// ListImports handles GET /api/imports with optional location and limit query
// parameters.
func (h *TrackingHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	imports, err := h.tracking.ListImports(r.Context(), location, limit)
	if err != nil {
		h.logger.Error("Failed to list imports", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_imports_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ImportListResponse{Imports: imports, Total: len(imports)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// LabelHistory handles GET /api/labels/{label}/history with an optional
// location query parameter.
func (h *TrackingHandler) LabelHistory(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")
	location := r.URL.Query().Get("location")

	history, err := h.tracking.LabelHistory(r.Context(), label, location)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "history_not_found", "No import history for label"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get label history",
			zap.String("label_id", label),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "label_history_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: history}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListStale handles GET /api/stale with an optional location query parameter.
func (h *TrackingHandler) ListStale(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")

	stale, err := h.tracking.QueryStale(r.Context(), location)
	if err != nil {
		h.logger.Error("Failed to query stale labels", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "query_stale_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := StaleListResponse{StaleLabels: stale, Total: len(stale)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
