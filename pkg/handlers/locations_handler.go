package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vaultops/vault-audit-engine/pkg/models"
	"github.com/vaultops/vault-audit-engine/pkg/services"
)

// LocationListResponse for GET /api/locations/stats.
type LocationListResponse struct {
	Locations []*models.LocationTracker `json:"locations"`
	Total     int                       `json:"total"`
}

// LocationsHandler handles location tracker HTTP requests.
type LocationsHandler struct {
	tracking services.TrackingService
	logger   *zap.Logger
}

// NewLocationsHandler creates a new locations handler.
func NewLocationsHandler(tracking services.TrackingService, logger *zap.Logger) *LocationsHandler {
	return &LocationsHandler{
		tracking: tracking,
		logger:   logger,
	}
}

// RegisterRoutes registers the locations handler's routes on the given mux.
func (h *LocationsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/locations/stats", h.ListStats)
	mux.HandleFunc("GET /api/locations/{location}/stats", h.GetStats)
}

// ListStats handles GET /api/locations/stats.
func (h *LocationsHandler) ListStats(w http.ResponseWriter, r *http.Request) {
	locations, err := h.tracking.AllLocationStats(r.Context())
	if err != nil {
		h.logger.Error("Failed to list location stats", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "location_stats_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := LocationListResponse{Locations: locations, Total: len(locations)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetStats handles GET /api/locations/{location}/stats.
func (h *LocationsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	location := r.PathValue("location")

	stats, err := h.tracking.LocationStats(r.Context(), location)
	if err != nil {
		h.logger.Error("Failed to get location stats",
			zap.String("carrier_location", location),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "location_stats_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if stats == nil {
		if err := ErrorResponse(w, http.StatusNotFound, "location_not_found", "No tracker for location"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
