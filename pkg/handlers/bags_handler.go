package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vaultops/vault-audit-engine/pkg/apperrors"
	"github.com/vaultops/vault-audit-engine/pkg/models"
	"github.com/vaultops/vault-audit-engine/pkg/services"
)

// BagListResponse for GET /api/bags.
type BagListResponse struct {
	Bags  []*models.BagRecord `json:"bags"`
	Total int                 `json:"total"`
}

// BagsHandler handles bag record HTTP requests.
type BagsHandler struct {
	tracking services.TrackingService
	logger   *zap.Logger
}

// NewBagsHandler creates a new bags handler.
func NewBagsHandler(tracking services.TrackingService, logger *zap.Logger) *BagsHandler {
	return &BagsHandler{
		tracking: tracking,
		logger:   logger,
	}
}

// RegisterRoutes registers the bags handler's routes on the given mux.
func (h *BagsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/bags", h.List)
	mux.HandleFunc("GET /api/bags/{label}", h.Get)
	mux.HandleFunc("DELETE /api/bags/{label}", h.Delete)
	mux.HandleFunc("GET /api/bags/location/{location}", h.ListByLocation)
	mux.HandleFunc("GET /api/stats", h.Stats)
}

// List handles GET /api/bags with optional limit and offset query parameters.
func (h *BagsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	bags, err := h.tracking.ListBags(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list bags", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_bags_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := BagListResponse{Bags: bags, Total: len(bags)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/bags/{label}.
func (h *BagsHandler) Get(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")

	bag, err := h.tracking.GetBag(r.Context(), label)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "bag_not_found", "No record for label"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get bag",
			zap.String("label_id", label),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_bag_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: bag}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/bags/{label}.
func (h *BagsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")

	if err := h.tracking.DeleteBag(r.Context(), label); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "bag_not_found", "No record for label"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to delete bag",
			zap.String("label_id", label),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "delete_bag_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "deleted"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListByLocation handles GET /api/bags/location/{location}.
func (h *BagsHandler) ListByLocation(w http.ResponseWriter, r *http.Request) {
	location := r.PathValue("location")

	bags, err := h.tracking.BagsByLocation(r.Context(), location)
	if err != nil {
		h.logger.Error("Failed to list bags by location",
			zap.String("carrier_location", location),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_bags_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := BagListResponse{Bags: bags, Total: len(bags)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Stats handles GET /api/stats.
func (h *BagsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tracking.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to load tracker stats", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "stats_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
