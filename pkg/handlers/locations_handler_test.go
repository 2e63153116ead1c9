package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vaultops/vault-audit-engine/pkg/models"
)

func TestLocationsHandler_GetStats(t *testing.T) {
	svc := &mockTrackingService{
		locationFunc: func(ctx context.Context, carrierLocation string) (*models.LocationTracker, error) {
			assert.Equal(t, "Denver Downtown", carrierLocation)
			return &models.LocationTracker{CarrierLocation: carrierLocation, TotalScans: 42}, nil
		},
	}
	mux := http.NewServeMux()
	NewLocationsHandler(svc, zap.NewNop()).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/locations/Denver%20Downtown/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(42), data["total_scans"])
}

func TestLocationsHandler_GetStats_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	NewLocationsHandler(&mockTrackingService{}, zap.NewNop()).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/locations/Nowhere/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "location_not_found")
}
