package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vaultops/vault-audit-engine/pkg/apperrors"
	"github.com/vaultops/vault-audit-engine/pkg/config"
	"github.com/vaultops/vault-audit-engine/pkg/models"
	"github.com/vaultops/vault-audit-engine/pkg/services"
)

func newAuditMux(t *testing.T, svc services.AuditService) *http.ServeMux {
	t.Helper()

	cfg := &config.Config{
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1 << 20,
	}
	mux := http.NewServeMux()
	NewAuditHandler(svc, cfg, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestAuditHandler_Upload(t *testing.T) {
	var loadedPath string
	svc := &mockAuditService{
		loadFunc: func(ctx context.Context, path string) (*models.ContainerSnapshot, error) {
			loadedPath = path
			return &models.ContainerSnapshot{
				LocationName:   "Main Vault",
				ExpectedLabels: map[string]struct{}{"LBL001": {}},
				Parameters:     models.Parameters{CarrierLocation: "Denver"},
			}, nil
		},
	}
	mux := newAuditMux(t, svc)

	body, contentType := multipartUpload(t, "container.xlsx", []byte("workbook bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/container", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.FileExists(t, loadedPath)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "Main Vault", data["location"])
	assert.Equal(t, float64(1), data["total_labels"])
}

func TestAuditHandler_Upload_RejectsNonXlsx(t *testing.T) {
	mux := newAuditMux(t, &mockAuditService{})

	body, contentType := multipartUpload(t, "container.csv", []byte("a,b"))
	req := httptest.NewRequest(http.MethodPost, "/api/container", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_upload")
}

func TestAuditHandler_Upload_MissingFilePart(t *testing.T) {
	mux := newAuditMux(t, &mockAuditService{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/container", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditHandler_Upload_MalformedWorkbook(t *testing.T) {
	svc := &mockAuditService{
		loadFunc: func(ctx context.Context, path string) (*models.ContainerSnapshot, error) {
			return nil, apperrors.ErrMalformedWorkbook
		},
	}
	mux := newAuditMux(t, svc)

	body, contentType := multipartUpload(t, "container.xlsx", []byte("garbage"))
	req := httptest.NewRequest(http.MethodPost, "/api/container", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed_workbook")
}

func TestAuditHandler_Run(t *testing.T) {
	svc := &mockAuditService{
		runFunc: func(ctx context.Context, scanned []string) (*services.AuditOutcome, error) {
			assert.Equal(t, []string{"LBL001", "UNKNOWN"}, scanned)
			return &services.AuditOutcome{
				Summary:       models.AuditSummary{TotalScanned: 2, MatchedCount: 1},
				MatchedLabels: []string{"LBL001"},
			}, nil
		},
	}
	mux := newAuditMux(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/audit",
		strings.NewReader(`{"scanned_labels": ["LBL001", "UNKNOWN"]}`))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestAuditHandler_Run_NoSnapshot(t *testing.T) {
	svc := &mockAuditService{
		runFunc: func(ctx context.Context, scanned []string) (*services.AuditOutcome, error) {
			return nil, apperrors.ErrNoActiveSnapshot
		},
	}
	mux := newAuditMux(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/audit",
		strings.NewReader(`{"scanned_labels": []}`))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_active_snapshot")
}

func TestAuditHandler_Run_InvalidBody(t *testing.T) {
	mux := newAuditMux(t, &mockAuditService{})

	req := httptest.NewRequest(http.MethodPost, "/api/audit", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Present-but-null scanned_labels is rejected too.
	req = httptest.NewRequest(http.MethodPost, "/api/audit", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditHandler_Export(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "vault_audit_report_20250115_090000.xlsx")
	require.NoError(t, os.WriteFile(reportPath, []byte("workbook"), 0o644))

	svc := &mockAuditService{
		exportFunc: func(ctx context.Context) (string, error) {
			return reportPath, nil
		},
	}
	mux := newAuditMux(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/export", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "vault_audit_report_20250115_090000.xlsx")
	assert.Equal(t, "workbook", rec.Body.String())
}

func TestAuditHandler_Export_NoResult(t *testing.T) {
	svc := &mockAuditService{
		exportFunc: func(ctx context.Context) (string, error) {
			return "", apperrors.ErrNoAuditResult
		},
	}
	mux := newAuditMux(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/export", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_audit_result")
}
