package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vaultops/vault-audit-engine/pkg/apperrors"
	"github.com/vaultops/vault-audit-engine/pkg/config"
	"github.com/vaultops/vault-audit-engine/pkg/models"
	"github.com/vaultops/vault-audit-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// ContainerUploadResponse for POST /api/container.
type ContainerUploadResponse struct {
	Location     string            `json:"location"`
	Parameters   models.Parameters `json:"parameters"`
	TotalLabels  int               `json:"total_labels"`
	Labels       []string          `json:"labels"`
	Transactions int               `json:"transaction_count"`
}

// AuditRequest for POST /api/audit.
type AuditRequest struct {
	ScannedLabels []string `json:"scanned_labels"`
}

// ============================================================================
// Handler
// ============================================================================

// AuditHandler handles container upload, audit and report export requests.
type AuditHandler struct {
	auditService services.AuditService
	cfg          *config.Config
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(
	auditService services.AuditService,
	cfg *config.Config,
	logger *zap.Logger,
) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		cfg:          cfg,
		logger:       logger,
	}
}

// RegisterRoutes registers the audit handler's routes on the given mux.
func (h *AuditHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/container", h.Upload)
	mux.HandleFunc("POST /api/audit", h.Run)
	mux.HandleFunc("GET /api/export", h.Export)
}

// Upload handles POST /api/container.
// Accepts a multipart .xlsx upload and installs it as the active snapshot.
func (h *AuditHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_upload", "Invalid multipart request"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_upload", "No file part in request"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer file.Close()

	filename := strings.TrimSpace(header.Filename)
	if err := validateUploadName(filename); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_upload", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	dest := filepath.Join(h.cfg.UploadDir,
		fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), filepath.Base(filename)))
	if err := saveUpload(dest, file); err != nil {
		h.logger.Error("Failed to save uploaded workbook",
			zap.String("path", dest),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "upload_failed", "Failed to save uploaded file"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	snapshot, err := h.auditService.LoadSnapshot(r.Context(), dest)
	if err != nil {
		h.logger.Error("Failed to parse container workbook",
			zap.String("path", dest),
			zap.Error(err))
		status := http.StatusInternalServerError
		code := "parse_failed"
		if errors.Is(err, apperrors.ErrMalformedWorkbook) {
			status = http.StatusUnprocessableEntity
			code = "malformed_workbook"
		}
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	labels := snapshot.SortedLabels()
	response := ContainerUploadResponse{
		Location:     snapshot.LocationName,
		Parameters:   snapshot.Parameters,
		TotalLabels:  len(labels),
		Labels:       labels,
		Transactions: len(snapshot.Transactions),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Run handles POST /api/audit.
func (h *AuditHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.ScannedLabels == nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "scanned_labels is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	outcome, err := h.auditService.RunAudit(r.Context(), req.ScannedLabels)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoActiveSnapshot) {
			if err := ErrorResponse(w, http.StatusConflict, "no_active_snapshot", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to run audit", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "audit_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: outcome}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Export handles GET /api/export.
// Streams the report workbook for the most recent audit as an attachment.
func (h *AuditHandler) Export(w http.ResponseWriter, r *http.Request) {
	path, err := h.auditService.BuildExport(r.Context())
	if err != nil {
		if errors.Is(err, apperrors.ErrNoActiveSnapshot) || errors.Is(err, apperrors.ErrNoAuditResult) {
			if err := ErrorResponse(w, http.StatusConflict, "no_audit_result", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to build export", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "export_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// validateUploadName rejects uploads before any bytes hit disk.
func validateUploadName(filename string) error {
	if filename == "" {
		return fmt.Errorf("%w: no file selected", apperrors.ErrInvalidUpload)
	}
	if !strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return fmt.Errorf("%w: only .xlsx workbooks are accepted", apperrors.ErrInvalidUpload)
	}
	return nil
}

func saveUpload(dest string, src io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to write upload file: %w", err)
	}
	return nil
}
