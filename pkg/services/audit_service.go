package services

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vaultops/vault-audit-engine/pkg/apperrors"
	"github.com/vaultops/vault-audit-engine/pkg/audit"
	"github.com/vaultops/vault-audit-engine/pkg/export"
	"github.com/vaultops/vault-audit-engine/pkg/ingest"
	"github.com/vaultops/vault-audit-engine/pkg/models"
)

// AuditOutcome is the full result of one audit run: the reconciliation itself
// plus the tracking side effects that were committed along with it.
type AuditOutcome struct {
	Summary            models.AuditSummary          `json:"summary"`
	MatchedLabels      []string                     `json:"matched_labels"`
	UnmatchedLabels    []string                     `json:"unmatched_labels"`
	ExpectedNotScanned []string                     `json:"expected_not_scanned"`
	BagRecords         map[string]*models.BagRecord `json:"bag_records"`
	LocationStats      *models.LocationTracker      `json:"location_stats"`
	ImportOutcome      *models.ImportOutcome        `json:"import_stats"`
}

// AuditService owns the single active audit session: the current container
// snapshot and the most recent reconciliation result. A new upload replaces
// the snapshot atomically; all session access goes through one mutex.
type AuditService interface {
	// LoadSnapshot parses a workbook and installs it as the active snapshot.
	// On parse failure the previous snapshot stays active and untouched.
	LoadSnapshot(ctx context.Context, path string) (*models.ContainerSnapshot, error)

	// RunAudit reconciles the scanned labels against the active snapshot and
	// commits the tracking side effects. A persistence failure does not void
	// the reconciliation: the comparison is still returned, with the failed
	// side effect logged and absent from the outcome.
	RunAudit(ctx context.Context, scanned []string) (*AuditOutcome, error)

	// BuildExport assembles the report workbook for the most recent audit and
	// returns its file path.
	BuildExport(ctx context.Context) (string, error)
}

type auditService struct {
	tracking  TrackingService
	exportDir string
	logger    *zap.Logger

	mu         sync.Mutex
	snapshot   *models.ContainerSnapshot
	lastResult *models.AuditResult
}

// NewAuditService creates a new AuditService writing reports to exportDir.
func NewAuditService(tracking TrackingService, exportDir string, logger *zap.Logger) AuditService {
	return &auditService{
		tracking:  tracking,
		exportDir: exportDir,
		logger:    logger.Named("audit-service"),
	}
}

var _ AuditService = (*auditService)(nil)

func (s *auditService) LoadSnapshot(ctx context.Context, path string) (*models.ContainerSnapshot, error) {
	snapshot, err := ingest.ParseContainerFile(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.lastResult = nil
	s.mu.Unlock()

	s.logger.Info("Loaded container snapshot",
		zap.String("location", snapshot.LocationName),
		zap.String("carrier_location", snapshot.Parameters.CarrierLocation),
		zap.Int("expected_labels", len(snapshot.ExpectedLabels)))
	return snapshot, nil
}

func (s *auditService) RunAudit(ctx context.Context, scanned []string) (*AuditOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return nil, apperrors.ErrNoActiveSnapshot
	}
	snapshot := s.snapshot

	result := audit.Reconcile(snapshot.ExpectedLabels, scanned)
	s.lastResult = result

	outcome := &AuditOutcome{
		Summary:            audit.Summarize(len(snapshot.ExpectedLabels), result),
		MatchedLabels:      models.SortedSet(result.MatchedLabels),
		UnmatchedLabels:    models.SortedSet(result.UnmatchedLabels),
		ExpectedNotScanned: models.SortedSet(result.ExpectedNotScanned),
		BagRecords:         map[string]*models.BagRecord{},
	}

	// Persistence failures below are isolated from the comparison: the audit
	// result is returned either way.
	importOutcome, err := s.tracking.RecordImport(ctx,
		snapshot.Parameters.CreatedAtDate,
		snapshot.Parameters.CarrierLocation,
		snapshot.SortedLabels())
	if err != nil {
		s.logger.Error("Failed to record import batch", zap.Error(err))
	} else {
		outcome.ImportOutcome = importOutcome
	}

	for _, label := range scanned {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		bag, err := s.tracking.RecordScan(ctx, label, snapshot.Parameters.CarrierLocation)
		if err != nil {
			s.logger.Error("Failed to record scan",
				zap.String("label_id", label),
				zap.Error(err))
			continue
		}
		outcome.BagRecords[label] = bag
	}

	stats, err := s.tracking.LocationStats(ctx, snapshot.Parameters.CarrierLocation)
	if err != nil {
		s.logger.Error("Failed to load location stats", zap.Error(err))
	} else {
		outcome.LocationStats = stats
	}

	return outcome, nil
}

func (s *auditService) BuildExport(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return "", apperrors.ErrNoActiveSnapshot
	}
	if s.lastResult == nil {
		return "", apperrors.ErrNoAuditResult
	}

	location := s.snapshot.Parameters.CarrierLocation

	stats, err := s.tracking.LocationStats(ctx, location)
	if err != nil {
		return "", err
	}
	staleLabels, err := s.tracking.QueryStale(ctx, location)
	if err != nil {
		return "", err
	}
	// Import-based durations supersede the legacy per-bag duration map.
	durations, err := s.tracking.DurationStats(ctx, s.snapshot.SortedLabels(), location)
	if err != nil {
		return "", err
	}

	info := export.ReportInfo{
		Location:      s.snapshot.LocationName,
		Carrier:       s.snapshot.Parameters.Carrier,
		CreatedAt:     s.snapshot.Parameters.CreatedAt,
		CreatedBy:     s.snapshot.Parameters.CreatedBy,
		LocationStats: stats,
	}

	path, err := export.WriteReport(s.exportDir, s.lastResult, info, durations, staleLabels)
	if err != nil {
		return "", err
	}

	s.logger.Info("Wrote audit report", zap.String("path", path))
	return path, nil
}
