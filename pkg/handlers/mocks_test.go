package handlers

import (
	"context"
	"time"

	"github.com/vaultops/vault-audit-engine/pkg/models"
	"github.com/vaultops/vault-audit-engine/pkg/services"
)

// mockAuditService is a hand-rolled mock for services.AuditService.
type mockAuditService struct {
	loadFunc   func(ctx context.Context, path string) (*models.ContainerSnapshot, error)
	runFunc    func(ctx context.Context, scanned []string) (*services.AuditOutcome, error)
	exportFunc func(ctx context.Context) (string, error)
}

func (m *mockAuditService) LoadSnapshot(ctx context.Context, path string) (*models.ContainerSnapshot, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, path)
	}
	return &models.ContainerSnapshot{ExpectedLabels: map[string]struct{}{}}, nil
}

func (m *mockAuditService) RunAudit(ctx context.Context, scanned []string) (*services.AuditOutcome, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, scanned)
	}
	return &services.AuditOutcome{}, nil
}

func (m *mockAuditService) BuildExport(ctx context.Context) (string, error) {
	if m.exportFunc != nil {
		return m.exportFunc(ctx)
	}
	return "", nil
}

// mockTrackingService is a hand-rolled mock for services.TrackingService.
type mockTrackingService struct {
	getBagFunc       func(ctx context.Context, labelID string) (*models.BagRecord, error)
	listBagsFunc     func(ctx context.Context, limit, offset int) ([]*models.BagRecord, error)
	deleteBagFunc    func(ctx context.Context, labelID string) error
	locationFunc     func(ctx context.Context, carrierLocation string) (*models.LocationTracker, error)
	queryStaleFunc   func(ctx context.Context, carrierLocation string) ([]models.StaleLabel, error)
	labelHistoryFunc func(ctx context.Context, labelID, carrierLocation string) (*models.LabelImportHistory, error)
	listImportsFunc  func(ctx context.Context, carrierLocation string, limit int) ([]*models.ImportBatch, error)
}

func (m *mockTrackingService) RecordScan(ctx context.Context, labelID, carrierLocation string) (*models.BagRecord, error) {
	return &models.BagRecord{LabelID: labelID}, nil
}

func (m *mockTrackingService) RecordImport(ctx context.Context, importDate time.Time, carrierLocation string, labels []string) (*models.ImportOutcome, error) {
	return &models.ImportOutcome{}, nil
}

func (m *mockTrackingService) QueryStale(ctx context.Context, carrierLocation string) ([]models.StaleLabel, error) {
	if m.queryStaleFunc != nil {
		return m.queryStaleFunc(ctx, carrierLocation)
	}
	return nil, nil
}

func (m *mockTrackingService) DurationStats(ctx context.Context, labelIDs []string, carrierLocation string) (map[string]models.LabelDuration, error) {
	return map[string]models.LabelDuration{}, nil
}

func (m *mockTrackingService) GetBag(ctx context.Context, labelID string) (*models.BagRecord, error) {
	if m.getBagFunc != nil {
		return m.getBagFunc(ctx, labelID)
	}
	return &models.BagRecord{LabelID: labelID}, nil
}

func (m *mockTrackingService) ListBags(ctx context.Context, limit, offset int) ([]*models.BagRecord, error) {
	if m.listBagsFunc != nil {
		return m.listBagsFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockTrackingService) BagsByLocation(ctx context.Context, carrierLocation string) ([]*models.BagRecord, error) {
	return nil, nil
}

func (m *mockTrackingService) DeleteBag(ctx context.Context, labelID string) error {
	if m.deleteBagFunc != nil {
		return m.deleteBagFunc(ctx, labelID)
	}
	return nil
}

func (m *mockTrackingService) Stats(ctx context.Context) (*models.TrackerStats, error) {
	return &models.TrackerStats{}, nil
}

func (m *mockTrackingService) LocationStats(ctx context.Context, carrierLocation string) (*models.LocationTracker, error) {
	if m.locationFunc != nil {
		return m.locationFunc(ctx, carrierLocation)
	}
	return nil, nil
}

func (m *mockTrackingService) AllLocationStats(ctx context.Context) ([]*models.LocationTracker, error) {
	return nil, nil
}

func (m *mockTrackingService) LabelHistory(ctx context.Context, labelID, carrierLocation string) (*models.LabelImportHistory, error) {
	if m.labelHistoryFunc != nil {
		return m.labelHistoryFunc(ctx, labelID, carrierLocation)
	}
	return &models.LabelImportHistory{LabelID: labelID}, nil
}

func (m *mockTrackingService) ListImports(ctx context.Context, carrierLocation string, limit int) ([]*models.ImportBatch, error) {
	if m.listImportsFunc != nil {
		return m.listImportsFunc(ctx, carrierLocation, limit)
	}
	return nil, nil
}
