package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vaultops/vault-audit-engine/pkg/models"
	"github.com/vaultops/vault-audit-engine/pkg/repositories"
)

// TrackingService exposes both durable tracking paths: the scan-based bag and
// location records, and the import-based label histories that are
// authoritative for staleness.
type TrackingService interface {
	RecordScan(ctx context.Context, labelID, carrierLocation string) (*models.BagRecord, error)
	RecordImport(ctx context.Context, importDate time.Time, carrierLocation string, labels []string) (*models.ImportOutcome, error)
	QueryStale(ctx context.Context, carrierLocation string) ([]models.StaleLabel, error)
	DurationStats(ctx context.Context, labelIDs []string, carrierLocation string) (map[string]models.LabelDuration, error)

	GetBag(ctx context.Context, labelID string) (*models.BagRecord, error)
	ListBags(ctx context.Context, limit, offset int) ([]*models.BagRecord, error)
	BagsByLocation(ctx context.Context, carrierLocation string) ([]*models.BagRecord, error)
	DeleteBag(ctx context.Context, labelID string) error
	Stats(ctx context.Context) (*models.TrackerStats, error)

	LocationStats(ctx context.Context, carrierLocation string) (*models.LocationTracker, error)
	AllLocationStats(ctx context.Context) ([]*models.LocationTracker, error)

	LabelHistory(ctx context.Context, labelID, carrierLocation string) (*models.LabelImportHistory, error)
	ListImports(ctx context.Context, carrierLocation string, limit int) ([]*models.ImportBatch, error)
}

type trackingService struct {
	bagRepo    repositories.BagRepository
	importRepo repositories.ImportRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewTrackingService creates a new TrackingService.
func NewTrackingService(
	bagRepo repositories.BagRepository,
	importRepo repositories.ImportRepository,
	logger *zap.Logger,
) TrackingService {
	return &trackingService{
		bagRepo:    bagRepo,
		importRepo: importRepo,
		logger:     logger.Named("tracking-service"),
		now:        time.Now,
	}
}

var _ TrackingService = (*trackingService)(nil)

func (s *trackingService) RecordScan(ctx context.Context, labelID, carrierLocation string) (*models.BagRecord, error) {
	bag, err := s.bagRepo.RecordScan(ctx, labelID, carrierLocation, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if bag.IsFirstScan {
		s.logger.Debug("First scan for label",
			zap.String("label_id", labelID),
			zap.String("carrier_location", carrierLocation))
	}
	return bag, nil
}

func (s *trackingService) RecordImport(ctx context.Context, importDate time.Time, carrierLocation string, labels []string) (*models.ImportOutcome, error) {
	outcome, err := s.importRepo.RecordImport(ctx, importDate, carrierLocation, labels, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Recorded import batch",
		zap.String("carrier_location", carrierLocation),
		zap.String("import_date", outcome.ImportDate),
		zap.Int("total_labels", outcome.TotalLabels),
		zap.Int("new_labels", outcome.NewLabels),
		zap.Int("updated_labels", outcome.UpdatedLabels),
		zap.Int("stale_labels", outcome.StaleCount))
	return outcome, nil
}

func (s *trackingService) QueryStale(ctx context.Context, carrierLocation string) ([]models.StaleLabel, error) {
	return s.importRepo.QueryStale(ctx, carrierLocation, s.now())
}

func (s *trackingService) DurationStats(ctx context.Context, labelIDs []string, carrierLocation string) (map[string]models.LabelDuration, error) {
	return s.importRepo.DurationStats(ctx, labelIDs, carrierLocation, s.now())
}

func (s *trackingService) GetBag(ctx context.Context, labelID string) (*models.BagRecord, error) {
	return s.bagRepo.GetByLabel(ctx, labelID)
}

func (s *trackingService) ListBags(ctx context.Context, limit, offset int) ([]*models.BagRecord, error) {
	return s.bagRepo.List(ctx, limit, offset)
}

func (s *trackingService) BagsByLocation(ctx context.Context, carrierLocation string) ([]*models.BagRecord, error) {
	return s.bagRepo.ListByLocation(ctx, carrierLocation)
}

func (s *trackingService) DeleteBag(ctx context.Context, labelID string) error {
	if err := s.bagRepo.Delete(ctx, labelID); err != nil {
		return err
	}
	s.logger.Info("Deleted bag record", zap.String("label_id", labelID))
	return nil
}

func (s *trackingService) Stats(ctx context.Context) (*models.TrackerStats, error) {
	return s.bagRepo.Stats(ctx)
}

func (s *trackingService) LocationStats(ctx context.Context, carrierLocation string) (*models.LocationTracker, error) {
	return s.bagRepo.GetLocation(ctx, carrierLocation)
}

func (s *trackingService) AllLocationStats(ctx context.Context) ([]*models.LocationTracker, error) {
	return s.bagRepo.ListLocations(ctx)
}

func (s *trackingService) LabelHistory(ctx context.Context, labelID, carrierLocation string) (*models.LabelImportHistory, error) {
	return s.importRepo.GetHistory(ctx, labelID, carrierLocation)
}

func (s *trackingService) ListImports(ctx context.Context, carrierLocation string, limit int) ([]*models.ImportBatch, error) {
	return s.importRepo.ListBatches(ctx, carrierLocation, limit)
}
