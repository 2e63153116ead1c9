package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vaultops/vault-audit-engine/pkg/apperrors"
	"github.com/vaultops/vault-audit-engine/pkg/database"
	"github.com/vaultops/vault-audit-engine/pkg/models"
)

// BagRepository provides data access for the scan-based tracking path: per-label
// bag records and per-location aggregate trackers. Scan recording updates both
// inside one transaction.
type BagRepository interface {
	RecordScan(ctx context.Context, labelID, carrierLocation string, at time.Time) (*models.BagRecord, error)
	GetByLabel(ctx context.Context, labelID string) (*models.BagRecord, error)
	List(ctx context.Context, limit, offset int) ([]*models.BagRecord, error)
	ListByLocation(ctx context.Context, carrierLocation string) ([]*models.BagRecord, error)
	Delete(ctx context.Context, labelID string) error
	Stats(ctx context.Context) (*models.TrackerStats, error)
	GetLocation(ctx context.Context, carrierLocation string) (*models.LocationTracker, error)
	ListLocations(ctx context.Context) ([]*models.LocationTracker, error)
}

type bagRepository struct {
	db *database.DB
}

// NewBagRepository creates a new BagRepository.
func NewBagRepository(db *database.DB) BagRepository {
	return &bagRepository{db: db}
}

var _ BagRepository = (*bagRepository)(nil)

const bagColumns = `id, label_id, carrier_location, first_scan_at, last_scan_at,
	       scan_count, created_at, updated_at`

// RecordScan upserts the bag record for one scan event and updates the
// location tracker alongside it. Both writes commit or roll back together.
func (r *bagRepository) RecordScan(ctx context.Context, labelID, carrierLocation string, at time.Time) (*models.BagRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	bag, err := scanBagRow(tx.QueryRow(ctx,
		`SELECT `+bagColumns+` FROM bag_records WHERE label_id = $1`, labelID))
	isFirstScan := false

	switch {
	case err == pgx.ErrNoRows:
		isFirstScan = true
		bag, err = scanBagRow(tx.QueryRow(ctx, `
			INSERT INTO bag_records (label_id, carrier_location, first_scan_at, last_scan_at, scan_count)
			VALUES ($1, $2, $3, $3, 1)
			RETURNING `+bagColumns, labelID, carrierLocation, at))
		if err != nil {
			return nil, fmt.Errorf("failed to create bag record: %w", err)
		}
	case err != nil:
		return nil, err
	default:
		bag, err = scanBagRow(tx.QueryRow(ctx, `
			UPDATE bag_records
			SET scan_count = scan_count + 1, last_scan_at = $2, updated_at = now()
			WHERE label_id = $1
			RETURNING `+bagColumns, labelID, at))
		if err != nil {
			return nil, fmt.Errorf("failed to update bag record: %w", err)
		}
	}

	if err := upsertLocationTracker(ctx, tx, carrierLocation, models.DateOnly(at), isFirstScan); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	bag.IsFirstScan = isFirstScan
	return bag, nil
}

// upsertLocationTracker initializes or advances the per-location counters for
// one scan event. Days tracked is last scan date minus first plus one.
func upsertLocationTracker(ctx context.Context, tx pgx.Tx, carrierLocation string, today time.Time, isNewBag bool) error {
	var firstScanDate time.Time
	err := tx.QueryRow(ctx,
		`SELECT first_scan_date FROM location_trackers WHERE carrier_location = $1`,
		carrierLocation).Scan(&firstScanDate)

	if err == pgx.ErrNoRows {
		uniqueBags := 0
		if isNewBag {
			uniqueBags = 1
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO location_trackers (carrier_location, first_scan_date, last_scan_date,
			                               total_days_tracked, total_unique_bags, total_scans)
			VALUES ($1, $2, $2, 1, $3, 1)`, carrierLocation, today, uniqueBags)
		if err != nil {
			return fmt.Errorf("failed to create location tracker: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query location tracker: %w", err)
	}

	uniqueIncrement := 0
	if isNewBag {
		uniqueIncrement = 1
	}
	_, err = tx.Exec(ctx, `
		UPDATE location_trackers
		SET last_scan_date = $2,
		    total_days_tracked = $3,
		    total_unique_bags = total_unique_bags + $4,
		    total_scans = total_scans + 1,
		    updated_at = now()
		WHERE carrier_location = $1`,
		carrierLocation, today, models.DaysBetween(firstScanDate, today)+1, uniqueIncrement)
	if err != nil {
		return fmt.Errorf("failed to update location tracker: %w", err)
	}
	return nil
}

func (r *bagRepository) GetByLabel(ctx context.Context, labelID string) (*models.BagRecord, error) {
	bag, err := scanBagRow(r.db.QueryRow(ctx,
		`SELECT `+bagColumns+` FROM bag_records WHERE label_id = $1`, labelID))
	if err == pgx.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	return bag, err
}

func (r *bagRepository) List(ctx context.Context, limit, offset int) ([]*models.BagRecord, error) {
	query := `SELECT ` + bagColumns + ` FROM bag_records ORDER BY first_scan_at DESC`
	args := []any{}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bag records: %w", err)
	}
	defer rows.Close()

	return collectBags(rows)
}

func (r *bagRepository) ListByLocation(ctx context.Context, carrierLocation string) ([]*models.BagRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+bagColumns+` FROM bag_records WHERE carrier_location = $1 ORDER BY first_scan_at DESC`,
		carrierLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to query bag records: %w", err)
	}
	defer rows.Close()

	return collectBags(rows)
}

func (r *bagRepository) Delete(ctx context.Context, labelID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM bag_records WHERE label_id = $1`, labelID)
	if err != nil {
		return fmt.Errorf("failed to delete bag record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *bagRepository) Stats(ctx context.Context) (*models.TrackerStats, error) {
	var stats models.TrackerStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(scan_count), 0) FROM bag_records`).
		Scan(&stats.TotalUniqueBags, &stats.TotalScans)
	if err != nil {
		return nil, fmt.Errorf("failed to query bag stats: %w", err)
	}
	return &stats, nil
}

func (r *bagRepository) GetLocation(ctx context.Context, carrierLocation string) (*models.LocationTracker, error) {
	tracker, err := scanTrackerRow(r.db.QueryRow(ctx, `
		SELECT id, carrier_location, first_scan_date, last_scan_date,
		       total_days_tracked, total_unique_bags, total_scans, created_at, updated_at
		FROM location_trackers WHERE carrier_location = $1`, carrierLocation))
	if err == pgx.ErrNoRows {
		return nil, nil // No tracker yet for this location
	}
	return tracker, err
}

func (r *bagRepository) ListLocations(ctx context.Context) ([]*models.LocationTracker, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, carrier_location, first_scan_date, last_scan_date,
		       total_days_tracked, total_unique_bags, total_scans, created_at, updated_at
		FROM location_trackers ORDER BY carrier_location`)
	if err != nil {
		return nil, fmt.Errorf("failed to query location trackers: %w", err)
	}
	defer rows.Close()

	var trackers []*models.LocationTracker
	for rows.Next() {
		tracker, err := scanTrackerRow(rows)
		if err != nil {
			return nil, err
		}
		trackers = append(trackers, tracker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating location trackers: %w", err)
	}
	return trackers, nil
}

func collectBags(rows pgx.Rows) ([]*models.BagRecord, error) {
	var bags []*models.BagRecord
	for rows.Next() {
		bag, err := scanBagRow(rows)
		if err != nil {
			return nil, err
		}
		bags = append(bags, bag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bag records: %w", err)
	}
	return bags, nil
}

func scanBagRow(row pgx.Row) (*models.BagRecord, error) {
	var b models.BagRecord
	err := row.Scan(
		&b.ID,
		&b.LabelID,
		&b.CarrierLocation,
		&b.FirstScanAt,
		&b.LastScanAt,
		&b.ScanCount,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan bag record: %w", err)
	}
	return &b, nil
}

func scanTrackerRow(row pgx.Row) (*models.LocationTracker, error) {
	var t models.LocationTracker
	err := row.Scan(
		&t.ID,
		&t.CarrierLocation,
		&t.FirstScanDate,
		&t.LastScanDate,
		&t.TotalDaysTracked,
		&t.TotalUniqueBags,
		&t.TotalScans,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan location tracker: %w", err)
	}
	return &t, nil
}
