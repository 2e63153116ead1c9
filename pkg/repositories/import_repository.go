package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vaultops/vault-audit-engine/pkg/apperrors"
	"github.com/vaultops/vault-audit-engine/pkg/database"
	"github.com/vaultops/vault-audit-engine/pkg/models"
)

// ImportRepository provides data access for the import-based tracking path:
// import batches and per-(label, location) import histories. This path is
// authoritative for the staleness determination.
type ImportRepository interface {
	// RecordImport stores one import batch and folds every label into its
	// history inside a single transaction: either the whole batch commits or
	// none of it does. Replaying the same (date, location, labels) batch is a
	// no-op on the histories. The outcome carries the labels that have been
	// in the vault for StaleThresholdDays or more, measured against today.
	RecordImport(ctx context.Context, importDate time.Time, carrierLocation string, labels []string, today time.Time) (*models.ImportOutcome, error)

	// QueryStale returns every history at or past the staleness boundary,
	// optionally filtered by location, ordered by dwell time descending.
	QueryStale(ctx context.Context, carrierLocation string, today time.Time) ([]models.StaleLabel, error)

	// DurationStats is the batched duration lookup used by reporting.
	DurationStats(ctx context.Context, labelIDs []string, carrierLocation string, today time.Time) (map[string]models.LabelDuration, error)

	GetHistory(ctx context.Context, labelID, carrierLocation string) (*models.LabelImportHistory, error)
	ListBatches(ctx context.Context, carrierLocation string, limit int) ([]*models.ImportBatch, error)
}

type importRepository struct {
	db *database.DB
}

// NewImportRepository creates a new ImportRepository.
func NewImportRepository(db *database.DB) ImportRepository {
	return &importRepository{db: db}
}

var _ ImportRepository = (*importRepository)(nil)

const historyColumns = `id, label_id, carrier_location, first_import_date, last_import_date,
	       import_count, import_dates, created_at, updated_at`

func (r *importRepository) RecordImport(ctx context.Context, importDate time.Time, carrierLocation string, labels []string, today time.Time) (*models.ImportOutcome, error) {
	importDate = models.DateOnly(importDate)
	dateKey := importDate.Format(models.DateLayout)

	cleaned := make([]string, 0, len(labels))
	for _, label := range labels {
		if label = strings.TrimSpace(label); label != "" {
			cleaned = append(cleaned, label)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	labelsJSON, err := json.Marshal(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch labels: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO import_batches (id, import_date, carrier_location, total_labels, labels)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), importDate, carrierLocation, len(cleaned), labelsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create import batch: %w", err)
	}

	outcome := &models.ImportOutcome{
		ImportDate:      dateKey,
		CarrierLocation: carrierLocation,
		TotalLabels:     len(cleaned),
		StaleLabels:     []models.StaleLabel{},
	}

	for _, label := range cleaned {
		history, err := scanHistoryRow(tx.QueryRow(ctx,
			`SELECT `+historyColumns+` FROM label_import_history
			 WHERE label_id = $1 AND carrier_location = $2`, label, carrierLocation))

		switch {
		case err == pgx.ErrNoRows:
			history = &models.LabelImportHistory{
				LabelID:         label,
				CarrierLocation: carrierLocation,
			}
			history.Apply(importDate)
			if err := insertHistory(ctx, tx, history); err != nil {
				return nil, err
			}
			outcome.NewLabels++
		case err != nil:
			return nil, err
		case history.Apply(importDate):
			if err := updateHistory(ctx, tx, history); err != nil {
				return nil, err
			}
			outcome.UpdatedLabels++
		}

		if history.IsStale(today) {
			outcome.StaleLabels = append(outcome.StaleLabels, models.StaleLabel{
				LabelID:         label,
				CarrierLocation: carrierLocation,
				DaysInVault:     history.DaysInVault(today),
				FirstImportDate: history.FirstImportDate.Format(models.DateLayout),
				ImportCount:     history.ImportCount,
			})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	outcome.StaleCount = len(outcome.StaleLabels)
	return outcome, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, h *models.LabelImportHistory) error {
	datesJSON, err := json.Marshal(h.ImportDates)
	if err != nil {
		return fmt.Errorf("failed to marshal import dates: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO label_import_history (label_id, carrier_location, first_import_date,
		                                  last_import_date, import_count, import_dates)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		h.LabelID, h.CarrierLocation, h.FirstImportDate, h.LastImportDate, h.ImportCount, datesJSON)
	if err != nil {
		return fmt.Errorf("failed to create import history: %w", err)
	}
	return nil
}

func updateHistory(ctx context.Context, tx pgx.Tx, h *models.LabelImportHistory) error {
	datesJSON, err := json.Marshal(h.ImportDates)
	if err != nil {
		return fmt.Errorf("failed to marshal import dates: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE label_import_history
		SET first_import_date = $2, last_import_date = $3, import_count = $4,
		    import_dates = $5, updated_at = now()
		WHERE id = $1`,
		h.ID, h.FirstImportDate, h.LastImportDate, h.ImportCount, datesJSON)
	if err != nil {
		return fmt.Errorf("failed to update import history: %w", err)
	}
	return nil
}

func (r *importRepository) QueryStale(ctx context.Context, carrierLocation string, today time.Time) ([]models.StaleLabel, error) {
	cutoff := models.DateOnly(today).AddDate(0, 0, -models.StaleThresholdDays)

	// Oldest first import first means longest dwell time first.
	query := `SELECT ` + historyColumns + ` FROM label_import_history
		 WHERE first_import_date <= $1`
	args := []any{cutoff}
	if carrierLocation != "" {
		args = append(args, carrierLocation)
		query += ` AND carrier_location = $2`
	}
	query += ` ORDER BY first_import_date ASC, label_id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale labels: %w", err)
	}
	defer rows.Close()

	stale := []models.StaleLabel{}
	for rows.Next() {
		history, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		stale = append(stale, models.StaleLabel{
			LabelID:         history.LabelID,
			CarrierLocation: history.CarrierLocation,
			DaysInVault:     history.DaysInVault(today),
			FirstImportDate: history.FirstImportDate.Format(models.DateLayout),
			LastImportDate:  history.LastImportDate.Format(models.DateLayout),
			ImportCount:     history.ImportCount,
			ImportDates:     history.ImportDates,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale labels: %w", err)
	}
	return stale, nil
}

func (r *importRepository) DurationStats(ctx context.Context, labelIDs []string, carrierLocation string, today time.Time) (map[string]models.LabelDuration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+historyColumns+` FROM label_import_history
		 WHERE label_id = ANY($1) AND carrier_location = $2`, labelIDs, carrierLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to query duration stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]models.LabelDuration)
	for rows.Next() {
		history, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		stats[history.LabelID] = models.LabelDuration{
			DaysInVault:     history.DaysInVault(today),
			FirstImportDate: history.FirstImportDate.Format(models.DateLayout),
			IsStale:         history.IsStale(today),
			ImportCount:     history.ImportCount,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating duration stats: %w", err)
	}
	return stats, nil
}

func (r *importRepository) GetHistory(ctx context.Context, labelID, carrierLocation string) (*models.LabelImportHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM label_import_history WHERE label_id = $1`
	args := []any{labelID}
	if carrierLocation != "" {
		args = append(args, carrierLocation)
		query += ` AND carrier_location = $2`
	}
	query += ` ORDER BY first_import_date ASC LIMIT 1`

	history, err := scanHistoryRow(r.db.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	return history, err
}

func (r *importRepository) ListBatches(ctx context.Context, carrierLocation string, limit int) ([]*models.ImportBatch, error) {
	query := `SELECT id, import_date, carrier_location, total_labels, labels, created_at
		 FROM import_batches`
	args := []any{}
	if carrierLocation != "" {
		args = append(args, carrierLocation)
		query += ` WHERE carrier_location = $1`
	}
	query += ` ORDER BY import_date DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query import batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.ImportBatch
	for rows.Next() {
		var b models.ImportBatch
		var labelsJSON []byte
		err := rows.Scan(&b.ID, &b.ImportDate, &b.CarrierLocation, &b.TotalLabels, &labelsJSON, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		if len(labelsJSON) > 0 {
			if err := json.Unmarshal(labelsJSON, &b.Labels); err != nil {
				return nil, fmt.Errorf("failed to unmarshal batch labels: %w", err)
			}
		}
		batches = append(batches, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import batches: %w", err)
	}
	return batches, nil
}

func scanHistoryRow(row pgx.Row) (*models.LabelImportHistory, error) {
	var h models.LabelImportHistory
	var datesJSON []byte

	err := row.Scan(
		&h.ID,
		&h.LabelID,
		&h.CarrierLocation,
		&h.FirstImportDate,
		&h.LastImportDate,
		&h.ImportCount,
		&datesJSON,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan import history: %w", err)
	}

	if len(datesJSON) > 0 {
		if err := json.Unmarshal(datesJSON, &h.ImportDates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal import dates: %w", err)
		}
	}
	return &h, nil
}
