package models

import (
	"time"

	"github.com/google/uuid"
)

// StaleThresholdDays is the inclusive dwell-time boundary: a label first
// imported this many or more days ago is stale.
const StaleThresholdDays = 3

// DateLayout is the canonical calendar-date form used for import tracking.
const DateLayout = "2006-01-02"

// DateOnly truncates an instant to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from one calendar date to
// another. Both arguments are truncated to dates first.
func DaysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}

// BagRecord tracks individual scan events for one physical label. This is the
// legacy scan-based path: it backs per-label lookup and delete, but the
// import-based LabelImportHistory is authoritative for staleness.
type BagRecord struct {
	ID              int64     `json:"id"`
	LabelID         string    `json:"label_id"`
	CarrierLocation string    `json:"carrier_location"`
	FirstScanAt     time.Time `json:"first_scan_datetime"`
	LastScanAt      time.Time `json:"last_scan_datetime"`
	ScanCount       int       `json:"scan_count"`
	IsFirstScan     bool      `json:"is_first_scan,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LocationTracker holds aggregate scan counters for one carrier location.
type LocationTracker struct {
	ID               int64     `json:"id"`
	CarrierLocation  string    `json:"carrier_location"`
	FirstScanDate    time.Time `json:"first_scan_date"`
	LastScanDate     time.Time `json:"last_scan_date"`
	TotalDaysTracked int       `json:"total_days_tracked"`
	TotalUniqueBags  int       `json:"total_unique_bags"`
	TotalScans       int       `json:"total_scans"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ImportBatch records one full ingest event with its complete label set, kept
// redundantly for audit and replay.
type ImportBatch struct {
	ID              uuid.UUID `json:"id"`
	ImportDate      time.Time `json:"import_date"`
	CarrierLocation string    `json:"carrier_location"`
	TotalLabels     int       `json:"total_labels"`
	Labels          []string  `json:"labels"`
	CreatedAt       time.Time `json:"created_at"`
}

// LabelImportHistory is the durable per-(label, location) import history.
// FirstImportDate is the minimum of all recorded dates, LastImportDate the
// maximum, and ImportCount equals the number of distinct recorded dates.
type LabelImportHistory struct {
	ID              int64     `json:"id"`
	LabelID         string    `json:"label_id"`
	CarrierLocation string    `json:"carrier_location"`
	FirstImportDate time.Time `json:"first_import_date"`
	LastImportDate  time.Time `json:"last_import_date"`
	ImportCount     int       `json:"import_count"`
	ImportDates     []string  `json:"import_dates"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DaysInVault is the dwell time: whole days from the first recorded import to
// the given date. Recomputed on read, never stored.
func (h *LabelImportHistory) DaysInVault(today time.Time) int {
	if h.FirstImportDate.IsZero() {
		return 0
	}
	return DaysBetween(h.FirstImportDate, today)
}

// IsStale reports whether the label has dwelled StaleThresholdDays or more.
func (h *LabelImportHistory) IsStale(today time.Time) bool {
	return h.DaysInVault(today) >= StaleThresholdDays
}

// Apply folds one import date into the history. An absent date is added and
// first/last/count recomputed: first is the minimum of all recorded dates,
// last the maximum, count the number of distinct dates. An already-recorded
// date changes nothing. Reports whether the history was mutated.
func (h *LabelImportHistory) Apply(date time.Time) bool {
	date = DateOnly(date)
	if h.HasDate(date) {
		return false
	}

	h.ImportDates = append(h.ImportDates, date.Format(DateLayout))
	h.ImportCount = len(h.ImportDates)
	if h.FirstImportDate.IsZero() || date.Before(h.FirstImportDate) {
		h.FirstImportDate = date
	}
	if date.After(h.LastImportDate) {
		h.LastImportDate = date
	}
	return true
}

// HasDate reports whether the given calendar date is already recorded.
func (h *LabelImportHistory) HasDate(date time.Time) bool {
	key := DateOnly(date).Format(DateLayout)
	for _, d := range h.ImportDates {
		if d == key {
			return true
		}
	}
	return false
}

// StaleLabel describes one label that has crossed the staleness boundary.
type StaleLabel struct {
	LabelID         string   `json:"label_id"`
	CarrierLocation string   `json:"carrier_location"`
	DaysInVault     int      `json:"days_in_vault"`
	FirstImportDate string   `json:"first_import_date"`
	LastImportDate  string   `json:"last_import_date,omitempty"`
	ImportCount     int      `json:"import_count"`
	ImportDates     []string `json:"import_dates,omitempty"`
}

// ImportOutcome is the result of recording one import batch.
type ImportOutcome struct {
	ImportDate      string       `json:"import_date"`
	CarrierLocation string       `json:"carrier_location"`
	TotalLabels     int          `json:"total_labels"`
	NewLabels       int          `json:"new_labels_count"`
	UpdatedLabels   int          `json:"updated_labels_count"`
	StaleLabels     []StaleLabel `json:"stale_labels"`
	StaleCount      int          `json:"stale_labels_count"`
}

// LabelDuration is one entry of the batched duration lookup used by reporting.
type LabelDuration struct {
	DaysInVault     int    `json:"days_in_vault"`
	FirstImportDate string `json:"first_import_date"`
	IsStale         bool   `json:"is_stale"`
	ImportCount     int    `json:"import_count"`
}

// TrackerStats is the aggregate over all bag records.
type TrackerStats struct {
	TotalUniqueBags int `json:"total_unique_bags"`
	TotalScans      int `json:"total_scans"`
}
