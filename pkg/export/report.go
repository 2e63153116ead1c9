// Package export assembles the downloadable audit report workbook.
package export

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vaultops/vault-audit-engine/pkg/models"
)

// ReportInfo carries the container metadata shown in the report header.
type ReportInfo struct {
	Location      string
	Carrier       string
	CreatedAt     string
	CreatedBy     string
	LocationStats *models.LocationTracker
}

const (
	summarySheet = "Summary"
	resultsSheet = "Results"
)

// WriteReport renders the audit result and the dwell-time data into a styled
// workbook under dir, returning the file path. The import-based stale list
// feeds the stale section when present; otherwise the section is rebuilt from
// the stale entries of the duration lookup. Zone conversion for the
// generated-at stamp happens here and nowhere else.
func WriteReport(dir string, result *models.AuditResult, info ReportInfo, durations map[string]models.LabelDuration, staleLabels []models.StaleLabel) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(resultsSheet); err != nil {
		return "", fmt.Errorf("failed to create results sheet: %w", err)
	}

	styles, err := newReportStyles(f)
	if err != nil {
		return "", err
	}

	stale := staleRows(staleLabels, durations)
	if err := writeSummary(f, styles, result, info, stale); err != nil {
		return "", err
	}
	if err := writeResults(f, styles, result, stale); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("vault_audit_report_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return path, nil
}

// staleRows selects what the stale section shows: the import-based stale list
// when present, otherwise the stale entries of the duration lookup, in label
// order.
func staleRows(staleLabels []models.StaleLabel, durations map[string]models.LabelDuration) []models.StaleLabel {
	if len(staleLabels) > 0 {
		return staleLabels
	}

	labels := make([]string, 0, len(durations))
	for label, d := range durations {
		if d.IsStale {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	rows := make([]models.StaleLabel, 0, len(labels))
	for _, label := range labels {
		d := durations[label]
		rows = append(rows, models.StaleLabel{
			LabelID:         label,
			DaysInVault:     d.DaysInVault,
			FirstImportDate: d.FirstImportDate,
			ImportCount:     d.ImportCount,
		})
	}
	return rows
}

type reportStyles struct {
	title       int
	heading     int
	bold        int
	alertBold   int
	warnBold    int
	sectionRed  int
	sectionAmbr int
	staleCell   int
	placeholder int
}

func newReportStyles(f *excelize.File) (*reportStyles, error) {
	var s reportStyles
	var err error

	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}); err != nil {
		return nil, fmt.Errorf("failed to build styles: %w", err)
	}
	if s.heading, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return nil, fmt.Errorf("failed to build styles: %w", err)
	}
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, fmt.Errorf("failed to build styles: %w", err)
	}
	if s.alertBold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: "FF0000"}}); err != nil {
		return nil, fmt.Errorf("failed to build styles: %w", err)
	}
	if s.warnBold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: "FFA500"}}); err != nil {
		return nil, fmt.Errorf("failed to build styles: %w", err)
	}
	if s.sectionRed, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FF0000"}, Pattern: 1},
	}); err != nil {
		return nil, fmt.Errorf("failed to build styles: %w", err)
	}
	if s.sectionAmbr, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFA500"}, Pattern: 1},
	}); err != nil {
		return nil, fmt.Errorf("failed to build styles: %w", err)
	}
	if s.staleCell, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFCCCC"}, Pattern: 1},
	}); err != nil {
		return nil, fmt.Errorf("failed to build styles: %w", err)
	}
	if s.placeholder, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true, Color: "666666"}}); err != nil {
		return nil, fmt.Errorf("failed to build styles: %w", err)
	}
	return &s, nil
}

func writeSummary(f *excelize.File, styles *reportStyles, result *models.AuditResult, info ReportInfo, staleLabels []models.StaleLabel) error {
	set := func(cell string, value any, style int) {
		_ = f.SetCellValue(summarySheet, cell, value)
		if style != 0 {
			_ = f.SetCellStyle(summarySheet, cell, cell, style)
		}
	}

	set("A1", "Vault Audit Report", styles.title)
	set("A3", "Report Generated:", 0)
	set("B3", generatedAtDisplay(time.Now()), 0)
	set("A4", "Container Holdover Date:", 0)
	set("B4", info.CreatedAt, 0)
	set("A5", "Location:", 0)
	set("B5", info.Location, 0)

	set("A7", "Audit Summary", styles.heading)

	onsiteTotal := len(result.ExpectedNotScanned) + len(result.MatchedLabels)
	set("A9", "Total Containers in Onsite:", 0)
	set("B9", onsiteTotal, styles.bold)
	set("A10", "Total Scanned:", 0)
	set("B10", result.TotalScanned, styles.bold)
	set("A11", "Labels >=3 Days in Vault:", 0)
	set("B11", len(staleLabels), styles.alertBold)
	set("A12", "Unmatched Labels:", 0)
	set("B12", len(result.UnmatchedLabels), styles.alertBold)
	set("A13", "Not Scanned:", 0)
	set("B13", len(result.ExpectedNotScanned), styles.warnBold)

	if err := f.SetColWidth(summarySheet, "A", "B", 25); err != nil {
		return fmt.Errorf("failed to set column widths: %w", err)
	}
	return nil
}

func writeResults(f *excelize.File, styles *reportStyles, result *models.AuditResult, staleLabels []models.StaleLabel) error {
	set := func(row int, col string, value any, style int) {
		cell := fmt.Sprintf("%s%d", col, row)
		_ = f.SetCellValue(resultsSheet, cell, value)
		if style != 0 {
			_ = f.SetCellStyle(resultsSheet, cell, cell, style)
		}
	}

	row := 1
	set(row, "A", "BAGS IN VAULT 3+ DAYS", styles.sectionRed)
	row++
	set(row, "A", "Label ID", styles.bold)
	set(row, "B", "First Seen", styles.bold)
	set(row, "C", "Days", styles.bold)
	row++

	if len(staleLabels) == 0 {
		set(row, "A", "None", styles.placeholder)
		row++
	}
	for _, stale := range staleLabels {
		set(row, "A", stale.LabelID, styles.staleCell)
		set(row, "B", stale.FirstImportDate, styles.staleCell)
		set(row, "C", stale.DaysInVault, styles.staleCell)
		row++
	}

	row += 2
	set(row, "A", "UNMATCHED LABELS", styles.sectionRed)
	row++
	set(row, "A", "Label ID", styles.bold)
	row++
	row = writeLabelList(set, row, models.SortedSet(result.UnmatchedLabels), styles)

	row += 2
	set(row, "A", "NOT SCANNED", styles.sectionAmbr)
	row++
	set(row, "A", "Label ID", styles.bold)
	row++
	writeLabelList(set, row, models.SortedSet(result.ExpectedNotScanned), styles)

	if err := f.SetColWidth(resultsSheet, "A", "A", 40); err != nil {
		return fmt.Errorf("failed to set column widths: %w", err)
	}
	if err := f.SetColWidth(resultsSheet, "B", "B", 20); err != nil {
		return fmt.Errorf("failed to set column widths: %w", err)
	}
	if err := f.SetColWidth(resultsSheet, "C", "C", 15); err != nil {
		return fmt.Errorf("failed to set column widths: %w", err)
	}
	return nil
}

func writeLabelList(set func(int, string, any, int), row int, labels []string, styles *reportStyles) int {
	if len(labels) == 0 {
		set(row, "A", "None", styles.placeholder)
		return row + 1
	}
	for _, label := range labels {
		set(row, "A", label, 0)
		row++
	}
	return row
}

// generatedAtDisplay formats the report timestamp in the vault's home zone.
// Everything stored or served elsewhere stays UTC.
func generatedAtDisplay(now time.Time) string {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		return now.UTC().Format("01/02/06 15:04:05 MST")
	}
	return now.In(loc).Format("01/02/06 15:04:05 MST")
}
