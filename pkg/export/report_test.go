package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vaultops/vault-audit-engine/pkg/models"
)

func testResult() *models.AuditResult {
	return &models.AuditResult{
		TotalScanned:       3,
		MatchedLabels:      map[string]struct{}{"LBL001": {}, "LBL002": {}},
		UnmatchedLabels:    map[string]struct{}{"STRAY": {}},
		ExpectedNotScanned: map[string]struct{}{"LBL003": {}},
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	info := ReportInfo{
		Location:  "Main Vault",
		Carrier:   "Acme Armored",
		CreatedAt: "01/15/25 09:00:00 EST",
		CreatedBy: "jsmith",
	}
	stale := []models.StaleLabel{
		{LabelID: "LBL001", FirstImportDate: "2025-01-11", DaysInVault: 4},
	}

	path, err := WriteReport(dir, testResult(), info, nil, stale)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Regexp(t, `vault_audit_report_\d{8}_\d{6}\.xlsx$`, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	cell := func(sheet, ref string) string {
		v, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Vault Audit Report", cell("Summary", "A1"))
	assert.Equal(t, "01/15/25 09:00:00 EST", cell("Summary", "B4"))
	assert.Equal(t, "Main Vault", cell("Summary", "B5"))

	// Onsite total is matched plus not-scanned.
	assert.Equal(t, "3", cell("Summary", "B9"))
	assert.Equal(t, "3", cell("Summary", "B10"))
	assert.Equal(t, "1", cell("Summary", "B11"))
	assert.Equal(t, "1", cell("Summary", "B12"))
	assert.Equal(t, "1", cell("Summary", "B13"))

	assert.Equal(t, "BAGS IN VAULT 3+ DAYS", cell("Results", "A1"))
	assert.Equal(t, "LBL001", cell("Results", "A3"))
	assert.Equal(t, "2025-01-11", cell("Results", "B3"))
	assert.Equal(t, "4", cell("Results", "C3"))
}

func TestWriteReport_DurationFallbackFillsStaleSection(t *testing.T) {
	durations := map[string]models.LabelDuration{
		"LBL009": {DaysInVault: 10, FirstImportDate: "2025-01-05", IsStale: true},
		"LBL002": {DaysInVault: 4, FirstImportDate: "2025-01-11", IsStale: true},
		"LBL001": {DaysInVault: 1, FirstImportDate: "2025-01-14", IsStale: false},
	}

	// Empty stale list: the section is rebuilt from the duration lookup.
	path, err := WriteReport(t.TempDir(), testResult(), ReportInfo{}, durations, nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	cell := func(sheet, ref string) string {
		v, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		return v
	}

	// Only the stale entries appear, in label order.
	assert.Equal(t, "LBL002", cell("Results", "A3"))
	assert.Equal(t, "2025-01-11", cell("Results", "B3"))
	assert.Equal(t, "4", cell("Results", "C3"))
	assert.Equal(t, "LBL009", cell("Results", "A4"))
	assert.Equal(t, "10", cell("Results", "C4"))

	// The summary count follows the fallback list.
	assert.Equal(t, "2", cell("Summary", "B11"))
}

func TestWriteReport_StaleListSupersedesDurations(t *testing.T) {
	durations := map[string]models.LabelDuration{
		"LBL009": {DaysInVault: 10, FirstImportDate: "2025-01-05", IsStale: true},
	}
	stale := []models.StaleLabel{
		{LabelID: "LBL001", FirstImportDate: "2025-01-11", DaysInVault: 4},
	}

	path, err := WriteReport(t.TempDir(), testResult(), ReportInfo{}, durations, stale)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Results", "A3")
	require.NoError(t, err)
	assert.Equal(t, "LBL001", v)

	v, err = f.GetCellValue("Results", "A4")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestWriteReport_EmptySections(t *testing.T) {
	result := &models.AuditResult{
		MatchedLabels:      map[string]struct{}{},
		UnmatchedLabels:    map[string]struct{}{},
		ExpectedNotScanned: map[string]struct{}{},
	}

	path, err := WriteReport(t.TempDir(), result, ReportInfo{}, nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Every section gets a "None" placeholder when empty.
	v, err := f.GetCellValue("Results", "A3")
	require.NoError(t, err)
	assert.Equal(t, "None", v)
}
