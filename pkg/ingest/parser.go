package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vaultops/vault-audit-engine/pkg/apperrors"
	"github.com/vaultops/vault-audit-engine/pkg/models"
)

// parametersSheet is the fixed name of the metadata sheet. The data sheet is
// the workbook's second sheet, whatever it is named.
const parametersSheet = "Parameters"

// Fixed data-sheet column positions.
const (
	colOrigin = iota
	colDestination
	colType
	colDeparture
	colArrival
	colLabel
	colCount
	colValue
)

// ParseContainerFile parses an uploaded workbook from disk into a
// ContainerSnapshot.
func ParseContainerFile(path string) (*models.ContainerSnapshot, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedWorkbook, err)
	}
	defer f.Close()

	return parseWorkbook(f)
}

// ParseContainer parses a workbook from a stream into a ContainerSnapshot.
func ParseContainer(r io.Reader) (*models.ContainerSnapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedWorkbook, err)
	}
	defer f.Close()

	return parseWorkbook(f)
}

func parseWorkbook(f *excelize.File) (*models.ContainerSnapshot, error) {
	sheets := f.GetSheetList()

	if idx, _ := f.GetSheetIndex(parametersSheet); idx < 0 {
		return nil, fmt.Errorf("%w: missing %q sheet", apperrors.ErrMalformedWorkbook, parametersSheet)
	}
	if len(sheets) < 2 {
		return nil, fmt.Errorf("%w: no data sheet after %q", apperrors.ErrMalformedWorkbook, parametersSheet)
	}
	dataSheet := sheets[1]

	params, err := parseParameters(f, time.Now())
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(dataSheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %v", apperrors.ErrMalformedWorkbook, dataSheet, err)
	}

	transactions, labels := parseRows(rows)

	return &models.ContainerSnapshot{
		Parameters:     *params,
		LocationName:   dataSheet,
		ExpectedLabels: labels,
		Transactions:   transactions,
	}, nil
}

// parseParameters reads the four fixed metadata cells: B1 created-at,
// B2 created-by, B3 carrier, B4 raw carrier-location. The created-at cell is
// read raw so natively date-formatted cells arrive as Excel serial numbers.
func parseParameters(f *excelize.File, now time.Time) (*models.Parameters, error) {
	createdAtRaw, err := f.GetCellValue(parametersSheet, "B1", excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read created-at cell: %v", apperrors.ErrMalformedWorkbook, err)
	}
	createdBy, _ := f.GetCellValue(parametersSheet, "B2")
	carrier, _ := f.GetCellValue(parametersSheet, "B3")
	locationRaw, _ := f.GetCellValue(parametersSheet, "B4")

	// A "<prefix> : <location>" value keeps only the location segment.
	location := locationRaw
	if _, after, found := strings.Cut(locationRaw, " : "); found {
		location = after
	}

	display, date, _ := parseCreatedAt(strings.TrimSpace(createdAtRaw), now)

	return &models.Parameters{
		CreatedAt:       display,
		CreatedAtDate:   date,
		CreatedBy:       createdBy,
		Carrier:         carrier,
		CarrierLocation: location,
	}, nil
}

// parseRows walks the data sheet below its header row, grouping rows into
// transactions and collecting the deny-list-filtered expected label set.
//
// A primary row (origin, destination and type all present) opens a new
// transaction, closing any open one. A separator row (origin present,
// destination and type both empty) closes the open transaction and nothing
// else. Any other row contributes its label/count/value to the open
// transaction, if there is one.
func parseRows(rows [][]string) ([]models.Transaction, map[string]struct{}) {
	transactions := []models.Transaction{}
	labels := make(map[string]struct{})

	var current *models.Transaction

	for i, row := range rows {
		if i == 0 {
			continue // header row
		}

		origin := cellAt(row, colOrigin)
		destination := cellAt(row, colDestination)
		transType := cellAt(row, colType)

		isPrimary := origin != "" && destination != "" && transType != ""
		isSeparator := origin != "" && destination == "" && transType == ""

		if isSeparator {
			if current != nil {
				transactions = append(transactions, *current)
				current = nil
			}
			continue
		}

		if isPrimary {
			if current != nil {
				transactions = append(transactions, *current)
			}
			current = &models.Transaction{
				Origin:        origin,
				Destination:   destination,
				Type:          transType,
				DepartureDate: cellAt(row, colDeparture),
				ArrivalDate:   cellAt(row, colArrival),
				Labels:        []string{},
			}
		}

		if label := cellAt(row, colLabel); label != "" && !IsDeniedLabel(label) {
			labels[label] = struct{}{}
			if current != nil {
				current.Labels = append(current.Labels, label)
			}
		}

		if current != nil {
			current.TotalCount += parseNumber(cellAt(row, colCount))
			current.TotalValue += parseNumber(cellAt(row, colValue))
		}
	}

	if current != nil {
		transactions = append(transactions, *current)
	}

	return transactions, labels
}

// cellAt returns the trimmed cell value at a column, tolerating short rows.
func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// parseNumber converts a count/value cell to a float. Blank or non-numeric
// cells contribute zero.
func parseNumber(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}
