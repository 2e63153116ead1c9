package models

import (
	"sort"
	"time"
)

// Parameters holds the metadata block parsed from the workbook's
// "Parameters" sheet.
type Parameters struct {
	// CreatedAt is the display form of the workbook's created-at cell.
	CreatedAt string `json:"created_at"`
	// CreatedAtDate is the calendar date used for import tracking. When the
	// created-at cell cannot be parsed it falls back to the processing date,
	// which anchors dwell-time calculations to ingest time rather than true
	// document time. Known precision limitation, kept on purpose.
	CreatedAtDate   time.Time `json:"created_at_date"`
	CreatedBy       string    `json:"created_by"`
	Carrier         string    `json:"carrier"`
	CarrierLocation string    `json:"carrier_location"`
}

// Transaction is one parsed group of contiguous spreadsheet rows. Origin,
// destination and type are only set on the primary row that opened the group.
type Transaction struct {
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	Type          string   `json:"type"`
	DepartureDate string   `json:"departure_date"`
	ArrivalDate   string   `json:"arrival_date"`
	Labels        []string `json:"labels"`
	TotalCount    float64  `json:"total_count"`
	TotalValue    float64  `json:"total_value"`
}

// ContainerSnapshot is the structured result of ingesting one workbook.
type ContainerSnapshot struct {
	Parameters   Parameters `json:"parameters"`
	LocationName string     `json:"location_name"`
	// ExpectedLabels is the deny-list-filtered set of label IDs found
	// anywhere in the data sheet.
	ExpectedLabels map[string]struct{} `json:"-"`
	// Transactions are retained for export only; reconciliation does not
	// consume them.
	Transactions []Transaction `json:"transactions"`
}

// SortedLabels returns the expected labels in lexical order.
func (s *ContainerSnapshot) SortedLabels() []string {
	labels := make([]string, 0, len(s.ExpectedLabels))
	for label := range s.ExpectedLabels {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
