// Package audit implements the set-based reconciliation of expected container
// labels against physically scanned labels.
package audit

import (
	"strings"

	"github.com/vaultops/vault-audit-engine/pkg/models"
)

// Reconcile compares an expected label set against a sequence of scanned
// labels. Scanned entries are trimmed, blanks dropped and duplicates collapsed
// before the comparison. Pure function: no side effects, deterministic for
// identical inputs.
func Reconcile(expected map[string]struct{}, scanned []string) *models.AuditResult {
	scannedSet := make(map[string]struct{}, len(scanned))
	for _, label := range scanned {
		label = strings.TrimSpace(label)
		if label != "" {
			scannedSet[label] = struct{}{}
		}
	}

	matched := make(map[string]struct{})
	unmatched := make(map[string]struct{})
	notScanned := make(map[string]struct{})

	for label := range scannedSet {
		if _, ok := expected[label]; ok {
			matched[label] = struct{}{}
		} else {
			unmatched[label] = struct{}{}
		}
	}
	for label := range expected {
		if _, ok := scannedSet[label]; !ok {
			notScanned[label] = struct{}{}
		}
	}

	return &models.AuditResult{
		TotalScanned:       len(scannedSet),
		MatchedLabels:      matched,
		UnmatchedLabels:    unmatched,
		ExpectedNotScanned: notScanned,
	}
}

// Summarize projects an audit result into its headline counts.
func Summarize(expectedCount int, result *models.AuditResult) models.AuditSummary {
	return models.AuditSummary{
		TotalInExpected: expectedCount,
		TotalScanned:    result.TotalScanned,
		MatchedCount:    len(result.MatchedLabels),
		UnmatchedCount:  len(result.UnmatchedLabels),
		NotScannedCount: len(result.ExpectedNotScanned),
	}
}
