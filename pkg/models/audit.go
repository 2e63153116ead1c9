package models

import "sort"

// AuditResult is the three-way partition produced by one reconciliation run.
// The three sets are pairwise disjoint: matched+unmatched cover the deduplicated
// scanned input, matched+expectedNotScanned cover the expected set.
type AuditResult struct {
	TotalScanned       int
	MatchedLabels      map[string]struct{}
	UnmatchedLabels    map[string]struct{}
	ExpectedNotScanned map[string]struct{}
}

// AuditSummary is a read-only projection of an AuditResult.
type AuditSummary struct {
	TotalInExpected int `json:"total_containers_onsite"`
	TotalScanned    int `json:"total_scanned"`
	MatchedCount    int `json:"matched_count"`
	UnmatchedCount  int `json:"unmatched_count"`
	NotScannedCount int `json:"not_scanned_count"`
}

// SortedSet returns the members of a label set in lexical order.
func SortedSet(set map[string]struct{}) []string {
	labels := make([]string, 0, len(set))
	for label := range set {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
