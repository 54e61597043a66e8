package scan

import "sort"

// SortFindings sorts findings into the canonical report order: severity
// descending, then category name, then file path, then line number, then
// rule id. Every renderer and the aggregator rely on this one ordering so
// repeated scans of the same package produce byte-identical reports.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.RuleID < b.RuleID
	})
}
