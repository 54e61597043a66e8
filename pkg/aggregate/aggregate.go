// Package aggregate reduces the full finding list to the severity
// histogram, the overall risk rating, and the install recommendation.
// The whole package is pure functions over findings; the policy table is
// fixed so reports stay comparable across runs and packages.
package aggregate

import "github.com/jingkaihe/skillscan/pkg/types/scan"

// Aggregate computes the severity counts, the overall risk (the maximum
// severity present, SAFE when there are no findings), and the
// recommendation.
func Aggregate(findings []scan.Finding) scan.Summary {
	summary := scan.Summary{
		OverallRisk:   scan.RiskSafe,
		TotalFindings: len(findings),
	}

	for _, f := range findings {
		switch f.Severity {
		case scan.SeverityCritical:
			summary.Critical++
		case scan.SeverityHigh:
			summary.High++
		case scan.SeverityMedium:
			summary.Medium++
		case scan.SeverityLow:
			summary.Low++
		}
		summary.OverallRisk = scan.MaxSeverity(summary.OverallRisk, f.Severity)
	}

	summary.Recommendation = recommend(summary.OverallRisk)
	return summary
}

// recommend is the fixed policy table: any CRITICAL rejects outright,
// anything needing human judgment goes to review, LOW-only noise is
// approved.
func recommend(risk scan.Severity) scan.Recommendation {
	switch risk {
	case scan.SeverityCritical:
		return scan.RecommendReject
	case scan.SeverityHigh, scan.SeverityMedium:
		return scan.RecommendReview
	default:
		return scan.RecommendApprove
	}
}
