package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

func findingsOf(severities ...scan.Severity) []scan.Finding {
	out := make([]scan.Finding, 0, len(severities))
	for _, s := range severities {
		out = append(out, scan.Finding{Severity: s})
	}
	return out
}

func TestAggregateEmpty(t *testing.T) {
	summary := Aggregate(nil)

	assert.Equal(t, scan.RiskSafe, summary.OverallRisk)
	assert.Equal(t, scan.RecommendApprove, summary.Recommendation)
	assert.Equal(t, 0, summary.TotalFindings)
}

func TestAggregateCounts(t *testing.T) {
	summary := Aggregate(findingsOf(
		scan.SeverityCritical,
		scan.SeverityHigh, scan.SeverityHigh,
		scan.SeverityMedium,
		scan.SeverityLow, scan.SeverityLow, scan.SeverityLow,
	))

	assert.Equal(t, 7, summary.TotalFindings)
	assert.Equal(t, 1, summary.Critical)
	assert.Equal(t, 2, summary.High)
	assert.Equal(t, 1, summary.Medium)
	assert.Equal(t, 3, summary.Low)
	assert.Equal(t, scan.SeverityCritical, summary.OverallRisk)
}

func TestAggregateRecommendation(t *testing.T) {
	tests := []struct {
		name       string
		severities []scan.Severity
		risk       scan.Severity
		want       scan.Recommendation
	}{
		{"no findings", nil, scan.RiskSafe, scan.RecommendApprove},
		{"low only", []scan.Severity{scan.SeverityLow, scan.SeverityLow}, scan.SeverityLow, scan.RecommendApprove},
		{"medium reviews", []scan.Severity{scan.SeverityLow, scan.SeverityMedium}, scan.SeverityMedium, scan.RecommendReview},
		{"high reviews", []scan.Severity{scan.SeverityHigh}, scan.SeverityHigh, scan.RecommendReview},
		{"critical rejects", []scan.Severity{scan.SeverityLow, scan.SeverityCritical}, scan.SeverityCritical, scan.RecommendReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := Aggregate(findingsOf(tt.severities...))
			assert.Equal(t, tt.risk, summary.OverallRisk)
			assert.Equal(t, tt.want, summary.Recommendation)
		})
	}
}
