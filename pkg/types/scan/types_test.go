package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Greater(t, SeverityLow.Rank(), RiskSafe.Rank())
	assert.Equal(t, 0, Severity("BOGUS").Rank())
}

func TestSeverityValid(t *testing.T) {
	for _, s := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, RiskSafe.Valid())
	assert.False(t, Severity("WARN").Valid())
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityCritical, SeverityLow))
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityLow, SeverityCritical))
	assert.Equal(t, SeverityHigh, MaxSeverity(SeverityHigh, RiskSafe))
	assert.Equal(t, SeverityMedium, MaxSeverity(SeverityMedium, SeverityMedium))
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryCommandInjection.Valid())
	assert.True(t, CategoryManifest.Valid())
	assert.False(t, Category("Networking").Valid())
}

func TestSortFindings(t *testing.T) {
	findings := []Finding{
		{RuleID: "r2", Severity: SeverityLow, Category: CategoryStructure, File: "a.py", Line: 1},
		{RuleID: "r1", Severity: SeverityCritical, Category: CategoryCommandInjection, File: "b.py", Line: 9},
		{RuleID: "r4", Severity: SeverityCritical, Category: CategoryCommandInjection, File: "b.py", Line: 3},
		{RuleID: "r3", Severity: SeverityCritical, Category: CategoryCommandInjection, File: "a.py", Line: 3},
		{RuleID: "r5", Severity: SeverityHigh, Category: CategoryDataExfiltration, File: "a.py", Line: 2},
		{RuleID: "r6", Severity: SeverityHigh, Category: CategoryCredentialTheft, File: "z.py", Line: 2},
	}

	SortFindings(findings)

	var ids []string
	for _, f := range findings {
		ids = append(ids, f.RuleID)
	}
	// severity first, then category, file, line, rule id
	assert.Equal(t, []string{"r3", "r4", "r1", "r6", "r5", "r2"}, ids)
}

func TestSortFindingsStableTieBreak(t *testing.T) {
	findings := []Finding{
		{RuleID: "b", Severity: SeverityHigh, Category: CategoryManifest, File: "SKILL.md", Line: 2},
		{RuleID: "a", Severity: SeverityHigh, Category: CategoryManifest, File: "SKILL.md", Line: 2},
	}

	SortFindings(findings)
	assert.Equal(t, "a", findings[0].RuleID)
	assert.Equal(t, "b", findings[1].RuleID)
}
