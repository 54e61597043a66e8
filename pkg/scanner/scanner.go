// Package scanner applies the rule catalog to skill package files and
// orchestrates the full scan pipeline. Matching is line-indexed over a
// two-line sliding window so commands split across a continuation still
// match, while every finding reports an exact file:line location.
package scanner

import (
	"strings"

	"github.com/jingkaihe/skillscan/pkg/rules"
	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

const maxEvidenceLen = 200

// ScanFile evaluates every applicable rule against the file content.
// Findings come back in catalog order then line order; the canonical
// report ordering is applied later by the aggregation step. Scanning the
// same file with the same ruleset always yields the same findings.
func ScanFile(file *skillpkg.SourceFile, rs *rules.RuleSet) ([]scan.Finding, error) {
	if file.Binary {
		return nil, nil
	}

	content, err := file.Content()
	if err != nil {
		return []scan.Finding{{
			Severity:  scan.SeverityLow,
			Category:  scan.CategoryStructure,
			Title:     "unreadable file",
			File:      file.RelativePath,
			Rationale: "The file could not be read during scanning: " + err.Error(),
		}}, nil
	}
	if len(content) == 0 {
		return nil, nil
	}

	applicable := rs.MatchersFor(file.Language)
	if len(applicable) == 0 {
		return nil, nil
	}

	lines := strings.Split(string(content), "\n")
	var findings []scan.Finding

	for _, rule := range applicable {
		for i := 0; i < len(lines); i++ {
			if rule.Matches(lines[i]) {
				findings = append(findings, newFinding(rule, file, i+1, lines[i]))
				continue
			}
			// catch patterns split across a line break; only report the
			// window when neither line matches on its own, so a match is
			// never double counted
			if i+1 < len(lines) && !rule.Matches(lines[i+1]) {
				window := lines[i] + "\n" + lines[i+1]
				if rule.Matches(window) {
					findings = append(findings, newFinding(rule, file, i+1, window))
				}
			}
		}
	}

	return findings, nil
}

func newFinding(rule *rules.Rule, file *skillpkg.SourceFile, line int, window string) scan.Finding {
	return scan.Finding{
		RuleID:      rule.ID,
		Severity:    rule.Severity,
		Category:    rule.Category,
		Title:       rule.Title,
		File:        file.RelativePath,
		Line:        line,
		Evidence:    trimEvidence(window),
		Rationale:   rule.Rationale,
		Remediation: rule.Remediation,
	}
}

// trimEvidence bounds the captured context so reports never reproduce
// large file regions (or an entire captured secret).
func trimEvidence(window string) string {
	evidence := strings.TrimSpace(strings.ReplaceAll(window, "\n", " "))
	if len(evidence) > maxEvidenceLen {
		return evidence[:maxEvidenceLen] + "..."
	}
	return evidence
}
