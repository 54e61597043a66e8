package analyzers

import (
	"math"
	"regexp"
	"strings"

	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// analyzer-owned severities, fixed in code
const (
	severitySecretLiteral   = scan.SeverityMedium
	severitySecretOnNetwork = scan.SeverityHigh
)

const (
	minSecretEntropy = 3.5
	minSecretLen     = 16
)

var (
	secretAssignment = regexp.MustCompile(`(?i)\b[a-z_]*(key|secret|token|password|passwd|credential)[a-z_]*\s*[=:]\s*["']([A-Za-z0-9+/_\-=.]{16,})["']`)
	networkCallLine  = regexp.MustCompile(`requests\.|urlopen|fetch\s*\(|axios\.|curl\s|wget\s|http\.client|aiohttp|httpx`)
	placeholderValue = regexp.MustCompile(`(?i)example|placeholder|your[_-]|xxx+|changeme|dummy|test|sample|<[^>]+>|\$\{|\{\{`)
)

// Secrets flags high-entropy literals assigned to credential-named
// variables. A flagged literal that also appears on a network call line
// escalates: a hardcoded credential being sent somewhere is worse than
// one sitting still.
type Secrets struct{}

// Name implements Analyzer.
func (a *Secrets) Name() string { return "secrets" }

// Analyze implements Analyzer.
func (a *Secrets) Analyze(pkg *skillpkg.Package) []scan.Finding {
	var findings []scan.Finding

	for _, f := range pkg.Files {
		if !isCode(f) {
			continue
		}
		lines := fileLines(f)
		for i, line := range lines {
			m := secretAssignment.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			literal := m[2]
			if len(literal) < minSecretLen || placeholderValue.MatchString(literal) {
				continue
			}
			if shannonEntropy(literal) < minSecretEntropy {
				continue
			}

			severity := severitySecretLiteral
			rationale := "A high-entropy literal assigned to a credential-named variable looks like a hardcoded secret; anyone with the skill files can read it."
			if literalOnNetworkLine(pkg, literal) {
				severity = severitySecretOnNetwork
				rationale = "A hardcoded secret is also used on a network call line, so installing the skill sends the credential to a remote host."
			}

			findings = append(findings, scan.Finding{
				Severity:    severity,
				Category:    scan.CategoryCredentialTheft,
				Title:       "hardcoded credential: " + strings.ToLower(m[1]),
				File:        f.RelativePath,
				Line:        i + 1,
				Evidence:    redactEvidence(line, literal),
				Rationale:   rationale,
				Remediation: "Load the credential from the environment and rotate the exposed value.",
			})
		}
	}

	return findings
}

// literalOnNetworkLine reports whether the same literal occurs on any
// line that also performs a network call, in any code file.
func literalOnNetworkLine(pkg *skillpkg.Package, literal string) bool {
	for _, f := range pkg.Files {
		if !isCode(f) {
			continue
		}
		for _, line := range fileLines(f) {
			if strings.Contains(line, literal) && networkCallLine.MatchString(line) {
				return true
			}
		}
	}
	return false
}

// redactEvidence keeps the line recognizable without reproducing the
// captured secret in the report.
func redactEvidence(line, literal string) string {
	redacted := literal
	if len(literal) > 8 {
		redacted = literal[:4] + "..." + literal[len(literal)-2:]
	}
	return trimEvidence(strings.ReplaceAll(line, literal, redacted))
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	for _, r := range s {
		freq[r]++
	}
	var entropy float64
	n := float64(len(s))
	for _, count := range freq {
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}
