package analyzers

import (
	"fmt"
	"regexp"

	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// analyzer-owned severities, fixed in code
const (
	severityDecodeExecChain = scan.SeverityCritical
	severityEncodedLiteral  = scan.SeverityMedium
)

const (
	minEncodedLiteralLen = 40
	decodeProximityLines = 3
	execProximityLines   = 5
)

var (
	base64Literal = regexp.MustCompile(fmt.Sprintf(`["'][A-Za-z0-9+/]{%d,}={0,2}["']`, minEncodedLiteralLen))
	hexLiteral    = regexp.MustCompile(fmt.Sprintf(`["'][0-9a-fA-F]{%d,}["']`, minEncodedLiteralLen))
	decodeCall    = regexp.MustCompile(`base64\.b64decode|bytes\.fromhex|codecs\.decode|\batob\s*\(|base64\s+(-d|-D|--decode)|Buffer\.from\s*\([^)]*base64`)
	executeCall   = regexp.MustCompile(`\b(exec|eval)\s*\(|\bsh\b|\bbash\b|os\.system|subprocess\.|child_process`)
)

// Obfuscation flags long base64/hex literals, escalating to CRITICAL when
// the literal sits next to a decode call that is followed by an execute
// call. A long literal on its own may be legitimate embedded data and
// stays MEDIUM.
type Obfuscation struct{}

// Name implements Analyzer.
func (a *Obfuscation) Name() string { return "obfuscation" }

// Analyze implements Analyzer.
func (a *Obfuscation) Analyze(pkg *skillpkg.Package) []scan.Finding {
	var findings []scan.Finding

	for _, f := range pkg.Files {
		if !isCode(f) {
			continue
		}
		lines := fileLines(f)
		if lines == nil {
			continue
		}

		decodeAt := make([]bool, len(lines))
		executeAt := make([]bool, len(lines))
		for i, line := range lines {
			decodeAt[i] = decodeCall.MatchString(line)
			executeAt[i] = executeCall.MatchString(line)
		}

		for i, line := range lines {
			if !base64Literal.MatchString(line) && !hexLiteral.MatchString(line) {
				continue
			}

			if decodeLine, ok := nearbyDecode(decodeAt, i); ok && executeFollows(executeAt, decodeLine) {
				findings = append(findings, scan.Finding{
					Severity:    severityDecodeExecChain,
					Category:    scan.CategoryObfuscation,
					Title:       "encoded payload decoded and executed",
					File:        f.RelativePath,
					Line:        i + 1,
					Evidence:    trimEvidence(line),
					Rationale:   "An embedded encoded blob is decoded and handed to an execution primitive, the signature of a hidden payload.",
					Remediation: "Remove the encoded payload; skill logic must be reviewable plaintext.",
				})
				continue
			}

			findings = append(findings, scan.Finding{
				Severity:    severityEncodedLiteral,
				Category:    scan.CategoryObfuscation,
				Title:       "long encoded literal",
				File:        f.RelativePath,
				Line:        i + 1,
				Evidence:    trimEvidence(line),
				Rationale:   "A long base64/hex literal cannot be reviewed as-is; it may be legitimate embedded data but deserves inspection.",
				Remediation: "Ship embedded data as a separate reviewable asset.",
			})
		}
	}

	return findings
}

// nearbyDecode reports the closest decode call within the proximity
// window around the literal line.
func nearbyDecode(decodeAt []bool, literalLine int) (int, bool) {
	for d := 0; d <= decodeProximityLines; d++ {
		if literalLine-d >= 0 && decodeAt[literalLine-d] {
			return literalLine - d, true
		}
		if literalLine+d < len(decodeAt) && decodeAt[literalLine+d] {
			return literalLine + d, true
		}
	}
	return 0, false
}

func executeFollows(executeAt []bool, decodeLine int) bool {
	end := decodeLine + execProximityLines
	if end >= len(executeAt) {
		end = len(executeAt) - 1
	}
	for i := decodeLine; i <= end; i++ {
		if executeAt[i] {
			return true
		}
	}
	return false
}
