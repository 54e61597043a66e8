package analyzers

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// analyzer-owned severity, fixed in code
const severityUnsafePathBuild = scan.SeverityHigh

const containmentProximityLines = 5

var (
	// path built by concatenating an externally influenced name
	unsafePathConcat = regexp.MustCompile(`(?i)(open|os\.path\.join|readFile|writeFile|pathlib\.Path)\s*\([^)]*[+,]\s*[a-z_]*\b(arg|argv|input|param|request|user|name)[a-z_]*`)
	// interpolation of the same names into a path string
	unsafePathFormat = regexp.MustCompile(`(?i)(open|readFile|writeFile)\s*\(\s*f?["'][^"']*\{[a-z_]*(arg|input|param|user|name)[a-z_]*\}`)
	// a resolve+containment idiom anywhere near the construction site
	containmentCheck = regexp.MustCompile(`realpath|abspath|os\.path\.normpath|\.resolve\s*\(|commonpath|startswith|is_relative_to|path\.normalize`)

	absolutePathRef = regexp.MustCompile(`["'](/(?:tmp|etc|var|usr|home|root)(?:/[A-Za-z0-9._-]+)*)`)
	parentEscapeRef = regexp.MustCompile(`\.\./[A-Za-z0-9._/-]*`)
)

// PathTraversal flags file paths assembled from externally influenced
// values with no resolve-and-contain check nearby. It is a heuristic on
// names and proximity, deliberately not a data-flow analysis.
type PathTraversal struct{}

// Name implements Analyzer.
func (a *PathTraversal) Name() string { return "pathtraversal" }

// Analyze implements Analyzer.
func (a *PathTraversal) Analyze(pkg *skillpkg.Package) []scan.Finding {
	var findings []scan.Finding

	for _, f := range pkg.Files {
		if !isCode(f) {
			continue
		}
		lines := fileLines(f)
		for i, line := range lines {
			if !unsafePathConcat.MatchString(line) && !unsafePathFormat.MatchString(line) {
				continue
			}
			if containmentNearby(lines, i) {
				continue
			}
			findings = append(findings, scan.Finding{
				Severity:    severityUnsafePathBuild,
				Category:    scan.CategoryPathTraversal,
				Title:       "path built from external value without containment check",
				File:        f.RelativePath,
				Line:        i + 1,
				Evidence:    trimEvidence(line),
				Rationale:   "A caller-influenced value flows into a file path with no resolution or containment check, allowing escapes from the intended directory.",
				Remediation: "Resolve the path and verify it stays under the expected root before use.",
			})
		}
	}

	return findings
}

func containmentNearby(lines []string, at int) bool {
	start := at - containmentProximityLines
	if start < 0 {
		start = 0
	}
	end := at + containmentProximityLines
	if end >= len(lines) {
		end = len(lines) - 1
	}
	for i := start; i <= end; i++ {
		if containmentCheck.MatchString(lines[i]) {
			return true
		}
	}
	return false
}

// Summary collects the literal filesystem locations the package refers
// to, split into declared scopes, everything referenced, and references
// that clearly leave the package (absolute system paths, ../ escapes).
func (a *PathTraversal) Summary(pkg *skillpkg.Package) scan.FilesystemSummary {
	accessed := make(map[string]bool)
	outside := make(map[string]bool)

	for _, f := range pkg.Files {
		if !isCode(f) {
			continue
		}
		for _, line := range fileLines(f) {
			for _, m := range absolutePathRef.FindAllStringSubmatch(line, -1) {
				accessed[m[1]] = true
				outside[m[1]] = true
			}
			for _, m := range parentEscapeRef.FindAllString(line, -1) {
				accessed[m] = true
				if strings.HasPrefix(m, "../..") {
					outside[m] = true
				}
			}
		}
	}

	summary := scan.FilesystemSummary{
		DeclaredScopes: append([]string(nil), pkg.Capabilities.FilesystemScopes...),
	}
	summary.PathsAccessed = sortedKeys(accessed)
	summary.OutsidePackage = sortedKeys(outside)
	sort.Strings(summary.DeclaredScopes)
	return summary
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
