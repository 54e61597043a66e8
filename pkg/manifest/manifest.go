// Package manifest validates SKILL.md frontmatter for injection
// anomalies. The frontmatter is only ever parsed into yaml.Node values,
// which resolve nothing and construct no objects: tagged constructs that
// a permissive loader would execute are observed as data and reported.
package manifest

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// validator-owned severities, fixed in code
const (
	severityTaggedConstruct = scan.SeverityCritical
	severityReservedKey     = scan.SeverityHigh
	severityInlineCode      = scan.SeverityCritical
)

// yaml 1.1 core schema tags that a data-only parse resolves on its own
var defaultTags = map[string]bool{
	"!!str": true, "!!int": true, "!!float": true, "!!bool": true,
	"!!null": true, "!!map": true, "!!seq": true, "!!timestamp": true,
	"!!merge": true,
}

// key names that override object internals in prototype-based runtimes
var reservedKeys = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

var inlineCodePatterns = []struct {
	re    *regexp.Regexp
	title string
}{
	{regexp.MustCompile(`\beval\s*\(`), "eval call inside frontmatter"},
	{regexp.MustCompile(`\bexec\s*\(`), "exec call inside frontmatter"},
	{regexp.MustCompile(`!!python`), "python object tag inside frontmatter"},
	{regexp.MustCompile(`!\s*<`), "verbatim tag directive inside frontmatter"},
}

// Validate inspects the manifest frontmatter of a loaded package. A
// package without a manifest or without frontmatter yields no findings
// here; the loader already reports those as structural problems.
func Validate(pkg *skillpkg.Package) []scan.Finding {
	if pkg.Manifest == nil || pkg.ManifestRaw == "" {
		return nil
	}

	var findings []scan.Finding
	raw := pkg.ManifestRaw

	// textual checks run even when the YAML does not parse, so a
	// deliberately malformed manifest cannot dodge them
	for _, p := range inlineCodePatterns {
		if loc := p.re.FindStringIndex(raw); loc != nil {
			findings = append(findings, scan.Finding{
				Severity:    severityInlineCode,
				Category:    scan.CategoryManifest,
				Title:       p.title,
				File:        skillpkg.ManifestFileName,
				Line:        frontmatterLine(raw, loc[0]),
				Evidence:    evidenceAround(raw, loc[0]),
				Rationale:   "Code-like constructs in skill metadata suggest an attempt to exploit a permissive frontmatter parser.",
				Remediation: "Frontmatter must contain plain scalar metadata only.",
			})
		}
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &root); err != nil {
		return findings
	}

	walk(&root, func(n *yaml.Node) {
		if n.Tag != "" && strings.HasPrefix(n.Tag, "!") && !defaultTags[n.Tag] {
			findings = append(findings, scan.Finding{
				Severity:    severityTaggedConstruct,
				Category:    scan.CategoryDeserialization,
				Title:       "tagged construct in frontmatter: " + n.Tag,
				File:        skillpkg.ManifestFileName,
				Line:        n.Line + 1, // +1 for the opening --- delimiter
				Evidence:    n.Tag + " " + truncate(n.Value, 80),
				Rationale:   "Non-scalar YAML tags instruct permissive parsers to construct arbitrary objects, which is code execution during metadata parsing.",
				Remediation: "Remove the tag; frontmatter values must be plain scalars, lists, and maps.",
			})
		}
	})

	walkMappingKeys(&root, func(key *yaml.Node) {
		if reservedKeys[strings.ToLower(key.Value)] {
			findings = append(findings, scan.Finding{
				Severity:    severityReservedKey,
				Category:    scan.CategoryManifest,
				Title:       "reserved property name in frontmatter: " + key.Value,
				File:        skillpkg.ManifestFileName,
				Line:        key.Line + 1,
				Evidence:    key.Value + ":",
				Rationale:   "Keys like __proto__ pollute object prototypes in runtimes that merge metadata into objects.",
				Remediation: "Rename the key.",
			})
		}
	})

	return findings
}

func walk(n *yaml.Node, fn func(*yaml.Node)) {
	fn(n)
	for _, child := range n.Content {
		walk(child, fn)
	}
}

func walkMappingKeys(n *yaml.Node, fn func(*yaml.Node)) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			fn(n.Content[i])
		}
	}
	for _, child := range n.Content {
		walkMappingKeys(child, fn)
	}
}

// frontmatterLine converts an offset within the raw frontmatter into a
// 1-based file line, accounting for the opening --- delimiter.
func frontmatterLine(raw string, offset int) int {
	return strings.Count(raw[:offset], "\n") + 2
}

func evidenceAround(raw string, offset int) string {
	start := strings.LastIndexByte(raw[:offset], '\n') + 1
	end := strings.IndexByte(raw[offset:], '\n')
	if end == -1 {
		end = len(raw)
	} else {
		end += offset
	}
	return truncate(strings.TrimSpace(raw[start:end]), 120)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
