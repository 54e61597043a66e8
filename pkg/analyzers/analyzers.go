// Package analyzers contains the heuristic detectors layered above the
// line-oriented pattern scanner: obfuscation chains, undeclared network
// hosts, path traversal construction, hardcoded secrets, and dependency
// hygiene. Each analyzer is an independent pass over the loaded package;
// they never read each other's output and compose by plain union of
// findings, so any of them can be skipped without affecting the rest.
package analyzers

import (
	"strings"

	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// Analyzer is one independent heuristic pass over a loaded package.
type Analyzer interface {
	Name() string
	Analyze(pkg *skillpkg.Package) []scan.Finding
}

// All returns every built-in analyzer in a fixed, deterministic order.
func All() []Analyzer {
	return []Analyzer{
		&Obfuscation{},
		&Network{},
		&PathTraversal{},
		&Secrets{},
		&Dependencies{},
	}
}

// Skip filters out analyzers by name.
func Skip(all []Analyzer, skip []string) []Analyzer {
	if len(skip) == 0 {
		return all
	}
	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[strings.ToLower(name)] = true
	}
	var out []Analyzer
	for _, a := range all {
		if !skipped[strings.ToLower(a.Name())] {
			out = append(out, a)
		}
	}
	return out
}

var codeLanguages = map[string]bool{
	"python": true, "bash": true, "shell": true,
	"javascript": true, "typescript": true,
	"ruby": true, "perl": true, "php": true,
	skillpkg.LanguageUnknown: true,
}

func isCode(f *skillpkg.SourceFile) bool {
	return !f.Binary && codeLanguages[f.Language]
}

// fileLines loads a file and splits it into lines; unreadable files are
// skipped silently here because the loader already reported them.
func fileLines(f *skillpkg.SourceFile) []string {
	content, err := f.Content()
	if err != nil || len(content) == 0 {
		return nil
	}
	return strings.Split(string(content), "\n")
}

func trimEvidence(line string) string {
	evidence := strings.TrimSpace(line)
	if len(evidence) > 200 {
		return evidence[:200] + "..."
	}
	return evidence
}
