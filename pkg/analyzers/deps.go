package analyzers

import (
	"regexp"
	"sort"

	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// analyzer-owned severity, fixed in code
const severityTyposquat = scan.SeverityCritical

var pythonImport = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([A-Za-z0-9_]+)`)

// common typos of popular packages that attackers register on registries
var typosquats = map[string]string{
	"reqeusts":     "requests",
	"requets":      "requests",
	"urlib":        "urllib",
	"urllib3x":     "urllib3",
	"subproces":    "subprocess",
	"beatifulsoup": "beautifulsoup4",
	"pandaz":       "pandas",
	"numpyy":       "numpy",
}

// python standard library modules skills commonly use; imports outside
// this set count as third-party dependencies
var pythonStdlib = map[string]bool{
	"argparse": true, "asyncio": true, "base64": true, "collections": true,
	"contextlib": true, "csv": true, "dataclasses": true, "datetime": true,
	"enum": true, "functools": true, "glob": true, "hashlib": true,
	"io": true, "itertools": true, "json": true, "logging": true,
	"math": true, "os": true, "pathlib": true, "random": true,
	"re": true, "shutil": true, "socket": true, "string": true,
	"subprocess": true, "sys": true, "tempfile": true, "textwrap": true,
	"time": true, "typing": true, "unittest": true, "urllib": true,
	"uuid": true, "xml": true, "zipfile": true, "zlib": true,
}

// Dependencies collects imports across the package scripts, flags
// typosquatted package names, and reconciles third-party imports with
// the dependencies the manifest declares.
type Dependencies struct{}

// Name implements Analyzer.
func (a *Dependencies) Name() string { return "dependencies" }

// Analyze implements Analyzer.
func (a *Dependencies) Analyze(pkg *skillpkg.Package) []scan.Finding {
	var findings []scan.Finding
	flagged := make(map[string]bool)

	for _, f := range pkg.Files {
		if f.Binary || f.Language != "python" {
			continue
		}
		content, err := f.Content()
		if err != nil {
			continue
		}
		for _, m := range pythonImport.FindAllSubmatchIndex(content, -1) {
			name := string(content[m[2]:m[3]])
			intended, isTyposquat := typosquats[name]
			if !isTyposquat || flagged[name] {
				continue
			}
			flagged[name] = true
			findings = append(findings, scan.Finding{
				Severity:    severityTyposquat,
				Category:    scan.CategorySupplyChain,
				Title:       "typosquatted package import: " + name,
				File:        f.RelativePath,
				Line:        f.LineOf(m[2]),
				Evidence:    "import " + name,
				Rationale:   "The name is one keystroke from " + intended + "; typosquatted registry packages are a standard malware delivery channel.",
				Remediation: "Import " + intended + " instead.",
			})
		}
	}

	return findings
}

// Summary reconciles imported third-party modules with the manifest's
// declared dependencies. Undeclared imports are surfaced in the report
// summary for a reviewer; they are not findings on their own.
func (a *Dependencies) Summary(pkg *skillpkg.Package) scan.DependencySummary {
	imported := make(map[string]bool)
	for _, f := range pkg.Files {
		if f.Binary || f.Language != "python" {
			continue
		}
		content, err := f.Content()
		if err != nil {
			continue
		}
		for _, m := range pythonImport.FindAllSubmatch(content, -1) {
			name := string(m[1])
			if !pythonStdlib[name] {
				imported[name] = true
			}
		}
	}

	declared := make(map[string]bool, len(pkg.Capabilities.Dependencies))
	for _, d := range pkg.Capabilities.Dependencies {
		declared[d] = true
	}

	summary := scan.DependencySummary{
		Declared: append([]string(nil), pkg.Capabilities.Dependencies...),
	}
	for name := range imported {
		summary.Imported = append(summary.Imported, name)
		if !declared[name] {
			summary.Undeclared = append(summary.Undeclared, name)
		}
	}
	sort.Strings(summary.Declared)
	sort.Strings(summary.Imported)
	sort.Strings(summary.Undeclared)
	return summary
}
