// Package report renders a scan report into its output formats. Both the
// machine-readable JSON form and the human-readable markdown form derive
// from the same Report value, so the two can never disagree. Rendering
// only ever includes the bounded evidence snippets captured during
// scanning, never file contents.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// Format selects a report rendering.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	}
	return "", errors.Errorf("unknown report format %q (want json or markdown)", s)
}

// Render serializes the report in the requested format.
func Render(r *scan.Report, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal report")
		}
		return append(out, '\n'), nil
	case FormatMarkdown:
		return renderMarkdown(r), nil
	}
	return nil, errors.Errorf("unknown report format %q", format)
}

func renderMarkdown(r *scan.Report) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Security Scan Report: %s\n\n", r.Skill)
	fmt.Fprintf(&b, "- **Location**: %s\n", r.Location)
	fmt.Fprintf(&b, "- **Scanned**: %s\n", r.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Scanner version**: %s\n", r.ScannerVersion)
	fmt.Fprintf(&b, "- **Scan ID**: %s\n\n", r.ID)

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "| Overall Risk | Recommendation | Total | Critical | High | Medium | Low |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %d | %d |\n\n",
		r.Summary.OverallRisk, r.Summary.Recommendation, r.Summary.TotalFindings,
		r.Summary.Critical, r.Summary.High, r.Summary.Medium, r.Summary.Low)

	if len(r.Findings) == 0 {
		fmt.Fprintf(&b, "No findings.\n\n")
	} else {
		fmt.Fprintf(&b, "## Findings\n\n")
		var lastSeverity scan.Severity
		for _, f := range r.Findings {
			if f.Severity != lastSeverity {
				fmt.Fprintf(&b, "### %s\n\n", f.Severity)
				lastSeverity = f.Severity
			}
			writeFinding(&b, f)
		}
	}

	writeNetworkSummary(&b, r.NetworkSummary)
	writeFilesystemSummary(&b, r.FilesystemSummary)
	writeDependencySummary(&b, r.DependencySummary)
	writeCompliance(&b, r.Compliance)

	return []byte(b.String())
}

func writeFinding(b *strings.Builder, f scan.Finding) {
	location := f.File
	if f.Line > 0 {
		location = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	fmt.Fprintf(b, "- **%s** (%s) — `%s`\n", f.Title, f.Category, location)
	if f.Evidence != "" {
		fmt.Fprintf(b, "  - Evidence: `%s`\n", strings.ReplaceAll(f.Evidence, "`", "'"))
	}
	if f.Rationale != "" {
		fmt.Fprintf(b, "  - Impact: %s\n", f.Rationale)
	}
	if f.Remediation != "" {
		fmt.Fprintf(b, "  - Remediation: %s\n", f.Remediation)
	}
	fmt.Fprintf(b, "\n")
}

func writeNetworkSummary(b *strings.Builder, s scan.NetworkSummary) {
	fmt.Fprintf(b, "## Network Summary\n\n")
	writeHostList(b, "Declared hosts", s.DeclaredHosts)
	writeHostList(b, "Referenced hosts", s.ReferencedHosts)
	writeHostList(b, "Undeclared hosts", s.UndeclaredHosts)
	fmt.Fprintf(b, "\n")
}

func writeFilesystemSummary(b *strings.Builder, s scan.FilesystemSummary) {
	fmt.Fprintf(b, "## Filesystem Summary\n\n")
	writeHostList(b, "Declared scopes", s.DeclaredScopes)
	writeHostList(b, "Paths accessed", s.PathsAccessed)
	writeHostList(b, "Outside package", s.OutsidePackage)
	fmt.Fprintf(b, "\n")
}

func writeDependencySummary(b *strings.Builder, s scan.DependencySummary) {
	fmt.Fprintf(b, "## Dependency Summary\n\n")
	writeHostList(b, "Declared", s.Declared)
	writeHostList(b, "Imported", s.Imported)
	writeHostList(b, "Undeclared", s.Undeclared)
	fmt.Fprintf(b, "\n")
}

func writeHostList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "- %s: none\n", label)
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(items, ", "))
}

func writeCompliance(b *strings.Builder, c scan.ComplianceChecklist) {
	fmt.Fprintf(b, "## Compliance Checklist\n\n")
	checks := []struct {
		label string
		ok    bool
	}{
		{"Manifest present", c.HasManifest},
		{"Manifest free of injection constructs", c.ManifestSafe},
		{"No undeclared network hosts", c.NoUndeclaredNetwork},
		{"No credential access", c.NoCredentialAccess},
		{"No obfuscated payloads", c.NoObfuscation},
		{"No command injection", c.NoCommandInjection},
		{"No disguised binaries", c.NoDisguisedBinaries},
		{"Dependencies declared", c.DependenciesDeclared},
	}
	for _, check := range checks {
		mark := "x"
		if !check.ok {
			mark = " "
		}
		fmt.Fprintf(b, "- [%s] %s\n", mark, check.label)
	}
}
