package analyzers

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// analyzer-owned severities, fixed in code
const (
	severityUndeclaredHost      = scan.SeverityHigh
	severityUndocumentedNetwork = scan.SeverityHigh
)

var (
	urlHost    = regexp.MustCompile(`https?://([A-Za-z0-9][A-Za-z0-9.-]*\.[A-Za-z]{2,})`)
	networkOp  = regexp.MustCompile(`requests\.(get|post|put|delete|patch)|urllib\.request\.urlopen|socket\.(socket|create_connection)|http\.client|\bfetch\s*\(|axios\.|curl\s|wget\s`)
	networkDoc = regexp.MustCompile(`(?i)network|http|api|request|endpoint|upload|download`)
)

// hosts never worth flagging: loopback access stays on the machine
var localHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
}

// Network extracts literal hosts from source files and cross-references
// them against the hosts the manifest declares. Referenced hosts the
// manifest covers are informational; an undeclared host in a code file is
// a finding. Declared hosts may be glob patterns like *.github.com.
type Network struct{}

// Name implements Analyzer.
func (a *Network) Name() string { return "network" }

// Analyze implements Analyzer.
func (a *Network) Analyze(pkg *skillpkg.Package) []scan.Finding {
	matcher := newHostMatcher(pkg.Capabilities.NetworkHosts)

	var findings []scan.Finding
	flagged := make(map[string]bool)
	sawNetworkOp := false

	for _, f := range pkg.Files {
		if !isCode(f) {
			continue
		}
		for i, line := range fileLines(f) {
			if networkOp.MatchString(line) {
				sawNetworkOp = true
			}
			for _, m := range urlHost.FindAllStringSubmatch(line, -1) {
				host := strings.ToLower(m[1])
				if localHosts[host] || matcher.matches(host) || flagged[host] {
					continue
				}
				flagged[host] = true
				findings = append(findings, scan.Finding{
					Severity:    severityUndeclaredHost,
					Category:    scan.CategoryDataExfiltration,
					Title:       "undeclared network host: " + host,
					File:        f.RelativePath,
					Line:        i + 1,
					Evidence:    trimEvidence(line),
					Rationale:   "The skill references a host its manifest does not declare, so installers cannot know the skill talks to it.",
					Remediation: "Declare the host under the manifest network capabilities, or remove the reference.",
				})
			}
		}
	}

	if sawNetworkOp && len(pkg.Capabilities.NetworkHosts) == 0 && !networkDoc.MatchString(pkg.ManifestRaw+pkg.ManifestBody) {
		findings = append(findings, scan.Finding{
			Severity:    severityUndocumentedNetwork,
			Category:    scan.CategoryBestPractice,
			Title:       "undocumented network access",
			File:        skillpkg.ManifestFileName,
			Rationale:   "Scripts perform network operations but the manifest neither declares hosts nor mentions network use.",
			Remediation: "Document the network access and declare the hosts in the manifest.",
		})
	}

	return findings
}

// Summary reports every referenced host and how it relates to the
// declared capabilities. Hosts in documentation files count here even
// though only code files produce findings.
func (a *Network) Summary(pkg *skillpkg.Package) scan.NetworkSummary {
	matcher := newHostMatcher(pkg.Capabilities.NetworkHosts)

	referenced := make(map[string]bool)
	for _, f := range pkg.Files {
		if f.Binary {
			continue
		}
		for _, line := range fileLines(f) {
			for _, m := range urlHost.FindAllStringSubmatch(line, -1) {
				referenced[strings.ToLower(m[1])] = true
			}
		}
	}

	summary := scan.NetworkSummary{
		DeclaredHosts: append([]string(nil), pkg.Capabilities.NetworkHosts...),
	}
	for host := range referenced {
		summary.ReferencedHosts = append(summary.ReferencedHosts, host)
		if !localHosts[host] && !matcher.matches(host) {
			summary.UndeclaredHosts = append(summary.UndeclaredHosts, host)
		}
	}
	sort.Strings(summary.DeclaredHosts)
	sort.Strings(summary.ReferencedHosts)
	sort.Strings(summary.UndeclaredHosts)
	return summary
}

// hostMatcher matches hostnames against declared capability entries:
// exact names cover themselves and their subdomains, entries with glob
// metacharacters are compiled as patterns.
type hostMatcher struct {
	exact    map[string]bool
	patterns []glob.Glob
}

func newHostMatcher(declared []string) *hostMatcher {
	m := &hostMatcher{exact: make(map[string]bool, len(declared))}
	for _, d := range declared {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if strings.ContainsAny(d, "*?[") {
			if g, err := glob.Compile(d, '.'); err == nil {
				m.patterns = append(m.patterns, g)
			}
			continue
		}
		m.exact[d] = true
	}
	return m
}

func (m *hostMatcher) matches(host string) bool {
	if m.exact[host] {
		return true
	}
	for declared := range m.exact {
		if strings.HasSuffix(host, "."+declared) {
			return true
		}
	}
	for _, g := range m.patterns {
		if g.Match(host) {
			return true
		}
	}
	return false
}
