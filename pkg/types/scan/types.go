// Package scan defines the shared value types of the skill security
// scanner: severities, finding categories, findings, and the final scan
// report. These types are immutable once produced and are the only
// contract between the scanning stages and the report renderers.
package scan

import "time"

// Severity is the severity level assigned to a finding.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// RiskSafe is the overall risk of a package with no findings at all.
// It is a risk rating only, never a finding severity.
const RiskSafe Severity = "SAFE"

var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
	RiskSafe:         0,
}

// Rank returns the numeric ordering of a severity, higher is worse.
// Unknown severities rank below SAFE so they sort last.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Valid reports whether s is one of the four finding severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// MaxSeverity returns the higher-ranked of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Category classifies what kind of risk a finding represents.
type Category string

const (
	CategoryCommandInjection Category = "CommandInjection"
	CategoryCodeExecution    Category = "CodeExecution"
	CategoryDeserialization  Category = "Deserialization"
	CategoryDataExfiltration Category = "DataExfiltration"
	CategoryCredentialTheft  Category = "CredentialTheft"
	CategoryPathTraversal    Category = "PathTraversal"
	CategoryObfuscation      Category = "Obfuscation"
	CategorySupplyChain      Category = "SupplyChain"
	CategoryBestPractice     Category = "BestPractice"
	CategoryStructure        Category = "Structure"
	CategoryManifest         Category = "Manifest"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryCommandInjection, CategoryCodeExecution, CategoryDeserialization,
		CategoryDataExfiltration, CategoryCredentialTheft, CategoryPathTraversal,
		CategoryObfuscation, CategorySupplyChain, CategoryBestPractice,
		CategoryStructure, CategoryManifest:
		return true
	}
	return false
}

// Recommendation is the install decision derived from the aggregated risk.
type Recommendation string

const (
	RecommendReject  Recommendation = "REJECT"
	RecommendReview  Recommendation = "REVIEW"
	RecommendApprove Recommendation = "APPROVE"
)

// Finding is a single reported issue at a specific location. Findings are
// value objects: created by a scanner or analyzer, then only read.
type Finding struct {
	RuleID      string   `json:"rule_id,omitempty"`
	Severity    Severity `json:"severity"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	File        string   `json:"location"`
	Line        int      `json:"line,omitempty"`
	Evidence    string   `json:"evidence,omitempty"`
	Rationale   string   `json:"impact"`
	Remediation string   `json:"remediation,omitempty"`
}

// Summary is the severity histogram plus the derived risk and decision.
type Summary struct {
	OverallRisk    Severity       `json:"overall_risk"`
	TotalFindings  int            `json:"total_findings"`
	Critical       int            `json:"critical"`
	High           int            `json:"high"`
	Medium         int            `json:"medium"`
	Low            int            `json:"low"`
	Recommendation Recommendation `json:"recommendation"`
}

// NetworkSummary lists every literal host referenced by the package and
// whether each one was declared in the manifest capabilities.
type NetworkSummary struct {
	DeclaredHosts   []string `json:"declared_hosts,omitempty"`
	ReferencedHosts []string `json:"referenced_hosts,omitempty"`
	UndeclaredHosts []string `json:"undeclared_hosts,omitempty"`
}

// FilesystemSummary describes what the package touches on disk.
type FilesystemSummary struct {
	DeclaredScopes []string `json:"declared_scopes,omitempty"`
	PathsAccessed  []string `json:"paths_accessed,omitempty"`
	OutsidePackage []string `json:"outside_package,omitempty"`
}

// DependencySummary lists imports discovered in scripts against the
// dependencies the manifest declares.
type DependencySummary struct {
	Declared   []string `json:"declared,omitempty"`
	Imported   []string `json:"imported,omitempty"`
	Undeclared []string `json:"undeclared,omitempty"`
}

// ComplianceChecklist is a set of pass/fail gates derived from the scan,
// rendered verbatim in reports so pipelines can key off single booleans.
type ComplianceChecklist struct {
	HasManifest          bool `json:"has_manifest"`
	ManifestSafe         bool `json:"manifest_safe"`
	NoUndeclaredNetwork  bool `json:"no_undeclared_network"`
	NoCredentialAccess   bool `json:"no_credential_access"`
	NoObfuscation        bool `json:"no_obfuscation"`
	NoCommandInjection   bool `json:"no_command_injection"`
	NoDisguisedBinaries  bool `json:"no_disguised_binaries"`
	DependenciesDeclared bool `json:"dependencies_declared"`
}

// Report is the complete, immutable result of scanning one skill package.
type Report struct {
	ID                string              `json:"scan_id"`
	Skill             string              `json:"skill"`
	Location          string              `json:"location"`
	Timestamp         time.Time           `json:"timestamp"`
	ScannerVersion    string              `json:"scanner_version"`
	Summary           Summary             `json:"summary"`
	Findings          []Finding           `json:"findings"`
	NetworkSummary    NetworkSummary      `json:"network_summary"`
	FilesystemSummary FilesystemSummary   `json:"filesystem_summary"`
	DependencySummary DependencySummary   `json:"dependency_summary"`
	Compliance        ComplianceChecklist `json:"compliance_checklist"`
}
