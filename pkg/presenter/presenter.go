// Package presenter provides consistent CLI output for user-facing
// messages: success, error, warning, informational, and the scan summary,
// with color support and quiet mode. The report itself goes to stdout;
// everything here goes to stderr so pipelines can separate them.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// Presenter defines the interface for consistent CLI output
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	ScanSummary(report *scan.Report)
	Separator()
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// TerminalPresenter implements Presenter for terminal output
type TerminalPresenter struct {
	output io.Writer
	quiet  bool
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto automatically detects whether to use colored output based on terminal capabilities
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output regardless of terminal capabilities
	ColorAlways
	// ColorNever disables colored output regardless of terminal capabilities
	ColorNever
)

// New creates a new TerminalPresenter writing to stderr with auto-detected color
func New() *TerminalPresenter {
	return NewWithOptions(os.Stderr, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with custom settings
func NewWithOptions(output io.Writer, colorMode ColorMode) *TerminalPresenter {
	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	case ColorAuto:
		// Let color package auto-detect
	}

	return &TerminalPresenter{output: output}
}

// detectColorMode determines the appropriate color mode based on environment
func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv("SKILLSCAN_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error displays an error message
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.output, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.output, "[ERROR] %v\n", err)
	}
}

// Success displays a success message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}

	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Fprintf(p.output, "✓ %s\n", message)
}

// Warning displays a warning message
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}

	warningColor := color.New(color.FgYellow, color.Bold)
	warningColor.Fprintf(p.output, "⚠ %s\n", message)
}

// Info displays an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}

	fmt.Fprintf(p.output, "%s\n", message)
}

// Section displays a section header with consistent formatting
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}

	headerColor := color.New(color.Bold)
	separator := strings.Repeat("-", len(title))

	headerColor.Fprintf(p.output, "%s\n", title)
	headerColor.Fprintf(p.output, "%s\n", separator)
}

// ScanSummary displays the one-screen result of a scan: skill name,
// overall risk, recommendation, and the severity histogram.
func (p *TerminalPresenter) ScanSummary(report *scan.Report) {
	if p.quiet || report == nil {
		return
	}

	p.Separator()
	fmt.Fprintf(p.output, "Skill: %s\n", report.Skill)

	riskColor := severityColor(report.Summary.OverallRisk)
	riskColor.Fprintf(p.output, "Overall Risk: %s\n", report.Summary.OverallRisk)

	recColor := recommendationColor(report.Summary.Recommendation)
	recColor.Fprintf(p.output, "Recommendation: %s\n", report.Summary.Recommendation)

	fmt.Fprintf(p.output, "Findings: %d (CRITICAL: %d, HIGH: %d, MEDIUM: %d, LOW: %d)\n",
		report.Summary.TotalFindings,
		report.Summary.Critical, report.Summary.High,
		report.Summary.Medium, report.Summary.Low)
	p.Separator()
}

func severityColor(severity scan.Severity) *color.Color {
	switch severity {
	case scan.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case scan.SeverityHigh:
		return color.New(color.FgRed)
	case scan.SeverityMedium:
		return color.New(color.FgYellow)
	case scan.SeverityLow:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

func recommendationColor(rec scan.Recommendation) *color.Color {
	switch rec {
	case scan.RecommendReject:
		return color.New(color.FgRed, color.Bold)
	case scan.RecommendReview:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

// Separator displays a visual separator
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}

	separatorColor := color.New(color.Faint)
	separatorColor.Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet returns whether quiet mode is enabled
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

// Global presenter instance for convenience
var defaultPresenter = New()

// Error displays an error message using the default presenter instance.
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// Success displays a success message using the default presenter instance.
func Success(message string) {
	defaultPresenter.Success(message)
}

// Warning displays a warning message using the default presenter instance.
func Warning(message string) {
	defaultPresenter.Warning(message)
}

// Info displays an informational message using the default presenter instance.
func Info(message string) {
	defaultPresenter.Info(message)
}

// Section displays a section header using the default presenter instance.
func Section(title string) {
	defaultPresenter.Section(title)
}

// ScanSummary displays a scan summary using the default presenter instance.
func ScanSummary(report *scan.Report) {
	defaultPresenter.ScanSummary(report)
}

// Separator displays a visual separator using the default presenter instance.
func Separator() {
	defaultPresenter.Separator()
}

// SetQuiet enables or disables quiet mode for the default presenter instance.
func SetQuiet(quiet bool) {
	defaultPresenter.SetQuiet(quiet)
}

// IsQuiet returns whether quiet mode is enabled for the default presenter instance.
func IsQuiet() bool {
	return defaultPresenter.IsQuiet()
}
