package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillscan/pkg/history"
	"github.com/jingkaihe/skillscan/pkg/presenter"
	"github.com/jingkaihe/skillscan/pkg/report"
	"github.com/jingkaihe/skillscan/pkg/rules"
	"github.com/jingkaihe/skillscan/pkg/scanner"
	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

type ScanConfig struct {
	Verbose        bool
	Output         string
	Format         string
	Recursive      bool
	TimeoutSeconds int
	Workers        int
	IgnorePatterns []string
	SkipAnalyzers  []string
	MaxFileSize    int64
	NoSave         bool
}

func NewScanConfig() *ScanConfig {
	return &ScanConfig{
		Format:      "json",
		MaxFileSize: skillpkg.DefaultMaxFileSize,
	}
}

func getScanConfigFromFlags(cmd *cobra.Command) *ScanConfig {
	config := NewScanConfig()

	config.Verbose, _ = cmd.Flags().GetBool("verbose")
	config.Output, _ = cmd.Flags().GetString("output")
	config.Format, _ = cmd.Flags().GetString("format")
	config.Recursive, _ = cmd.Flags().GetBool("recursive")
	config.TimeoutSeconds, _ = cmd.Flags().GetInt("timeout")
	config.Workers, _ = cmd.Flags().GetInt("workers")
	config.IgnorePatterns, _ = cmd.Flags().GetStringArray("ignore")
	config.SkipAnalyzers, _ = cmd.Flags().GetStringArray("skip-analyzer")
	config.MaxFileSize, _ = cmd.Flags().GetInt64("max-file-size")
	config.NoSave, _ = cmd.Flags().GetBool("no-save")

	return config
}

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan a skill package for security risks",
	Long: `Scan a skill package directory and produce a security report.

The report goes to stdout (or --output); the summary goes to stderr. The
exit code reflects the recommendation: 0 approve, 1 review, 2 reject,
3 scan failed.

Examples:
  skillscan scan ./my-skill
  skillscan scan ./skills --recursive --format markdown
  skillscan scan ./my-skill --output report.json --timeout 60`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getScanConfigFromFlags(cmd)
		os.Exit(runScan(cmd.Context(), args[0], config))
	},
}

func init() {
	scanCmd.Flags().BoolP("verbose", "v", false, "Include rule details in the summary output")
	scanCmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	scanCmd.Flags().StringP("format", "f", "json", "Report format (json, markdown)")
	scanCmd.Flags().BoolP("recursive", "r", false, "Scan every subdirectory as its own skill package")
	scanCmd.Flags().Int("timeout", 0, "Overall scan deadline in seconds (0 = none)")
	scanCmd.Flags().Int("workers", 0, "Scanning worker count (0 = number of CPUs)")
	scanCmd.Flags().StringArray("ignore", nil, "Glob pattern of paths to skip (repeatable)")
	scanCmd.Flags().StringArray("skip-analyzer", nil, "Heuristic analyzer to skip (repeatable)")
	scanCmd.Flags().Int64("max-file-size", skillpkg.DefaultMaxFileSize, "Per-file content cap in bytes")
	scanCmd.Flags().Bool("no-save", false, "Do not record the scan in the local history")
}

func runScan(ctx context.Context, path string, config *ScanConfig) int {
	presenter.SetQuiet(viper.GetBool("quiet"))

	format, err := report.ParseFormat(config.Format)
	if err != nil {
		presenter.Error(err, "invalid arguments")
		return exitFatal
	}

	ruleset, err := rules.Load()
	if err != nil {
		presenter.Error(err, "failed to load rule catalog")
		return exitFatal
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		presenter.Warning("cancellation requested, shutting down...")
		cancel()
	}()

	engine := scanner.NewEngine(ruleset,
		scanner.WithWorkers(config.Workers),
		scanner.WithTimeout(time.Duration(config.TimeoutSeconds)*time.Second),
		scanner.WithSkipAnalyzers(config.SkipAnalyzers...),
		scanner.WithLoader(skillpkg.NewLoader(
			skillpkg.WithMaxFileSize(config.MaxFileSize),
			skillpkg.WithIgnorePatterns(config.IgnorePatterns...),
		)),
	)

	targets, err := scanTargets(path, config.Recursive)
	if err != nil {
		presenter.Error(err, "cannot resolve scan target")
		return exitFatal
	}

	var reports []*scan.Report
	for _, target := range targets {
		rep, err := engine.ScanPackage(ctx, target)
		if err != nil {
			presenter.Error(err, "scan failed for "+target)
			return exitFatal
		}
		presenter.ScanSummary(rep)
		if config.Verbose {
			printFindingDetails(rep)
		}
		reports = append(reports, rep)
	}

	if !config.NoSave {
		saveReports(ctx, reports)
	}

	out, err := renderReports(reports, format, config.Recursive)
	if err != nil {
		presenter.Error(err, "failed to render report")
		return exitFatal
	}

	if config.Output != "" {
		if err := os.WriteFile(config.Output, out, 0o644); err != nil {
			presenter.Error(err, "failed to write report")
			return exitFatal
		}
		presenter.Success("report written to " + config.Output)
	} else {
		fmt.Print(string(out))
	}

	return worstExitCode(reports)
}

// saveReports records the scans in the local history. History failures
// never fail the scan itself.
func saveReports(ctx context.Context, reports []*scan.Report) {
	store, err := history.OpenDefault(ctx)
	if err != nil {
		presenter.Warning("scan history unavailable: " + err.Error())
		return
	}
	defer store.Close()

	for _, rep := range reports {
		if err := store.Save(ctx, rep); err != nil {
			presenter.Warning("failed to record scan " + rep.ID + ": " + err.Error())
		}
	}
}

// scanTargets expands --recursive into one target per subdirectory.
func scanTargets(path string, recursive bool) ([]string, error) {
	if !recursive {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var targets []string
	for _, entry := range entries {
		if entry.IsDir() {
			targets = append(targets, filepath.Join(path, entry.Name()))
		}
	}
	if len(targets) == 0 {
		return nil, errors.Errorf("no skill directories found under %s", path)
	}
	sort.Strings(targets)
	return targets, nil
}

func renderReports(reports []*scan.Report, format report.Format, recursive bool) ([]byte, error) {
	if !recursive && len(reports) == 1 {
		return report.Render(reports[0], format)
	}

	if format == report.FormatJSON {
		out, err := json.MarshalIndent(map[string]any{"scans": reports}, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal reports")
		}
		return append(out, '\n'), nil
	}

	var combined []byte
	for _, rep := range reports {
		out, err := report.Render(rep, format)
		if err != nil {
			return nil, err
		}
		combined = append(combined, out...)
		combined = append(combined, '\n')
	}
	return combined, nil
}

func printFindingDetails(rep *scan.Report) {
	for _, f := range rep.Findings {
		location := f.File
		if f.Line > 0 {
			location = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		presenter.Info(fmt.Sprintf("[%s] %s (%s) %s", f.Severity, f.Title, f.Category, location))
	}
}

// worstExitCode maps the worst recommendation across all scanned
// packages onto the documented exit codes.
func worstExitCode(reports []*scan.Report) int {
	code := exitApprove
	for _, rep := range reports {
		switch rep.Summary.Recommendation {
		case scan.RecommendReject:
			return exitReject
		case scan.RecommendReview:
			code = exitReview
		}
	}
	return code
}
