package scanner

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillscan/pkg/aggregate"
	"github.com/jingkaihe/skillscan/pkg/analyzers"
	"github.com/jingkaihe/skillscan/pkg/logger"
	"github.com/jingkaihe/skillscan/pkg/manifest"
	"github.com/jingkaihe/skillscan/pkg/rules"
	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
	"github.com/jingkaihe/skillscan/pkg/version"
)

// Engine runs the full scan pipeline for one skill package: load,
// manifest validation, parallel pattern scanning, heuristic analyzers,
// aggregation, and report assembly. The Engine itself holds only
// read-only state and can be reused across scans.
type Engine struct {
	rules         *rules.RuleSet
	loader        *skillpkg.Loader
	workers       int
	timeout       time.Duration
	skipAnalyzers []string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWorkers bounds the scanning worker pool.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTimeout sets the overall deadline for a whole scan. On expiry the
// partial results are still aggregated and reported.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithLoader overrides the package loader, e.g. to set ignore patterns
// or a different file size cap.
func WithLoader(l *skillpkg.Loader) EngineOption {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithSkipAnalyzers disables heuristic analyzers by name.
func WithSkipAnalyzers(names ...string) EngineOption {
	return func(e *Engine) {
		e.skipAnalyzers = append(e.skipAnalyzers, names...)
	}
}

// NewEngine creates an Engine over a loaded rule set.
func NewEngine(rs *rules.RuleSet, opts ...EngineOption) *Engine {
	e := &Engine{
		rules:   rs,
		loader:  skillpkg.NewLoader(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScanPackage scans one skill directory and returns its report. Only a
// missing or unwalkable path is an error; every per-file problem is a
// finding inside the report.
func (e *Engine) ScanPackage(ctx context.Context, path string) (*scan.Report, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	log := logger.G(ctx).WithField("path", path)

	pkg, err := e.loader.Load(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load skill package")
	}
	log = log.WithField("skill", pkg.Name)

	findings := append([]scan.Finding(nil), pkg.LoadFindings...)
	findings = append(findings, manifest.Validate(pkg)...)
	findings = append(findings, e.scanFiles(ctx, pkg)...)

	active := analyzers.Skip(analyzers.All(), e.skipAnalyzers)
	for _, a := range active {
		if ctx.Err() != nil {
			break
		}
		findings = append(findings, a.Analyze(pkg)...)
	}

	if ctx.Err() != nil {
		findings = append(findings, scan.Finding{
			Severity:  scan.SeverityLow,
			Category:  scan.CategoryStructure,
			Title:     "scan timed out, results incomplete",
			File:      ".",
			Rationale: "The scan deadline expired before every file and analyzer finished; findings below cover only what completed.",
		})
		log.Warn("scan deadline expired, reporting partial results")
	}

	scan.SortFindings(findings)

	network := (&analyzers.Network{}).Summary(pkg)
	filesystem := (&analyzers.PathTraversal{}).Summary(pkg)
	dependencies := (&analyzers.Dependencies{}).Summary(pkg)

	rep := &scan.Report{
		ID:                uuid.NewString(),
		Skill:             pkg.Name,
		Location:          pkg.Root,
		Timestamp:         time.Now().UTC(),
		ScannerVersion:    version.Version,
		Summary:           aggregate.Aggregate(findings),
		Findings:          findings,
		NetworkSummary:    network,
		FilesystemSummary: filesystem,
		DependencySummary: dependencies,
	}
	rep.Compliance = compliance(pkg, findings, rep)

	log.WithField("findings", len(findings)).
		WithField("risk", rep.Summary.OverallRisk).
		Info("scan complete")
	return rep, nil
}

// scanFiles runs the pattern scanner over the package files with a
// bounded worker pool. Each worker owns a file exclusively while
// scanning; findings flow back over a single results channel and are
// re-sorted later, so the report never depends on scheduling order.
func (e *Engine) scanFiles(ctx context.Context, pkg *skillpkg.Package) []scan.Finding {
	workers := e.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(pkg.Files) && len(pkg.Files) > 0 {
		workers = len(pkg.Files)
	}

	jobs := make(chan *skillpkg.SourceFile)
	results := make(chan []scan.Finding)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fs, err := ScanFile(f, e.rules)
				if err != nil {
					logger.G(ctx).WithError(err).WithField("file", f.RelativePath).Warn("file scan failed")
					continue
				}
				if len(fs) > 0 {
					results <- fs
				}
			}
		}()
	}

	go func() {
	produce:
		for _, f := range pkg.Files {
			select {
			case <-ctx.Done():
				break produce
			case jobs <- f:
			}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var findings []scan.Finding
	for fs := range results {
		findings = append(findings, fs...)
	}
	return findings
}

// compliance derives the pass/fail checklist from the final finding list
// and summaries.
func compliance(pkg *skillpkg.Package, findings []scan.Finding, rep *scan.Report) scan.ComplianceChecklist {
	c := scan.ComplianceChecklist{
		HasManifest:          pkg.Manifest != nil,
		ManifestSafe:         true,
		NoUndeclaredNetwork:  len(rep.NetworkSummary.UndeclaredHosts) == 0,
		NoCredentialAccess:   true,
		NoObfuscation:        true,
		NoCommandInjection:   true,
		NoDisguisedBinaries:  true,
		DependenciesDeclared: len(rep.DependencySummary.Undeclared) == 0,
	}
	for _, f := range findings {
		switch f.Category {
		case scan.CategoryManifest, scan.CategoryDeserialization:
			if f.File == skillpkg.ManifestFileName {
				c.ManifestSafe = false
			}
		case scan.CategoryCredentialTheft:
			c.NoCredentialAccess = false
		case scan.CategoryObfuscation:
			c.NoObfuscation = false
		case scan.CategoryCommandInjection:
			c.NoCommandInjection = false
		}
		if strings.HasPrefix(f.Title, "executable disguised") {
			c.NoDisguisedBinaries = false
		}
	}
	return c
}
