package skillpkg

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillscan/pkg/logger"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

const headerProbeSize = 8 * 1024

// executable file magics checked against document-like extensions
var executableMagics = [][]byte{
	{0x7f, 'E', 'L', 'F'},       // ELF
	{'M', 'Z'},                  // PE
	{0xca, 0xfe, 0xba, 0xbe},    // Mach-O fat / Java class
	{0xfe, 0xed, 0xfa, 0xce},    // Mach-O 32-bit
	{0xfe, 0xed, 0xfa, 0xcf},    // Mach-O 64-bit
	{'#', '!', '/'},             // script with shebang
}

var documentExtensions = map[string]bool{
	".txt": true, ".md": true, ".pdf": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

// Loader walks skill package directories into Package models.
type Loader struct {
	maxFileSize    int64
	ignorePatterns []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithMaxFileSize overrides the per-file content cap.
func WithMaxFileSize(n int64) Option {
	return func(l *Loader) {
		l.maxFileSize = n
	}
}

// WithIgnorePatterns adds doublestar glob patterns (matched against the
// slash-separated relative path) whose files are excluded from the scan.
func WithIgnorePatterns(patterns ...string) Option {
	return func(l *Loader) {
		l.ignorePatterns = append(l.ignorePatterns, patterns...)
	}
}

// NewLoader creates a Loader with the default size cap.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load walks root and builds the package model. A missing or unreadable
// root is a hard error; every per-file problem becomes a finding and the
// walk continues. Symlinks are never followed.
func (l *Loader) Load(ctx context.Context, root string) (*Package, error) {
	log := logger.G(ctx)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", root)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "skill path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("skill path is not a directory: %s", root)
	}

	pkg := &Package{
		Root: absRoot,
		Name: filepath.Base(absRoot),
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
				Severity:  scan.SeverityLow,
				Category:  scan.CategoryStructure,
				Title:     "unreadable path",
				File:      rel,
				Rationale: "The path could not be read, so its content was not analyzed: " + walkErr.Error(),
			})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != absRoot && (d.Name() == ".git" || l.ignored(rel+"/")) {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			l.recordSymlink(pkg, path, rel)
			return nil
		}

		if l.ignored(rel) {
			return nil
		}

		l.loadFile(pkg, path, rel)
		return nil
	})
	walkAborted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && !walkAborted {
		return nil, errors.Wrap(err, "failed to walk skill package")
	}

	l.loadManifest(pkg, walkAborted)
	log.WithField("files", len(pkg.Files)).WithField("skill", pkg.Name).Debug("loaded skill package")
	return pkg, nil
}

func (l *Loader) ignored(rel string) bool {
	for _, pattern := range l.ignorePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// recordSymlink flags symlinks instead of following them. A link whose
// target resolves outside the package root is treated as an escape
// attempt.
func (l *Loader) recordSymlink(pkg *Package, path, rel string) {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:  scan.SeverityLow,
			Category:  scan.CategoryStructure,
			Title:     "broken symlink",
			File:      rel,
			Rationale: "Symlink target could not be resolved; the link was not followed.",
		})
		return
	}

	resolvedRoot, err := filepath.EvalSymlinks(pkg.Root)
	if err != nil {
		resolvedRoot = pkg.Root
	}
	relTarget, err := filepath.Rel(resolvedRoot, target)
	if err != nil || relTarget == ".." || strings.HasPrefix(relTarget, ".."+string(filepath.Separator)) {
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:    scan.SeverityHigh,
			Category:    scan.CategoryPathTraversal,
			Title:       "symlink escapes package root",
			File:        rel,
			Evidence:    "-> " + target,
			Rationale:   "A symlink pointing outside the package can expose or modify files the skill has no business touching.",
			Remediation: "Remove the symlink or replace it with a copy of the intended file.",
		})
		return
	}

	pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
		Severity:  scan.SeverityLow,
		Category:  scan.CategoryStructure,
		Title:     "symlink not followed",
		File:      rel,
		Rationale: "Symlinks are not followed during scanning; the linked content was not analyzed.",
	})
}

func (l *Loader) loadFile(pkg *Package, path, rel string) {
	file, err := os.Open(path)
	if err != nil {
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:  scan.SeverityLow,
			Category:  scan.CategoryStructure,
			Title:     "unreadable file",
			File:      rel,
			Rationale: "The file could not be opened, so its content was not analyzed: " + err.Error(),
		})
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:  scan.SeverityLow,
			Category:  scan.CategoryStructure,
			Title:     "unreadable file",
			File:      rel,
			Rationale: "The file could not be inspected: " + err.Error(),
		})
		return
	}

	header := make([]byte, headerProbeSize)
	n, err := readFull(file, header)
	if err != nil {
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:  scan.SeverityLow,
			Category:  scan.CategoryStructure,
			Title:     "unreadable file",
			File:      rel,
			Rationale: "The file header could not be read: " + err.Error(),
		})
		return
	}
	header = header[:n]

	sf := &SourceFile{
		RelativePath: rel,
		AbsolutePath: path,
		Size:         info.Size(),
		Binary:       bytes.IndexByte(header, 0) >= 0,
		maxSize:      l.maxFileSize,
	}
	sf.Language = DetectLanguage(rel, header)

	if sf.Binary {
		sf.Language = "binary"
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:  scan.SeverityLow,
			Category:  scan.CategoryStructure,
			Title:     "binary file present",
			File:      rel,
			Rationale: "Binary content cannot be pattern-scanned and was excluded from content analysis.",
		})
	}

	if finding, ok := disguisedExecutable(rel, header); ok {
		pkg.LoadFindings = append(pkg.LoadFindings, finding)
	}

	if sf.Size > l.maxFileSize {
		sf.Truncated = true
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:  scan.SeverityLow,
			Category:  scan.CategoryStructure,
			Title:     "file too large to fully scan",
			File:      rel,
			Rationale: "The file exceeds the scan size cap; only the leading portion was analyzed.",
		})
	}

	pkg.Files = append(pkg.Files, sf)
}

// disguisedExecutable flags executable magic bytes hiding behind a
// document extension. Shebang scripts named like documents count too.
func disguisedExecutable(rel string, header []byte) (scan.Finding, bool) {
	ext := strings.ToLower(filepath.Ext(rel))
	if !documentExtensions[ext] {
		return scan.Finding{}, false
	}
	// a markdown file legitimately starts with #! only in a fenced block,
	// never at byte zero
	for _, magic := range executableMagics {
		if bytes.HasPrefix(header, magic) {
			return scan.Finding{
				Severity:    scan.SeverityHigh,
				Category:    scan.CategorySupplyChain,
				Title:       "executable disguised as " + ext + " file",
				File:        rel,
				Rationale:   "The file carries an executable header but a document extension, a common way to smuggle binaries past review.",
				Remediation: "Remove the file or rename it to reflect its real content.",
			}, true
		}
	}
	return scan.Finding{}, false
}

func readFull(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, nil
	}
	return n, err
}
