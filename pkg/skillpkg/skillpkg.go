// Package skillpkg loads a skill package directory into an in-memory
// model for scanning. The loader walks the directory without following
// symlinks, classifies each file by language, detects binary content, and
// parses the SKILL.md manifest for declared capabilities. Problems with
// individual files become findings rather than errors so one unreadable
// file never aborts a scan.
package skillpkg

import (
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// ManifestFileName is the required manifest at the package root.
const ManifestFileName = "SKILL.md"

// DefaultMaxFileSize caps how much of a file is loaded for scanning.
// Files over the cap are truncated and flagged with a LOW finding.
const DefaultMaxFileSize = 5 * 1024 * 1024

// Capabilities are the permissions a skill declares in its manifest
// frontmatter. They are read as text only; the scanner never acts on them.
type Capabilities struct {
	NetworkHosts     []string
	FilesystemScopes []string
	Dependencies     []string
}

// SourceFile is one file of the package. Content is loaded lazily and
// capped at the loader's maximum size.
type SourceFile struct {
	RelativePath string
	AbsolutePath string
	Language     string
	Size         int64
	Binary       bool
	Truncated    bool

	maxSize     int64
	content     []byte
	loaded      bool
	lineOffsets []int
}

// Content returns the file content, loading it on first use. Binary files
// have no scannable content. The returned slice is at most the loader's
// size cap; Truncated reports whether anything was cut off.
func (f *SourceFile) Content() ([]byte, error) {
	if f.loaded {
		return f.content, nil
	}
	if f.Binary {
		f.loaded = true
		return nil, nil
	}

	file, err := os.Open(f.AbsolutePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", f.RelativePath)
	}
	defer file.Close()

	limit := f.maxSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	buf := make([]byte, limit)
	n, err := readFull(file, buf)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", f.RelativePath)
	}

	f.content = buf[:n]
	f.loaded = true
	f.computeLineOffsets()
	return f.content, nil
}

// LineOf converts a byte offset within the loaded content into a 1-based
// line number. Content must have been loaded first.
func (f *SourceFile) LineOf(offset int) int {
	offsets := f.lineOffsets
	if len(offsets) == 0 {
		return 1
	}
	// first line starting after offset; the match is on the line before it
	idx := sort.Search(len(offsets), func(i int) bool { return offsets[i] > offset })
	return idx
}

func (f *SourceFile) computeLineOffsets() {
	f.lineOffsets = f.lineOffsets[:0]
	f.lineOffsets = append(f.lineOffsets, 0)
	for i, b := range f.content {
		if b == '\n' && i+1 < len(f.content) {
			f.lineOffsets = append(f.lineOffsets, i+1)
		}
	}
}

// Package is one skill directory loaded for analysis. It is owned by a
// single scan invocation; Files is read-only once Load returns.
type Package struct {
	Root         string
	Name         string
	Description  string
	Manifest     *SourceFile
	ManifestRaw  string // raw frontmatter text, empty when absent
	ManifestBody string // manifest body with frontmatter stripped
	Files        []*SourceFile
	Capabilities Capabilities

	// LoadFindings are problems observed while loading (binary files,
	// oversized files, unreadable files, symlinks, disguised
	// executables). They are merged into the scan findings unchanged.
	LoadFindings []scan.Finding
}
