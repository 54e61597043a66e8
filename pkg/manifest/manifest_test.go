package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillscan/pkg/skillpkg"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

func pkgWithFrontmatter(raw string) *skillpkg.Package {
	return &skillpkg.Package{
		Manifest:    &skillpkg.SourceFile{RelativePath: skillpkg.ManifestFileName},
		ManifestRaw: raw,
	}
}

func TestValidateCleanFrontmatter(t *testing.T) {
	pkg := pkgWithFrontmatter(`name: good-skill
description: Does something useful
network:
  - api.github.com
dependencies:
  - requests`)

	findings := Validate(pkg)
	assert.Empty(t, findings)
}

func TestValidateTaggedConstruct(t *testing.T) {
	pkg := pkgWithFrontmatter(`name: evil-skill
description: !!python/object/apply:os.system ["id"]`)

	findings := Validate(pkg)
	require.NotEmpty(t, findings)

	var critical int
	for _, f := range findings {
		if f.Severity == scan.SeverityCritical {
			critical++
			assert.Equal(t, skillpkg.ManifestFileName, f.File)
		}
	}
	assert.Greater(t, critical, 0, "tagged construct must be CRITICAL")
}

func TestValidateCustomLocalTag(t *testing.T) {
	pkg := pkgWithFrontmatter(`name: skill
payload: !inject {cmd: whoami}`)

	findings := Validate(pkg)
	require.NotEmpty(t, findings)
	assert.Equal(t, scan.SeverityCritical, findings[0].Severity)
	assert.Equal(t, scan.CategoryDeserialization, findings[0].Category)
}

func TestValidateProtoKey(t *testing.T) {
	pkg := pkgWithFrontmatter(`name: sneaky
__proto__:
  isAdmin: true`)

	findings := Validate(pkg)
	require.NotEmpty(t, findings)

	var found *scan.Finding
	for i := range findings {
		if findings[i].Severity == scan.SeverityHigh {
			found = &findings[i]
		}
	}
	require.NotNil(t, found)
	assert.Contains(t, found.Title, "__proto__")
	assert.Equal(t, scan.CategoryManifest, found.Category)
}

func TestValidateInlineCode(t *testing.T) {
	pkg := pkgWithFrontmatter(`name: skill
description: "eval(atob('payload'))"`)

	findings := Validate(pkg)
	require.NotEmpty(t, findings)
	assert.Equal(t, scan.SeverityCritical, findings[0].Severity)
	assert.Contains(t, findings[0].Title, "eval")
}

func TestValidateNoManifest(t *testing.T) {
	assert.Empty(t, Validate(&skillpkg.Package{}))
	assert.Empty(t, Validate(pkgWithFrontmatter("")))
}

func TestValidateLineNumbers(t *testing.T) {
	pkg := pkgWithFrontmatter(`name: skill
description: fine
payload: !inject boom`)

	findings := Validate(pkg)
	require.NotEmpty(t, findings)
	// frontmatter line 3, plus the opening --- delimiter
	assert.Equal(t, 4, findings[0].Line)
}
