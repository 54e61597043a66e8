package skillpkg

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// loadManifest locates the root SKILL.md, splits frontmatter from body,
// and extracts the declared capabilities. Structural problems become
// findings; the frontmatter injection checks live in pkg/manifest and
// operate on the raw frontmatter text captured here.
func (l *Loader) loadManifest(pkg *Package, walkAborted bool) {
	for _, f := range pkg.Files {
		if f.RelativePath == ManifestFileName {
			pkg.Manifest = f
			break
		}
	}

	if pkg.Manifest == nil {
		// an aborted walk may simply not have reached the manifest;
		// absence is only reportable after a complete walk
		if walkAborted {
			return
		}
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:    scan.SeverityCritical,
			Category:    scan.CategoryStructure,
			Title:       "missing " + ManifestFileName,
			File:        ".",
			Rationale:   "The skill has no manifest, so its purpose and declared capabilities cannot be established.",
			Remediation: "Add a " + ManifestFileName + " with YAML frontmatter declaring name and description.",
		})
		return
	}

	content, err := pkg.Manifest.Content()
	if err != nil {
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:  scan.SeverityLow,
			Category:  scan.CategoryStructure,
			Title:     "unreadable manifest",
			File:      ManifestFileName,
			Rationale: "The manifest could not be read: " + err.Error(),
		})
		return
	}

	raw, body := splitFrontmatter(string(content))
	pkg.ManifestRaw = raw
	pkg.ManifestBody = body

	if raw == "" {
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:    scan.SeverityHigh,
			Category:    scan.CategoryManifest,
			Title:       "missing manifest frontmatter",
			File:        ManifestFileName,
			Line:        1,
			Rationale:   "Without frontmatter the skill metadata cannot be parsed and no capabilities are declared.",
			Remediation: "Add a YAML frontmatter block with name and description.",
		})
		return
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		pkg.LoadFindings = append(pkg.LoadFindings, scan.Finding{
			Severity:  scan.SeverityMedium,
			Category:  scan.CategoryManifest,
			Title:     "unparseable manifest frontmatter",
			File:      ManifestFileName,
			Line:      1,
			Rationale: "The frontmatter does not parse as YAML: " + err.Error(),
		})
		return
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return
	}

	if name, ok := metaData["name"].(string); ok && name != "" {
		pkg.Name = name
	}
	if desc, ok := metaData["description"].(string); ok {
		pkg.Description = desc
	}
	pkg.Capabilities = parseCapabilities(metaData)
}

// parseCapabilities reads declared capabilities from the frontmatter map.
// Hosts may be declared as `network: [host, ...]`,
// `network: {hosts: [...]}`, or the legacy `allowed-hosts:` key.
func parseCapabilities(metaData map[string]interface{}) Capabilities {
	var caps Capabilities

	switch network := metaData["network"].(type) {
	case []interface{}:
		caps.NetworkHosts = stringList(network)
	case map[string]interface{}:
		if hosts, ok := network["hosts"].([]interface{}); ok {
			caps.NetworkHosts = stringList(hosts)
		}
	case map[interface{}]interface{}:
		if hosts, ok := network["hosts"].([]interface{}); ok {
			caps.NetworkHosts = stringList(hosts)
		}
	}
	if hosts, ok := metaData["allowed-hosts"].([]interface{}); ok {
		caps.NetworkHosts = append(caps.NetworkHosts, stringList(hosts)...)
	}

	if scopes, ok := metaData["filesystem"].([]interface{}); ok {
		caps.FilesystemScopes = stringList(scopes)
	}
	if deps, ok := metaData["dependencies"].([]interface{}); ok {
		caps.Dependencies = stringList(deps)
	}

	return caps
}

func stringList(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitFrontmatter separates the leading --- delimited frontmatter block
// from the document body. Returns empty frontmatter when the document has
// none.
func splitFrontmatter(content string) (frontmatter, body string) {
	if !strings.HasPrefix(content, "---") {
		return "", content
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return "", content
	}

	frontmatter = strings.Join(lines[1:end], "\n")
	body = strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
	return frontmatter, body
}
