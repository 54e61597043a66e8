package skillpkg

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
)

// LanguageUnknown is the language assigned when neither the extension nor
// a shebang identifies the file. Unknown files are still scanned with
// rules whose language set is "any".
const LanguageUnknown = "unknown"

// Common language mappings for file extensions
var extensionToLanguage = map[string]string{
	"py":   "python",
	"pyw":  "python",
	"sh":   "bash",
	"bash": "bash",
	"zsh":  "shell",
	"fish": "shell",
	"js":   "javascript",
	"mjs":  "javascript",
	"cjs":  "javascript",
	"jsx":  "javascript",
	"ts":   "typescript",
	"tsx":  "typescript",
	"rb":   "ruby",
	"pl":   "perl",
	"pm":   "perl",
	"php":  "php",
	"go":   "go",
	"rs":   "rust",
	"lua":  "lua",
	"r":    "r",
	"yaml": "yaml",
	"yml":  "yaml",
	"json": "json",
	"toml": "toml",
	"xml":  "xml",
	"md":   "markdown",
	"txt":  "text",
	"html": "html",
	"htm":  "html",
	"css":  "css",
	"sql":  "sql",
}

var shebangToLanguage = map[string]string{
	"python":  "python",
	"python3": "python",
	"bash":    "bash",
	"sh":      "bash",
	"zsh":     "shell",
	"node":    "javascript",
	"ruby":    "ruby",
	"perl":    "perl",
}

// DetectLanguage infers the source language of a file from its extension,
// falling back to the shebang line of the file header. Returns
// LanguageUnknown when neither identifies the file.
func DetectLanguage(filePath string, header []byte) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if lang, ok := extensionToLanguage[ext]; ok {
		return lang
	}

	if lang := detectFromShebang(header); lang != "" {
		return lang
	}

	return LanguageUnknown
}

func detectFromShebang(header []byte) string {
	if !bytes.HasPrefix(header, []byte("#!")) {
		return ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(header))
	if !scanner.Scan() {
		return ""
	}

	line := strings.TrimPrefix(scanner.Text(), "#!")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}

	interp := filepath.Base(fields[0])
	if interp == "env" && len(fields) > 1 {
		interp = filepath.Base(fields[1])
	}

	// strip version suffixes like python3.12
	for name, lang := range shebangToLanguage {
		if interp == name || strings.HasPrefix(interp, name+".") {
			return lang
		}
	}

	return ""
}
