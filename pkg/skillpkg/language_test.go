package skillpkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		header   string
		expected string
	}{
		{"python extension", "scripts/run.py", "", "python"},
		{"bash extension", "setup.sh", "", "bash"},
		{"typescript extension", "src/index.ts", "", "typescript"},
		{"markdown", "SKILL.md", "", "markdown"},
		{"python shebang", "scripts/run", "#!/usr/bin/python3\nprint(1)\n", "python"},
		{"env shebang", "scripts/tool", "#!/usr/bin/env bash\necho hi\n", "bash"},
		{"versioned shebang", "scripts/tool", "#!/usr/bin/python3.12\n", "python"},
		{"node shebang", "bin/cli", "#!/usr/bin/env node\n", "javascript"},
		{"no extension no shebang", "LICENSE", "MIT License\n", LanguageUnknown},
		{"unknown extension", "data.qzx", "stuff", LanguageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectLanguage(tt.path, []byte(tt.header)))
		})
	}
}
