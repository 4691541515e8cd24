package classify

import (
	"path/filepath"
	"strings"
)

// extensionLanguages maps a lower-cased file extension to the language tag
// stored on file_embeddings and document_chunk_embeddings records, and used
// by the Context Inferer's technology vocabulary sweep.
var extensionLanguages = map[string]string{
	".go":         "go",
	".py":         "python",
	".js":         "javascript",
	".jsx":        "javascript",
	".mjs":        "javascript",
	".cjs":        "javascript",
	".ts":         "typescript",
	".tsx":        "typescript",
	".java":       "java",
	".kt":         "kotlin",
	".kts":        "kotlin",
	".rb":         "ruby",
	".php":        "php",
	".c":          "c",
	".h":          "c",
	".cc":         "cpp",
	".cpp":        "cpp",
	".cxx":        "cpp",
	".hpp":        "cpp",
	".cs":         "csharp",
	".rs":         "rust",
	".swift":      "swift",
	".scala":      "scala",
	".sh":         "shell",
	".bash":       "shell",
	".zsh":        "shell",
	".sql":        "sql",
	".html":       "html",
	".htm":        "html",
	".css":        "css",
	".scss":       "scss",
	".less":       "less",
	".yaml":       "yaml",
	".yml":        "yaml",
	".json":       "json",
	".toml":       "toml",
	".xml":        "xml",
	".proto":      "protobuf",
	".md":         "markdown",
	".mdx":        "markdown",
	".markdown":   "markdown",
	".rst":        "restructuredtext",
	".adoc":       "asciidoc",
	".tf":         "terraform",
	".dockerfile": "dockerfile",
	".graphql":    "graphql",
	".vue":        "vue",
}

// Language detects a record's language tag from its file extension (§4.5,
// §4.6 step 1). Returns "" when the extension is unrecognised or absent,
// except for the bare "Dockerfile" filename.
func Language(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if base == "dockerfile" {
		return "dockerfile"
	}
	ext := strings.ToLower(filepath.Ext(path))
	return extensionLanguages[ext]
}
