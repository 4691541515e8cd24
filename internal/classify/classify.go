package classify

import (
	"path/filepath"
	"strings"
)

// documentationExtensions and documentationNames implement the Glossary's
// "Documentation file" definition.
var documentationExtensions = map[string]bool{
	".md": true, ".mdx": true, ".markdown": true, ".rst": true, ".adoc": true, ".txt": true,
}

var documentationNames = map[string]bool{
	"readme": true, "license": true, "contributing": true, "changelog": true, "copying": true,
}

var documentationDirs = []string{"/docs/", "/documentation/", "/doc/", "/wiki/", "/examples/", "/guides/"}

// IsDocumentationFile reports whether path names a documentation file per
// the Glossary.
func IsDocumentationFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if documentationExtensions[ext] {
		return true
	}

	base := strings.ToLower(filepath.Base(path))
	nameOnly := strings.TrimSuffix(base, filepath.Ext(base))
	if documentationNames[nameOnly] || documentationNames[base] {
		return true
	}

	lowerPath := "/" + strings.ToLower(filepath.ToSlash(path)) + "/"
	for _, dir := range documentationDirs {
		if strings.Contains(lowerPath, dir) {
			return true
		}
	}
	return false
}

// testPathMarkers implements the Glossary's "Test file" definition.
var testPathMarkers = []string{"/__tests__/", "/tests/", "/specs/", "_test.", "_spec.", ".test.", ".spec."}

// IsTestFile reports whether path matches a recognised test-file pattern
// per the Glossary.
func IsTestFile(path string) bool {
	lowerPath := "/" + strings.ToLower(filepath.ToSlash(path)) + "/"
	for _, marker := range testPathMarkers {
		if strings.Contains(lowerPath, marker) {
			return true
		}
	}
	return false
}
