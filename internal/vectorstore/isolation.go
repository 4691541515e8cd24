package vectorstore

import (
	"os"
	"path/filepath"
	"strings"
)

// ProjectIsolationPredicate returns the predicate enforcing §4.3 "Project
// isolation": every search is scoped to records whose ProjectPath matches,
// falling back to a filesystem existence probe for legacy records that
// predate the projectPath column (resolving the record's relative path
// against the project root and checking it still exists on disk).
func ProjectIsolationPredicate(projectPath string) Predicate {
	return func(r Record) bool {
		if r.ProjectPath != "" {
			return r.ProjectPath == projectPath
		}
		return legacyRecordBelongsToProject(r, projectPath)
	}
}

// legacyRecordBelongsToProject probes the filesystem for records lacking a
// projectPath column, using whichever path-like metadata field the record
// kind carries.
func legacyRecordBelongsToProject(r Record, projectPath string) bool {
	rel := legacyRelativePath(r)
	if rel == "" {
		return false
	}
	if filepath.IsAbs(rel) {
		return strings.HasPrefix(filepath.Clean(rel), filepath.Clean(projectPath))
	}
	abs := filepath.Join(projectPath, rel)
	if _, err := os.Stat(abs); err != nil {
		return false
	}
	return true
}

func legacyRelativePath(r Record) string {
	for _, key := range []string{"path", "originalDocumentPath", "filePath"} {
		if v, ok := r.Metadata[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// BatchFilesystemProbe resolves legacy-record existence for many records at
// once, de-duplicating stat calls against the same resolved path.
func BatchFilesystemProbe(records []Record, projectPath string) map[string]bool {
	seen := make(map[string]bool, len(records))
	out := make(map[string]bool, len(records))
	for _, r := range records {
		rel := legacyRelativePath(r)
		if rel == "" {
			out[r.ID] = false
			continue
		}
		abs := rel
		if !filepath.IsAbs(rel) {
			abs = filepath.Join(projectPath, rel)
		}
		if v, ok := seen[abs]; ok {
			out[r.ID] = v
			continue
		}
		_, err := os.Stat(abs)
		exists := err == nil
		seen[abs] = exists
		out[r.ID] = exists
	}
	return out
}
