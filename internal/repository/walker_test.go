package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalkSkipsDefaultSkipDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}")
	writeFile(t, root, "vendor/dep/dep.go", "package dep")

	candidates, err := Walk(context.Background(), root, WalkOptions{})
	require.NoError(t, err)

	var paths []string
	for _, c := range candidates {
		paths = append(paths, c.RelPath)
	}
	assert.Contains(t, paths, "main.go")
	assert.NotContains(t, paths, filepath.Join("node_modules", "pkg", "index.js"))
	assert.NotContains(t, paths, filepath.Join("vendor", "dep", "dep.go"))
}

func TestWalkSkipsBinaryExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "logo.png", "binary-ish")
	writeFile(t, root, "main.go", "package main")

	candidates, err := Walk(context.Background(), root, WalkOptions{})
	require.NoError(t, err)

	for _, c := range candidates {
		assert.NotEqual(t, "logo.png", c.RelPath)
	}
}

func TestWalkSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, maxFileSize+1)
	writeFile(t, root, "huge.txt", string(big))
	writeFile(t, root, "small.txt", "tiny")

	candidates, err := Walk(context.Background(), root, WalkOptions{})
	require.NoError(t, err)

	var paths []string
	for _, c := range candidates {
		paths = append(paths, c.RelPath)
	}
	assert.NotContains(t, paths, "huge.txt")
	assert.Contains(t, paths, "small.txt")
}

func TestWalkAppliesUserExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package main")
	writeFile(t, root, "skip_test.go", "package main")

	candidates, err := Walk(context.Background(), root, WalkOptions{ExcludePatterns: []string{"*_test.go"}})
	require.NoError(t, err)

	var paths []string
	for _, c := range candidates {
		paths = append(paths, c.RelPath)
	}
	assert.Contains(t, paths, "keep.go")
	assert.NotContains(t, paths, "skip_test.go")
}

func TestWalkRespectsGitignoreFallbackWhenNotARepo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "ignored.txt\n")
	writeFile(t, root, "ignored.txt", "should not appear")
	writeFile(t, root, "kept.txt", "should appear")

	candidates, err := Walk(context.Background(), root, WalkOptions{RespectGitignore: true})
	require.NoError(t, err)

	var paths []string
	for _, c := range candidates {
		paths = append(paths, c.RelPath)
	}
	assert.Contains(t, paths, "kept.txt")
	assert.NotContains(t, paths, "ignored.txt")
}

func TestWalkReportsSizeAndModTime(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")

	candidates, err := Walk(context.Background(), root, WalkOptions{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(len("package a")), candidates[0].Size)
	assert.False(t, candidates[0].ModTime.IsZero())
}
