package repository

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/care-engine/care/internal/ignore"
)

// maxFileSize is the pre-filter's size ceiling (§4.5 step 3).
const maxFileSize int64 = 1 << 20 // 1 MiB

// defaultSkipDirs are never descended into, regardless of .gitignore (§4.5
// step 3).
var defaultSkipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
	".git":         true,
	"coverage":     true,
	"vendor":       true,
}

// binaryExtensions is the closed list of extensions the pre-filter skips
// without reading file content.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".svg": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".7z": true, ".rar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".pdf": true, ".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp3": true, ".mp4": true, ".mov": true, ".avi": true, ".wav": true,
	".class": true, ".jar": true, ".wasm": true,
	".lock": true, // package-manager lock files: huge, low signal
}

// FileCandidate is one surviving file after the directory walk, carrying
// the single stat call's worth of metadata the Indexer's mtime-gate needs.
type FileCandidate struct {
	AbsPath string
	RelPath string
	Size    int64
	ModTime time.Time
}

// WalkOptions configures the walk (§6.4 excludePatterns/respectGitignore).
type WalkOptions struct {
	ExcludePatterns  []string
	RespectGitignore bool
}

// Walk returns the filtered candidate file list under rootDir: skip-dirs,
// the binary-extension list, the 1 MiB size ceiling, user exclusion globs,
// and .gitignore are all applied here so the Indexer's pre-filter only
// needs to consult the store (§4.5 step 3). One stat per file.
func Walk(ctx context.Context, rootDir string, opts WalkOptions) ([]FileCandidate, error) {
	var matcher gitignore.Matcher
	excludePatterns := opts.ExcludePatterns

	if opts.RespectGitignore {
		if m := repoGitignoreMatcher(rootDir); m != nil {
			matcher = m
		} else if globs, err := ignoreFallbackPatterns(rootDir); err == nil {
			excludePatterns = append(append([]string{}, excludePatterns...), globs...)
		}
	}

	var out []FileCandidate
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path == rootDir {
			return nil
		}
		relPath, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			return fmt.Errorf("computing relative path: %w", relErr)
		}
		parts := strings.Split(filepath.ToSlash(relPath), "/")

		if d.IsDir() {
			if defaultSkipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.Match(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !shouldIncludeCandidate(relPath, parts, excludePatterns, matcher) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil // StatError: skipped, processing continues (§7)
		}
		if info.Size() > maxFileSize {
			return nil
		}

		out = append(out, FileCandidate{
			AbsPath: path,
			RelPath: relPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", rootDir, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out, nil
}

func shouldIncludeCandidate(relPath string, parts, excludePatterns []string, matcher gitignore.Matcher) bool {
	ext := strings.ToLower(filepath.Ext(relPath))
	if binaryExtensions[ext] {
		return false
	}
	if matcher != nil && matcher.Match(parts, false) {
		return false
	}
	basename := filepath.Base(relPath)
	for _, pattern := range excludePatterns {
		if matched, _ := filepath.Match(pattern, basename); matched {
			return false
		}
		if globMatchPath(pattern, relPath) {
			return false
		}
	}
	return true
}

// globMatchPath matches a "**"-aware glob pattern (as produced by
// internal/ignore.Parser, e.g. "**/node_modules/**") against a
// slash-normalised relative path. "**" matches zero or more whole path
// segments; every other segment is matched with filepath.Match semantics.
func globMatchPath(pattern, path string) bool {
	return matchSegments(strings.Split(filepath.ToSlash(pattern), "/"), strings.Split(filepath.ToSlash(path), "/"))
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	if pattern[0] == "**" {
		if len(pattern) == 1 {
			return true
		}
		for i := 0; i <= len(path); i++ {
			if matchSegments(pattern[1:], path[i:]) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	if matched, _ := filepath.Match(pattern[0], path[0]); !matched {
		return false
	}
	return matchSegments(pattern[1:], path[1:])
}

// repoGitignoreMatcher resolves .gitignore the precise way, via go-git,
// when rootDir itself holds a .git entry. Returns nil otherwise (including
// when rootDir is a subdirectory of a repository) or when no patterns are
// found, so the caller falls back to internal/ignore.
func repoGitignoreMatcher(rootDir string) gitignore.Matcher {
	if _, err := os.Stat(filepath.Join(rootDir, ".git")); err != nil {
		return nil
	}
	fsys := osfs.New(rootDir)
	patterns, err := gitignore.ReadPatterns(fsys, nil)
	if err != nil || len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}

// ignoreFallbackPatterns parses .gitignore/.dockerignore at the project
// root into glob-style exclude patterns when the directory isn't a Git
// repository (§4.5 step 3 "otherwise parsed and matched against
// nearest-ancestor rules" — the project root is the nearest, and only,
// ancestor with rules in the non-repository case).
func ignoreFallbackPatterns(rootDir string) ([]string, error) {
	parser := ignore.NewParser([]string{".gitignore", ".dockerignore"}, nil)
	return parser.ParseProject(rootDir)
}
