package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchedSkipDirs mirrors the pre-filter's excluded-directory list (§4.5
// step 3) so the watcher never arms inotify/kqueue handles inside build
// output or VCS metadata.
var watchedSkipDirs = map[string]bool{
	"node_modules": true, "dist": true, "build": true,
	".git": true, "coverage": true, "vendor": true,
}

// DefaultDebounce is how long the watcher waits after the last observed
// filesystem event before triggering a re-index (§6.4 watch mode).
const DefaultDebounce = 500 * time.Millisecond

// Watch runs IndexProject once, then re-runs it after every burst of
// filesystem change settles, until ctx is cancelled. Each re-index is a
// full IndexProject call — incremental by construction, since the mtime
// and content-hash gates in IndexProject already skip unchanged files
// (§4.5), so a debounced full re-index costs nothing beyond walking the
// tree and reading changed files.
func (ix *Indexer) Watch(ctx context.Context, rootDir string, opts Options, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	if _, err := ix.IndexProject(ctx, rootDir, nil, opts); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// fsnotify unavailable (e.g. inotify instance limit reached): log
		// and degrade to a one-shot index rather than fail the command.
		ix.logger.Warn(ctx, "filesystem watch unavailable, ran a one-shot index instead", zap.Error(err))
		return nil
	}
	defer watcher.Close()

	if err := addDirsRecursively(watcher, rootDir); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
		}
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() && !watchedSkipDirs[filepath.Base(ev.Name)] {
					_ = watcher.Add(ev.Name)
				}
			}
			resetTimer()

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ix.logger.Warn(ctx, "filesystem watch error", zap.Error(werr))

		case <-timerC:
			timerC = nil
			if _, err := ix.IndexProject(ctx, rootDir, nil, opts); err != nil {
				ix.logger.Warn(ctx, "watch-triggered re-index failed", zap.Error(err))
			}
		}
	}
}

func addDirsRecursively(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() != filepath.Base(root) && watchedSkipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
