// Package git provides a small Git repository utility used alongside
// go-git's repository walking: detecting the current branch for CLI
// diagnostics when indexing a project.
package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// ErrNotGitRepo indicates the directory is not a Git repository.
var ErrNotGitRepo = errors.New("not a git repository")

// DetectBranch opens projectPath as a Git repository via go-git and
// returns its current branch name. Returns "detached" when HEAD does not
// point at a branch (detached HEAD).
func DetectBranch(projectPath string) (string, error) {
	repo, err := git.PlainOpenWithOptions(projectPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotGitRepo, projectPath)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}

	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "detached", nil
}
