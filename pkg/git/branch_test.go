package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepoWithCommit(t *testing.T) (dir string, repo *git.Repository, sha plumbing.Hash) {
	t.Helper()
	dir = t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	w, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("content"), 0o644))
	_, err = w.Add("file.txt")
	require.NoError(t, err)

	commit, err := w.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir, repo, commit
}

func TestDetectBranchOnDefaultBranch(t *testing.T) {
	dir, _, _ := initRepoWithCommit(t)

	branch, err := DetectBranch(dir)

	require.NoError(t, err)
	assert.NotEqual(t, "detached", branch)
	assert.NotEmpty(t, branch)
}

func TestDetectBranchOnFeatureBranch(t *testing.T) {
	dir, repo, sha := initRepoWithCommit(t)

	branchRef := plumbing.NewBranchReferenceName("feature/v3-rebuild")
	require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference(branchRef, sha)))

	w, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, w.Checkout(&git.CheckoutOptions{Branch: branchRef}))

	branch, err := DetectBranch(dir)

	require.NoError(t, err)
	assert.Equal(t, "feature/v3-rebuild", branch)
}

func TestDetectBranchDetachedHead(t *testing.T) {
	dir, repo, sha := initRepoWithCommit(t)

	w, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, w.Checkout(&git.CheckoutOptions{Hash: sha}))

	branch, err := DetectBranch(dir)

	require.NoError(t, err)
	assert.Equal(t, "detached", branch)
}

func TestDetectBranchNonGitDirectory(t *testing.T) {
	dir := t.TempDir()

	_, err := DetectBranch(dir)

	require.ErrorIs(t, err, ErrNotGitRepo)
}

func TestDetectBranchFromNestedSubdirectory(t *testing.T) {
	dir, _, _ := initRepoWithCommit(t)
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))

	branch, err := DetectBranch(sub)

	require.NoError(t, err, "DetectDotGit should walk up to the repository root")
	assert.NotEmpty(t, branch)
}
