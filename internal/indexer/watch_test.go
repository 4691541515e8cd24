package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/care-engine/care/internal/vectorstore"
)

// TestWatchRunsInitialIndexAndReindexesOnChange exercises the filesystem
// watch loop end to end: an initial full index, then a debounced re-index
// triggered by a new file appearing after Watch has already started.
func TestWatchRunsInitialIndexAndReindexesOnChange(t *testing.T) {
	store := newTestStore(t)
	provider := &countingProvider{dim: 4}
	ix := New(store, provider, nil)
	root := writeProjectFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ix.Watch(ctx, root, Options{}, 50*time.Millisecond) }()

	// Wait for the initial index to land before mutating the tree.
	require.Eventually(t, func() bool {
		n, err := store.CountRows(context.Background(), vectorstore.TableFileEmbeddings)
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "internal", "widget", "extra.go"), []byte("package widget\n\nfunc Extra() int { return 2 }\n"), 0o644))

	require.Eventually(t, func() bool {
		n, err := store.CountRows(context.Background(), vectorstore.TableFileEmbeddings)
		return err == nil && n == 2
	}, 2*time.Second, 20*time.Millisecond, "new file should be picked up by the debounced re-index")

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}
