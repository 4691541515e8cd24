package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/care-engine/care/internal/embeddings"
	"github.com/care-engine/care/internal/vectorstore"
)

// countingProvider is a fake embeddings.Provider that counts EmbedBatch
// invocations, so tests can assert the zero-embeddings-on-no-op-reindex
// property (§8 property 3).
type countingProvider struct {
	dim        int
	batchCalls int
}

func (p *countingProvider) EmbedPassage(_ context.Context, text string) (embeddings.Vector, error) {
	if text == "" {
		return nil, nil
	}
	return p.vectorFor(text), nil
}

func (p *countingProvider) EmbedQuery(ctx context.Context, text string) (embeddings.Vector, error) {
	return p.EmbedPassage(ctx, text)
}

func (p *countingProvider) EmbedBatch(_ context.Context, texts []string) ([]embeddings.Vector, error) {
	p.batchCalls++
	out := make([]embeddings.Vector, len(texts))
	for i, t := range texts {
		if t == "" {
			continue
		}
		out[i] = p.vectorFor(t)
	}
	return out, nil
}

func (p *countingProvider) Dimension() int { return p.dim }
func (p *countingProvider) Close() error   { return nil }

func (p *countingProvider) vectorFor(text string) embeddings.Vector {
	v := make(embeddings.Vector, p.dim)
	for i := range v {
		v[i] = float32(len(text)%7+i) / 10
	}
	return v
}

func newTestStore(t *testing.T) vectorstore.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := vectorstore.NewSQLiteStore(vectorstore.Config{DataDir: dir, VectorDim: 4}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeProjectFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "internal", "widget"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "internal", "widget", "widget.go"), []byte("package widget\n\nfunc New() int { return 1 }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# Widget\n\n## Usage\n\nCall New().\n\n## Installation\n\ngo get it.\n"), 0o644))
	return root
}

func TestIndexProjectProcessesFilesAndDocs(t *testing.T) {
	store := newTestStore(t)
	provider := &countingProvider{dim: 4}
	ix := New(store, provider, nil)
	root := writeProjectFixture(t)

	summary, err := ix.IndexProject(context.Background(), root, nil, Options{})
	require.NoError(t, err)

	assert.Contains(t, summary.Processed, filepath.Join("internal", "widget", "widget.go"))
	assert.True(t, provider.batchCalls > 0)

	n, err := store.CountRows(context.Background(), vectorstore.TableFileEmbeddings)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	chunks, err := store.CountRows(context.Background(), vectorstore.TableDocumentChunks)
	require.NoError(t, err)
	assert.True(t, chunks >= 2, "README with two H2 headings should yield at least 2 chunks")

	dirRows, err := store.ListByProject(context.Background(), vectorstore.TableDirectory, root)
	require.NoError(t, err)
	require.Len(t, dirRows, 1)
}

func TestIndexProjectNoOpReRunEmbedsNothing(t *testing.T) {
	store := newTestStore(t)
	provider := &countingProvider{dim: 4}
	ix := New(store, provider, nil)
	root := writeProjectFixture(t)

	_, err := ix.IndexProject(context.Background(), root, nil, Options{})
	require.NoError(t, err)
	firstCalls := provider.batchCalls

	summary, err := ix.IndexProject(context.Background(), root, nil, Options{})
	require.NoError(t, err)

	assert.Equal(t, firstCalls, provider.batchCalls, "re-running IndexProject on unchanged filesystem state must not re-embed")
	assert.Empty(t, summary.Processed)
	assert.Contains(t, summary.Skipped, filepath.Join("internal", "widget", "widget.go"))
}

func TestIndexProjectReEmbedsOnContentChange(t *testing.T) {
	store := newTestStore(t)
	provider := &countingProvider{dim: 4}
	ix := New(store, provider, nil)
	root := writeProjectFixture(t)

	_, err := ix.IndexProject(context.Background(), root, nil, Options{})
	require.NoError(t, err)
	firstCalls := provider.batchCalls

	widgetPath := filepath.Join(root, "internal", "widget", "widget.go")
	require.NoError(t, os.WriteFile(widgetPath, []byte("package widget\n\nfunc New() int { return 2 }\n"), 0o644))
	// Ensure the mtime strictly advances past what the filesystem may have
	// truncated it to, so the pre-filter's mtime gate doesn't mask the change.
	future := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(widgetPath, future, future))

	summary, err := ix.IndexProject(context.Background(), root, nil, Options{})
	require.NoError(t, err)

	assert.True(t, provider.batchCalls > firstCalls, "content change must trigger re-embedding")
	assert.Contains(t, summary.Processed, filepath.Join("internal", "widget", "widget.go"))
}

func TestIndexProjectSkipsExcludedAndBinaryFiles(t *testing.T) {
	store := newTestStore(t)
	provider := &countingProvider{dim: 4}
	ix := New(store, provider, nil)
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "lib.js"), []byte("module.exports = {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.png"), []byte("not actually png data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	summary, err := ix.IndexProject(context.Background(), root, nil, Options{})
	require.NoError(t, err)

	assert.Contains(t, summary.Processed, "main.go")
	assert.NotContains(t, summary.Processed, filepath.Join("node_modules", "lib.js"))
	assert.NotContains(t, summary.Processed, "logo.png")
}

func TestIndexProjectHonoursExplicitFileSubset(t *testing.T) {
	store := newTestStore(t)
	provider := &countingProvider{dim: 4}
	ix := New(store, provider, nil)
	root := writeProjectFixture(t)

	summary, err := ix.IndexProject(context.Background(), root, []string{filepath.Join("internal", "widget", "widget.go")}, Options{})
	require.NoError(t, err)

	assert.Contains(t, summary.Processed, filepath.Join("internal", "widget", "widget.go"))
	assert.Contains(t, summary.Excluded, "README.md")
}

func TestBatchSizeFormula(t *testing.T) {
	assert.Equal(t, 64, batchSize(10, 64, 256))
	assert.Equal(t, 256, batchSize(4096, 64, 256))
	assert.Equal(t, 125, batchSize(1000, 64, 256))
}
