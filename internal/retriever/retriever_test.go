package retriever

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/care-engine/care/internal/config"
	"github.com/care-engine/care/internal/embedcache"
	"github.com/care-engine/care/internal/embeddings"
	"github.com/care-engine/care/internal/vectorstore"
)

// keywordProvider is a deterministic fake embeddings.Provider: each
// dimension counts occurrences of one vocabulary word, so cosine similarity
// tracks keyword overlap exactly, without an ONNX/HTTP backend.
type keywordProvider struct {
	vocab []string
}

func (p *keywordProvider) vectorFor(text string) embeddings.Vector {
	lower := strings.ToLower(text)
	v := make(embeddings.Vector, len(p.vocab))
	for i, w := range p.vocab {
		v[i] = float32(strings.Count(lower, w))
	}
	return v
}

func (p *keywordProvider) EmbedPassage(_ context.Context, text string) (embeddings.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return p.vectorFor(text), nil
}

func (p *keywordProvider) EmbedQuery(ctx context.Context, text string) (embeddings.Vector, error) {
	return p.EmbedPassage(ctx, text)
}

func (p *keywordProvider) EmbedBatch(ctx context.Context, texts []string) ([]embeddings.Vector, error) {
	out := make([]embeddings.Vector, len(texts))
	for i, t := range texts {
		out[i], _ = p.EmbedPassage(ctx, t)
	}
	return out, nil
}

func (p *keywordProvider) Dimension() int { return len(p.vocab) }
func (p *keywordProvider) Close() error   { return nil }

var testVocab = []string{"widget", "payment", "invoice", "testing", "mock"}

func newTestRetriever(t *testing.T) (*Retriever, vectorstore.Store, *keywordProvider) {
	t.Helper()
	dir := t.TempDir()
	store, err := vectorstore.NewSQLiteStore(vectorstore.Config{DataDir: dir, VectorDim: len(testVocab)}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureTables(context.Background()))

	cache, err := embedcache.New(embedcache.Config{})
	require.NoError(t, err)

	provider := &keywordProvider{vocab: testVocab}
	cfg := config.Load().Retriever
	cfg.CodeFloor = 0.3
	cfg.DocFloor = 0.05
	cfg.PRSimilarityThreshold = 0.3

	return New(store, provider, cache, nil, cfg), store, provider
}

func seedFileEmbedding(t *testing.T, store vectorstore.Store, provider *keywordProvider, path, projectPath, content string) {
	t.Helper()
	rec := vectorstore.NewFileEmbeddingRecord(path, projectPath, path, "go", content, time.Now(), []float32(provider.vectorFor(content)))
	require.NoError(t, store.Upsert(context.Background(), vectorstore.TableFileEmbeddings, []vectorstore.Record{rec.ToRecord()}))
}

func TestGetContextExcludesReviewedFileRegardlessOfPathSpelling(t *testing.T) {
	r, store, provider := newTestRetriever(t)
	projectPath := "/repo"
	content := "widget widget widget handler"

	seedFileEmbedding(t, store, provider, "internal/widget/widget.go", projectPath, content)
	seedFileEmbedding(t, store, provider, "internal/widget/helper.go", projectPath, "widget widget helper")

	spellings := []string{
		"internal/widget/widget.go",
		"/repo/internal/widget/widget.go",
		"/repo/internal/widget/widget.go/",
		"./internal/widget/widget.go",
	}
	for _, spelling := range spellings {
		bundle, err := r.GetContext(context.Background(), spelling, content, Options{ProjectPath: projectPath})
		require.NoError(t, err)
		for _, ex := range bundle.CodeExamples {
			assert.NotEqual(t, "internal/widget/widget.go", ex.Path, "spelling %q let the reviewed file leak into its own code examples", spelling)
		}
	}
}

func TestGetContextCapsCodeExamplesAtEight(t *testing.T) {
	r, store, provider := newTestRetriever(t)
	projectPath := "/repo"

	for i := 0; i < 12; i++ {
		path := fmt.Sprintf("file%d.go", i)
		seedFileEmbedding(t, store, provider, path, projectPath, "widget widget widget handler")
	}

	bundle, err := r.GetContext(context.Background(), "reviewed.go", "widget widget widget handler", Options{ProjectPath: projectPath})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(bundle.CodeExamples), 8)
}

func TestGetContextCodeExamplesFilteredByTestFileClassification(t *testing.T) {
	r, store, provider := newTestRetriever(t)
	projectPath := "/repo"
	content := "testing testing mock assertions"

	seedFileEmbedding(t, store, provider, "internal/widget/widget_test.go", projectPath, content)
	seedFileEmbedding(t, store, provider, "internal/widget/widget.go", projectPath, content)

	bundle, err := r.GetContext(context.Background(), "internal/widget/other_test.go", content, Options{ProjectPath: projectPath})
	require.NoError(t, err)

	for _, ex := range bundle.CodeExamples {
		assert.True(t, strings.Contains(ex.Path, "_test.go"), "test-file snippet must only retrieve other test files, got %s", ex.Path)
	}
	assert.True(t, bundle.Metadata.IsTestFile)
}

func TestGetContextDegradesToEmptyOnEmptySnippetAndStore(t *testing.T) {
	r, _, _ := newTestRetriever(t)
	bundle, err := r.GetContext(context.Background(), "reviewed.go", "", Options{ProjectPath: "/repo"})
	require.NoError(t, err, "GetContext must never return an error for degraded sub-operations")
	assert.Empty(t, bundle.CodeExamples)
	assert.Empty(t, bundle.Guidelines)
	assert.Empty(t, bundle.PRComments)
}
