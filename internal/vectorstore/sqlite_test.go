package vectorstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewSQLiteStore(Config{DataDir: dir, VectorDim: 4}, nil)
	require.NoError(t, err)
	require.NoError(t, store.EnsureTables(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func vec(vals ...float32) []float32 { return vals }

func TestEnsureTablesIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.EnsureTables(context.Background()))
	require.NoError(t, store.EnsureTables(context.Background()))
}

func TestUpsertAndCountRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := NewFileEmbeddingRecord("main.go", "/proj", "main.go", "go", "package main", time.Now(), vec(1, 0, 0, 0))
	require.NoError(t, store.Upsert(ctx, TableFileEmbeddings, []Record{rec.ToRecord()}))

	n, err := store.CountRows(ctx, TableFileEmbeddings)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertReplacesExistingID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := NewFileEmbeddingRecord("main.go", "/proj", "main.go", "go", "package main", time.Now(), vec(1, 0, 0, 0))
	require.NoError(t, store.Upsert(ctx, TableFileEmbeddings, []Record{rec.ToRecord()}))
	require.NoError(t, store.Upsert(ctx, TableFileEmbeddings, []Record{rec.ToRecord()}))

	n, err := store.CountRows(ctx, TableFileEmbeddings)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSearchScopesToProjectPath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := NewFileEmbeddingRecord("a.go", "/proj/a", "a.go", "go", "package a func Foo", time.Now(), vec(1, 0, 0, 0))
	b := NewFileEmbeddingRecord("b.go", "/proj/b", "b.go", "go", "package b func Foo", time.Now(), vec(1, 0, 0, 0))
	require.NoError(t, store.Upsert(ctx, TableFileEmbeddings, []Record{a.ToRecord(), b.ToRecord()}))

	rows, err := store.Search(ctx, TableFileEmbeddings, Query{ProjectPath: "/proj/a", Vector: vec(1, 0, 0, 0), K: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "/proj/a", rows[0].ProjectPath)
}

func TestSearchMatchesByFTSText(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := NewFileEmbeddingRecord("auth.go", "/proj", "auth.go", "go", "func ValidateToken(token string) error", time.Now(), vec(0, 1, 0, 0))
	require.NoError(t, store.Upsert(ctx, TableFileEmbeddings, []Record{rec.ToRecord()}))

	rows, err := store.Search(ctx, TableFileEmbeddings, Query{ProjectPath: "/proj", Text: "ValidateToken", K: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].MatchedFTS)
}

func TestSearchAppliesFilterPredicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	impl := NewFileEmbeddingRecord("impl.go", "/proj", "impl.go", "go", "package proj", time.Now(), vec(1, 0, 0, 0))
	test := NewFileEmbeddingRecord("impl_test.go", "/proj", "impl_test.go", "go", "package proj", time.Now(), vec(1, 0, 0, 0))
	require.NoError(t, store.Upsert(ctx, TableFileEmbeddings, []Record{impl.ToRecord(), test.ToRecord()}))

	rows, err := store.Search(ctx, TableFileEmbeddings, Query{
		ProjectPath: "/proj",
		Vector:      vec(1, 0, 0, 0),
		K:           10,
		Filter:      ExcludeTestFiles("path"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, strings.HasPrefix(rows[0].ID, "impl.go#"))
}

func TestDropTableClearsRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := NewFileEmbeddingRecord("main.go", "/proj", "main.go", "go", "package main", time.Now(), vec(1, 0, 0, 0))
	require.NoError(t, store.Upsert(ctx, TableFileEmbeddings, []Record{rec.ToRecord()}))
	require.NoError(t, store.DropTable(ctx, TableFileEmbeddings))

	n, err := store.CountRows(ctx, TableFileEmbeddings)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteWhereRemovesMatchingRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := NewFileEmbeddingRecord("a.go", "/proj/a", "a.go", "go", "package a", time.Now(), vec(1, 0, 0, 0))
	b := NewFileEmbeddingRecord("b.go", "/proj/b", "b.go", "go", "package b", time.Now(), vec(1, 0, 0, 0))
	require.NoError(t, store.Upsert(ctx, TableFileEmbeddings, []Record{a.ToRecord(), b.ToRecord()}))

	n, err := store.DeleteWhere(ctx, TableFileEmbeddings, ByProjectPath("/proj/a"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remaining, err := store.CountRows(ctx, TableFileEmbeddings)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestFileEmbeddingRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := NewFileEmbeddingRecord("pkg/foo.go", "/proj", "foo.go", "go", "package pkg", time.Now(), vec(1, 2, 3, 4))
	require.NoError(t, store.Upsert(ctx, TableFileEmbeddings, []Record{rec.ToRecord()}))

	rows, err := store.Search(ctx, TableFileEmbeddings, Query{ProjectPath: "/proj", Vector: vec(1, 2, 3, 4), K: 5})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got, err := FileEmbeddingFromRecord(rows[0].Record)
	require.NoError(t, err)
	assert.Equal(t, "pkg/foo.go", got.Path)
	assert.Equal(t, "go", got.Language)
}

func TestAdaptiveIndexTierSelection(t *testing.T) {
	assert.Equal(t, exactTier, selectTier(0))
	assert.Equal(t, exactTier, selectTier(999))
	assert.Equal(t, ivfFlatTier, selectTier(1000))
	assert.Equal(t, ivfFlatTier, selectTier(9999))
	assert.Equal(t, ivfPQTier, selectTier(10000))
}

func TestRRFFusionPrefersDoubleMatches(t *testing.T) {
	vectorResults := []scoredID{{id: "a", score: 0.9}, {id: "b", score: 0.8}}
	ftsResults := []scoredID{{id: "b", score: 5}, {id: "c", score: 4}}

	fused := fuseRRF(vectorResults, ftsResults)
	require.NotEmpty(t, fused)
	assert.Equal(t, "b", fused[0].id) // present in both channels, ranks highest
}
