package embeddings

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a minimal in-memory backend for exercising the
// coalescedProvider's retry/coalescing/ordering policy without a real model.
type fakeBackend struct {
	dim        int
	batchCalls int32
	failTimes  int32 // number of calls that should fail before succeeding
	closed     bool
}

func (f *fakeBackend) embedPassageBatch(_ context.Context, texts []string) ([]Vector, error) {
	atomic.AddInt32(&f.batchCalls, 1)
	if atomic.LoadInt32(&f.failTimes) > 0 {
		atomic.AddInt32(&f.failTimes, -1)
		return nil, errors.New("transient failure")
	}
	out := make([]Vector, len(texts))
	for i, t := range texts {
		out[i] = Vector{float32(len(t)), 1}
	}
	return out, nil
}

func (f *fakeBackend) embedQuery(_ context.Context, text string) (Vector, error) {
	if atomic.LoadInt32(&f.failTimes) > 0 {
		atomic.AddInt32(&f.failTimes, -1)
		return nil, errors.New("transient failure")
	}
	return Vector{float32(len(text)), 2}, nil
}

func (f *fakeBackend) dimension() int { return f.dim }

func (f *fakeBackend) close() error { f.closed = true; return nil }

func newTestProvider(fb *fakeBackend) *coalescedProvider {
	return &coalescedProvider{
		b:              fb,
		maxRetries:     3,
		retryBaseDelay: time.Millisecond,
		batchChunkSize: 2,
		metrics:        NewMetrics(),
	}
}

func TestEmbedPassageEmptyYieldsNil(t *testing.T) {
	p := newTestProvider(&fakeBackend{dim: 4})
	v, err := p.EmbedPassage(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEmbedQueryEmptyYieldsNil(t *testing.T) {
	p := newTestProvider(&fakeBackend{dim: 4})
	v, err := p.EmbedQuery(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEmbedBatchPreservesOrderAndLength(t *testing.T) {
	p := newTestProvider(&fakeBackend{dim: 4})
	texts := []string{"a", "bb", "ccc", "dddd", "e"}
	vecs, err := p.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vecs[i][0])
	}
}

func TestEmbedBatchSkipsBlankWithoutDropping(t *testing.T) {
	p := newTestProvider(&fakeBackend{dim: 4})
	texts := []string{"a", "", "  ", "b"}
	vecs, err := p.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	assert.Nil(t, vecs[1])
	assert.Nil(t, vecs[2])
	assert.NotNil(t, vecs[0])
	assert.NotNil(t, vecs[3])
}

func TestEmbedBatchMatchesSingleEmbedPassage(t *testing.T) {
	// Testable property #5: embedBatch([t]).first == embedPassage(t).
	p := newTestProvider(&fakeBackend{dim: 4})
	single, err := p.EmbedPassage(context.Background(), "hello")
	require.NoError(t, err)
	batch, err := p.EmbedBatch(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, single, batch[0])
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	fb := &fakeBackend{dim: 4, failTimes: 2}
	p := newTestProvider(fb)
	v, err := p.EmbedPassage(context.Background(), "x")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestRetryExhaustionReturnsError(t *testing.T) {
	fb := &fakeBackend{dim: 4, failTimes: 100}
	p := newTestProvider(fb)
	_, err := p.EmbedPassage(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestDimensionAndClose(t *testing.T) {
	fb := &fakeBackend{dim: 384}
	p := newTestProvider(fb)
	assert.Equal(t, 384, p.Dimension())
	require.NoError(t, p.Close())
	assert.True(t, fb.closed)
}

func TestDetectDimensionFromModel(t *testing.T) {
	assert.Equal(t, 384, detectDimensionFromModel("BAAI/bge-small-en-v1.5"))
	assert.Equal(t, 768, detectDimensionFromModel("some-base-model"))
	assert.Equal(t, 1024, detectDimensionFromModel("some-large-model"))
	assert.Equal(t, 384, detectDimensionFromModel("totally-unknown"))
}
