package prcomments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/care-engine/care/internal/embeddings"
)

// fakeEmbedder returns a distinct, deterministic vector per input so tests
// can assert which text was actually embedded without loading a real model.
type fakeEmbedder struct {
	calls []string
}

func (f *fakeEmbedder) EmbedPassage(_ context.Context, text string) (embeddings.Vector, error) {
	f.calls = append(f.calls, text)
	if text == "" {
		return nil, nil
	}
	v := make(embeddings.Vector, 4)
	for i := range v {
		v[i] = float32(len(text) + i)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) (embeddings.Vector, error) {
	return f.EmbedPassage(ctx, text)
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]embeddings.Vector, error) {
	out := make([]embeddings.Vector, len(texts))
	for i, t := range texts {
		v, err := f.EmbedPassage(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 4 }
func (f *fakeEmbedder) Close() error   { return nil }

func TestToRecordRejectsEmptyCommentText(t *testing.T) {
	ing := New(&fakeEmbedder{})

	_, err := ing.ToRecord(context.Background(), "/proj", Input{CommentText: "   "})

	require.ErrorIs(t, err, ErrEmptyCommentText)
}

func TestToRecordComputesAllThreeEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{}
	ing := New(embedder)

	rec, err := ing.ToRecord(context.Background(), "/proj", Input{
		ID:           "c1",
		PRNumber:     7,
		Repository:   "acme/widgets",
		CommentText:  "please add a nil check here",
		OriginalCode: "x.Foo()",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, rec.CommentEmbedding)
	assert.NotEmpty(t, rec.CodeEmbedding, "OriginalCode was supplied so CodeEmbedding must be computed")
	assert.NotEmpty(t, rec.CombinedEmbedding, "combinedEmbedding must be non-null per the §3 invariant")
	assert.Equal(t, "c1", rec.ID)
	assert.Equal(t, 7, rec.PRNumber)
}

func TestToRecordSkipsCodeEmbeddingWhenNoCodeSupplied(t *testing.T) {
	embedder := &fakeEmbedder{}
	ing := New(embedder)

	rec, err := ing.ToRecord(context.Background(), "/proj", Input{
		ID:          "c2",
		CommentText: "looks good overall",
	})

	require.NoError(t, err)
	assert.Empty(t, rec.CodeEmbedding, "no original/suggested/diff code means no code embedding call")
	assert.NotEmpty(t, rec.CombinedEmbedding)
}
