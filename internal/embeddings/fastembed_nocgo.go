//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

// ErrFastEmbedNotAvailable is returned when FastEmbed is not available (requires CGO).
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available (binary built without CGO support, use the tei backend instead)")

// FastEmbedConfig configures the local ONNX embedding backend.
type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

// fastEmbedBackend is a stub for non-CGO builds.
type fastEmbedBackend struct{}

func newFastEmbedBackend(_ FastEmbedConfig) (*fastEmbedBackend, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (b *fastEmbedBackend) embedPassageBatch(_ context.Context, _ []string) ([]Vector, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (b *fastEmbedBackend) embedQuery(_ context.Context, _ string) (Vector, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (b *fastEmbedBackend) dimension() int { return 0 }

func (b *fastEmbedBackend) close() error { return nil }

// fastEmbedModelDimension returns dimensions for known models. This
// fallback is used when CGO is unavailable so Dimension() still reports
// sane values for the teiBackend path that relies on it.
func fastEmbedModelDimension(model string) (int, bool) {
	dims := map[string]int{
		"BAAI/bge-small-en-v1.5":                384,
		"BAAI/bge-small-en":                     384,
		"BAAI/bge-base-en-v1.5":                  768,
		"BAAI/bge-base-en":                       768,
		"BAAI/bge-small-zh-v1.5":                 512,
		"sentence-transformers/all-MiniLM-L6-v2": 384,
	}
	dim, ok := dims[model]
	return dim, ok
}
