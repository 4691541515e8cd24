//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
	"golang.org/x/sync/singleflight"
)

// FastEmbedConfig configures the local ONNX embedding backend.
type FastEmbedConfig struct {
	// Model is the embedding model to use.
	// Supported: BAAI/bge-small-en-v1.5 (default), BAAI/bge-base-en-v1.5,
	// sentence-transformers/all-MiniLM-L6-v2, etc.
	Model string
	// CacheDir is the directory to cache model files (§6.1).
	CacheDir string
	// MaxLength is the maximum input sequence length. Defaults to 512.
	MaxLength int
}

// modelMapping maps friendly model names to fastembed model constants.
var modelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-small-zh-v1.5":                  fastembed.BGESmallZH,
	"sentence-transformers/all-MiniLM-L6-v2":  fastembed.AllMiniLML6V2,
	"fast-bge-small-en-v1.5":                  fastembed.BGESmallENV15,
	"fast-bge-small-en":                       fastembed.BGESmallEN,
	"fast-bge-base-en-v1.5":                   fastembed.BGEBaseENV15,
	"fast-bge-base-en":                        fastembed.BGEBaseEN,
	"fast-bge-small-zh-v1.5":                  fastembed.BGESmallZH,
	"fast-all-MiniLM-L6-v2":                   fastembed.AllMiniLML6V2,
}

// modelDimensions maps fastembed models to their embedding dimensions.
var modelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.BGESmallENV15: 384,
	fastembed.BGESmallEN:    384,
	fastembed.BGEBaseENV15:  768,
	fastembed.BGEBaseEN:     768,
	fastembed.BGESmallZH:    512,
	fastembed.AllMiniLML6V2: 384,
}

// fastEmbedModelDimension returns the dimension for a known model name.
func fastEmbedModelDimension(model string) (int, bool) {
	m, ok := modelMapping[model]
	if !ok {
		return 0, false
	}
	dim, ok := modelDimensions[m]
	return dim, ok
}

// sharedModels caches loaded *fastembed.FlagEmbedding handles by
// model+cacheDir key so that concurrent first-time NewProvider calls for
// the same model coalesce onto a single load (§5): the handle is process-
// wide and shared read-only thereafter.
var (
	sharedModelsMu sync.Mutex
	sharedModels   = map[string]*sharedModel{}
	loadGroup      singleflight.Group
)

type sharedModel struct {
	handle    *fastembed.FlagEmbedding
	dimension int
	refs      int
}

// fastEmbedBackend implements backend over a shared FlagEmbedding handle.
type fastEmbedBackend struct {
	key       string
	model     *fastembed.FlagEmbedding
	dimension int
}

func newFastEmbedBackend(cfg FastEmbedConfig) (*fastEmbedBackend, error) {
	model, ok := modelMapping[cfg.Model]
	if !ok {
		model = fastembed.EmbeddingModel(cfg.Model)
		if _, known := modelDimensions[model]; !known {
			return nil, fmt.Errorf("%w: unsupported model %q", ErrInvalidConfig, cfg.Model)
		}
	}
	dimension := modelDimensions[model]

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(".", ".care-engine", "fastembed-cache")
	}
	maxLength := cfg.MaxLength
	if maxLength == 0 {
		maxLength = 512
	}

	key := string(model) + "|" + cacheDir + "|" + fmt.Sprint(maxLength)

	v, err, _ := loadGroup.Do(key, func() (interface{}, error) {
		sharedModelsMu.Lock()
		if sm, ok := sharedModels[key]; ok {
			sm.refs++
			sharedModelsMu.Unlock()
			return sm, nil
		}
		sharedModelsMu.Unlock()

		showProgress := false
		opts := &fastembed.InitOptions{
			Model:                model,
			CacheDir:             cacheDir,
			MaxLength:            maxLength,
			ShowDownloadProgress: &showProgress,
		}
		handle, err := fastembed.NewFlagEmbedding(opts)
		if err != nil {
			return nil, fmt.Errorf("initializing FastEmbed model %q: %w", cfg.Model, err)
		}

		sharedModelsMu.Lock()
		sm := &sharedModel{handle: handle, dimension: dimension, refs: 1}
		sharedModels[key] = sm
		sharedModelsMu.Unlock()
		return sm, nil
	})
	if err != nil {
		return nil, err
	}

	sm := v.(*sharedModel)
	return &fastEmbedBackend{key: key, model: sm.handle, dimension: sm.dimension}, nil
}

func (b *fastEmbedBackend) embedPassageBatch(ctx context.Context, texts []string) ([]Vector, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	raw, err := b.model.PassageEmbed(texts, 256)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	out := make([]Vector, len(raw))
	for i, v := range raw {
		out[i] = v
	}
	return out, nil
}

func (b *fastEmbedBackend) embedQuery(ctx context.Context, text string) (Vector, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	v, err := b.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return Vector(v), nil
}

func (b *fastEmbedBackend) dimension() int { return b.dimension }

// close decrements the shared handle's refcount, destroying the underlying
// ONNX session only once no provider still references it.
func (b *fastEmbedBackend) close() error {
	sharedModelsMu.Lock()
	sm, ok := sharedModels[b.key]
	if !ok {
		sharedModelsMu.Unlock()
		return nil
	}
	sm.refs--
	destroy := sm.refs <= 0
	if destroy {
		delete(sharedModels, b.key)
	}
	sharedModelsMu.Unlock()

	if destroy {
		return sm.handle.Destroy()
	}
	return nil
}
