package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEmbeddingFailed indicates embedding generation failed after retries.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Vector is a dense embedding of fixed dimension D.
type Vector []float32

// Provider is the Embedding Provider interface (§4.1). Empty/whitespace
// input yields a nil Vector, never an error. EmbedBatch preserves input
// order and must not silently drop inputs.
type Provider interface {
	EmbedPassage(ctx context.Context, text string) (Vector, error)
	EmbedQuery(ctx context.Context, text string) (Vector, error)
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
	// Dimension returns D, the model's native embedding dimension.
	Dimension() int
	Close() error
}

// backend is the minimal surface a concrete model binding must provide;
// Provider wraps it with retry, coalescing, and empty-input handling so
// backends stay simple.
type backend interface {
	embedPassageBatch(ctx context.Context, texts []string) ([]Vector, error)
	embedQuery(ctx context.Context, text string) (Vector, error)
	dimension() int
	close() error
}

// ProviderConfig configures NewProvider.
type ProviderConfig struct {
	// Backend selects the model binding: "fastembed" (local ONNX) or "tei" (HTTP).
	Backend string
	Model   string
	// BaseURL is the TEI endpoint (tei backend only).
	BaseURL string
	// CacheDir is the local model cache directory (fastembed backend only).
	CacheDir string
	// MaxRetries and RetryBaseDelay bound the linear-backoff retry on
	// TransientEmbeddingFailure (§7). Defaults: 3 retries, 200ms base.
	MaxRetries     int
	RetryBaseDelay time.Duration
	// BatchChunkSize bounds how many texts EmbedBatch sends to the backend
	// per call; inputs are re-assembled in original order.
	BatchChunkSize int
}

// coalescedProvider wraps a backend with the retry/coalescing/empty-input
// policy the spec requires of every Provider implementation.
type coalescedProvider struct {
	b              backend
	maxRetries     int
	retryBaseDelay time.Duration
	batchChunkSize int

	initGroup singleflight.Group
	metrics   *Metrics
}

// NewProvider constructs a Provider from the given configuration. The
// backend's model is initialised here, at construction; for the fastembed
// backend, concurrent NewProvider calls for the same model coalesce onto a
// single load via a singleflight latch (§5).
func NewProvider(cfg ProviderConfig) (Provider, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryBaseDelay := cfg.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = 200 * time.Millisecond
	}
	chunkSize := cfg.BatchChunkSize
	if chunkSize <= 0 {
		chunkSize = 256
	}

	var b backend
	var err error
	switch cfg.Backend {
	case "fastembed", "":
		b, err = newFastEmbedBackend(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "tei":
		b, err = newTEIBackend(teiConfig{BaseURL: cfg.BaseURL, Model: cfg.Model})
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return &coalescedProvider{
		b:              b,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		batchChunkSize: chunkSize,
		metrics:        NewMetrics(),
	}, nil
}

func (p *coalescedProvider) Dimension() int { return p.b.dimension() }

func (p *coalescedProvider) Close() error { return p.b.close() }

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func (p *coalescedProvider) EmbedPassage(ctx context.Context, text string) (Vector, error) {
	if isBlank(text) {
		return nil, nil
	}
	vecs, err := p.withRetry(ctx, "passage:"+text, func() ([]Vector, error) {
		return p.b.embedPassageBatch(ctx, []string{text})
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}

func (p *coalescedProvider) EmbedQuery(ctx context.Context, text string) (Vector, error) {
	if isBlank(text) {
		return nil, nil
	}
	start := time.Now()
	v, err, _ := p.initGroup.Do("query:"+text, func() (interface{}, error) {
		return p.withRetrySingle(ctx, func() (Vector, error) {
			return p.b.embedQuery(ctx, text)
		})
	})
	p.metrics.RecordDuration("embed_query", time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordGeneration("embed_query", 1, err)
		return nil, err
	}
	p.metrics.RecordGeneration("embed_query", 1, nil)
	return v.(Vector), nil
}

// EmbedBatch embeds texts in order, chunking internally without dropping
// or reordering inputs (§4.1, testable property #5). Blank entries embed
// to a nil Vector at their original index.
func (p *coalescedProvider) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	// Track indices of non-blank inputs so chunking/backend calls never see
	// blanks, while results still land back at their original positions.
	var nonBlankIdx []int
	var nonBlankTexts []string
	for i, t := range texts {
		if !isBlank(t) {
			nonBlankIdx = append(nonBlankIdx, i)
			nonBlankTexts = append(nonBlankTexts, t)
		}
	}
	if len(nonBlankTexts) == 0 {
		return out, nil
	}

	for start := 0; start < len(nonBlankTexts); start += p.batchChunkSize {
		end := start + p.batchChunkSize
		if end > len(nonBlankTexts) {
			end = len(nonBlankTexts)
		}
		chunk := nonBlankTexts[start:end]
		chunkStart := time.Now()
		vecs, err := p.withRetry(ctx, "", func() ([]Vector, error) {
			return p.b.embedPassageBatch(ctx, chunk)
		})
		p.metrics.RecordDuration("embed_batch", time.Since(chunkStart).Seconds())
		if err != nil {
			p.metrics.RecordGeneration("embed_batch", len(chunk), err)
			return nil, err
		}
		if len(vecs) != len(chunk) {
			return nil, fmt.Errorf("%w: backend returned %d vectors for %d inputs", ErrEmbeddingFailed, len(vecs), len(chunk))
		}
		for j, v := range vecs {
			out[nonBlankIdx[start+j]] = v
		}
		p.metrics.RecordGeneration("embed_batch", len(chunk), nil)
	}

	return out, nil
}

// withRetry coalesces concurrent identical calls (when key != "") and
// retries the underlying backend call up to maxRetries times with linear
// backoff (§7 TransientEmbeddingFailure).
func (p *coalescedProvider) withRetry(ctx context.Context, key string, fn func() ([]Vector, error)) ([]Vector, error) {
	call := func() (interface{}, error) {
		var lastErr error
		for attempt := 0; attempt <= p.maxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(attempt) * p.retryBaseDelay):
				}
			}
			vecs, err := fn()
			if err == nil {
				return vecs, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, lastErr)
	}

	if key == "" {
		v, err := call()
		if err != nil {
			return nil, err
		}
		return v.([]Vector), nil
	}
	v, err, _ := p.initGroup.Do(key, call)
	if err != nil {
		return nil, err
	}
	return v.([]Vector), nil
}

func (p *coalescedProvider) withRetrySingle(ctx context.Context, fn func() (Vector, error)) (Vector, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * p.retryBaseDelay):
			}
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, lastErr)
}

// detectDimensionFromModel returns the embedding dimension for a model
// name. An unknown name containing "base" or "large" yields 768 or 1024;
// any other unknown name falls back to 384 (bge-small).
func detectDimensionFromModel(model string) int {
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	switch {
	case strings.Contains(model, "base"):
		return 768
	case strings.Contains(model, "large"):
		return 1024
	default:
		return 384
	}
}
