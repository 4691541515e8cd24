// Package engine wires the CARE engine's singletons — the vector store, the
// embedding provider, the bounded caches, the Indexer, the Context
// Retriever, and the PR Context Aggregator — into one explicit
// construct-then-serve-then-Close lifecycle object, per SPEC_FULL.md §9's
// design note against package-level globals.
package engine

import (
	"context"
	"fmt"

	"github.com/care-engine/care/internal/aggregator"
	"github.com/care-engine/care/internal/config"
	"github.com/care-engine/care/internal/embedcache"
	"github.com/care-engine/care/internal/embeddings"
	"github.com/care-engine/care/internal/indexer"
	"github.com/care-engine/care/internal/logging"
	"github.com/care-engine/care/internal/prcomments"
	"github.com/care-engine/care/internal/retriever"
	"github.com/care-engine/care/internal/vectorstore"
)

// Engine is the process-lifetime handle every cmd/care subcommand
// constructs once, uses, and closes. None of its collaborators are
// package-level globals.
type Engine struct {
	Store      vectorstore.Store
	Embedder   embeddings.Provider
	Cache      *embedcache.Cache
	Indexer    *indexer.Indexer
	Retriever  *retriever.Retriever
	Aggregator *aggregator.Aggregator
	Ingester   *prcomments.Ingester
	Logger     *logging.Logger

	cfg *config.Config
}

// New constructs every collaborator from cfg, in dependency order: store,
// embedder, cache, then the components layered on top of them. The
// returned Engine owns the store's and embedder's OS resources; callers
// must call Close.
func New(cfg *config.Config, logger *logging.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Load()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := vectorstore.NewSQLiteStore(vectorstore.Config{
		DataDir:   cfg.VectorStore.DataDir,
		VectorDim: cfg.VectorStore.VectorDim,
	}, logger.Underlying())
	if err != nil {
		return nil, fmt.Errorf("constructing vector store: %w", err)
	}

	embedder, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Backend:        cfg.Embeddings.Provider,
		Model:          cfg.Embeddings.Model,
		BaseURL:        cfg.Embeddings.BaseURL,
		CacheDir:       cfg.Embeddings.CacheDir,
		MaxRetries:     cfg.Embeddings.MaxRetries,
		RetryBaseDelay: cfg.Embeddings.RetryBaseDelay.Duration(),
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("constructing embedding provider: %w", err)
	}

	cache, err := embedcache.New(embedcache.Config{
		PassageSize: cfg.EmbedCache.PassageSize,
		QuerySize:   cfg.EmbedCache.QuerySize,
		H1Size:      cfg.EmbedCache.H1Size,
		ContextSize: cfg.EmbedCache.ContextSize,
	})
	if err != nil {
		store.Close()
		embedder.Close()
		return nil, fmt.Errorf("constructing embedding cache: %w", err)
	}

	ix := indexer.New(store, embedder, logger)
	rt := retriever.New(store, embedder, cache, logger, cfg.Retriever)
	ag := aggregator.New(rt, cfg.Aggregator, logger)
	ing := prcomments.New(embedder)

	return &Engine{
		Store:      store,
		Embedder:   embedder,
		Cache:      cache,
		Indexer:    ix,
		Retriever:  rt,
		Aggregator: ag,
		Ingester:   ing,
		Logger:     logger,
		cfg:        cfg,
	}, nil
}

// Close releases the store's database handle and the embedder's model
// handle. Safe to call once; the caller typically defers it immediately
// after New succeeds.
func (e *Engine) Close() error {
	var errs []error
	if err := e.Embedder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing embedder: %w", err))
	}
	if err := e.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("engine close: %v", errs)
}

// IndexProject runs the Indexer with opts as given; unset fields take the
// Indexer's own defaults, not values from cfg.
func (e *Engine) IndexProject(ctx context.Context, rootDir string, files []string, opts indexer.Options) (indexer.Summary, error) {
	return e.Indexer.IndexProject(ctx, rootDir, files, opts)
}

// GetContext delegates to the Retriever for a single reviewed file.
func (e *Engine) GetContext(ctx context.Context, filePath, content string, opts retriever.Options) (retriever.ContextBundle, error) {
	return e.Retriever.GetContext(ctx, filePath, content, opts)
}

// GatherUnifiedContextForPR delegates to the Aggregator for a whole PR.
func (e *Engine) GatherUnifiedContextForPR(ctx context.Context, files []aggregator.PRFile, opts retriever.Options) (aggregator.UnifiedBundle, error) {
	return e.Aggregator.GatherUnifiedContextForPR(ctx, files, opts)
}
