package embedcache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/care-engine/care/internal/embeddings"
)

// Default bounds per §4.2: 1,000 embeddings, 500 inferred contexts.
const (
	DefaultEmbeddingCacheSize = 1000
	DefaultContextCacheSize   = 500
)

// Key prefixes keep the four logical namespaces from colliding even if the
// underlying LRU instances were ever merged into one keyspace.
const (
	queryPrefix   = "query:"
	h1Prefix      = "h1:"
	contextPrefix = "ctx:"
)

// Config bounds the size of each of the four caches. Zero values fall back
// to the spec defaults.
type Config struct {
	PassageSize int
	QuerySize   int
	H1Size      int
	ContextSize int
}

// Cache fronts the Embedding Provider and Context Inferer with four
// independent, strictly-bounded LRU maps (§4.2). It is safe for concurrent
// use; the underlying hashicorp/golang-lru instances are internally locked.
type Cache struct {
	passage *lru.Cache[string, embeddings.Vector]
	query   *lru.Cache[string, embeddings.Vector]
	h1      *lru.Cache[string, embeddings.Vector]
	// context stores opaque inferred-context values; the contextinfer
	// package owns the concrete type to avoid an import cycle.
	context *lru.Cache[string, any]

	metrics *Metrics
}

// New constructs a Cache with the given bounds, registering Prometheus
// hit/miss/eviction counters for each namespace.
func New(cfg Config) (*Cache, error) {
	passageSize := cfg.PassageSize
	if passageSize <= 0 {
		passageSize = DefaultEmbeddingCacheSize
	}
	querySize := cfg.QuerySize
	if querySize <= 0 {
		querySize = DefaultEmbeddingCacheSize
	}
	h1Size := cfg.H1Size
	if h1Size <= 0 {
		h1Size = DefaultEmbeddingCacheSize
	}
	contextSize := cfg.ContextSize
	if contextSize <= 0 {
		contextSize = DefaultContextCacheSize
	}

	metrics := NewMetrics()

	passage, err := lru.NewWithEvict[string, embeddings.Vector](passageSize, func(string, embeddings.Vector) {
		metrics.RecordEviction("passage")
	})
	if err != nil {
		return nil, err
	}
	query, err := lru.NewWithEvict[string, embeddings.Vector](querySize, func(string, embeddings.Vector) {
		metrics.RecordEviction("query")
	})
	if err != nil {
		return nil, err
	}
	h1, err := lru.NewWithEvict[string, embeddings.Vector](h1Size, func(string, embeddings.Vector) {
		metrics.RecordEviction("h1")
	})
	if err != nil {
		return nil, err
	}
	ctxCache, err := lru.NewWithEvict[string, any](contextSize, func(string, any) {
		metrics.RecordEviction("context")
	})
	if err != nil {
		return nil, err
	}

	return &Cache{passage: passage, query: query, h1: h1, context: ctxCache, metrics: metrics}, nil
}

// GetPassage looks up a passage embedding by its raw cache key (the caller
// chooses the key, typically a content hash).
func (c *Cache) GetPassage(key string) (embeddings.Vector, bool) {
	v, ok := c.passage.Get(key)
	c.metrics.RecordLookup("passage", ok)
	return v, ok
}

// PutPassage stores a passage embedding.
func (c *Cache) PutPassage(key string, v embeddings.Vector) {
	c.passage.Add(key, v)
}

// GetQuery looks up a query embedding.
func (c *Cache) GetQuery(text string) (embeddings.Vector, bool) {
	v, ok := c.query.Get(queryPrefix + text)
	c.metrics.RecordLookup("query", ok)
	return v, ok
}

// PutQuery stores a query embedding.
func (c *Cache) PutQuery(text string, v embeddings.Vector) {
	c.query.Add(queryPrefix+text, v)
}

// GetH1 looks up an H1-title embedding keyed by the title text.
func (c *Cache) GetH1(title string) (embeddings.Vector, bool) {
	v, ok := c.h1.Get(h1Prefix + title)
	c.metrics.RecordLookup("h1", ok)
	return v, ok
}

// PutH1 stores an H1-title embedding.
func (c *Cache) PutH1(title string, v embeddings.Vector) {
	c.h1.Add(h1Prefix+title, v)
}

// GetContext looks up a memoised inferred-context value keyed by
// (documentPath, titleHash) as formatted by the caller.
func (c *Cache) GetContext(key string) (any, bool) {
	v, ok := c.context.Get(contextPrefix + key)
	c.metrics.RecordLookup("context", ok)
	return v, ok
}

// PutContext stores a memoised inferred-context value.
func (c *Cache) PutContext(key string, v any) {
	c.context.Add(contextPrefix+key, v)
}

// Len reports the current size of each namespace, useful for diagnostics
// and shutdown logging.
func (c *Cache) Len() (passage, query, h1, context int) {
	return c.passage.Len(), c.query.Len(), c.h1.Len(), c.context.Len()
}

// Purge clears all four caches, e.g. on an explicit "clear project" request.
func (c *Cache) Purge() {
	c.passage.Purge()
	c.query.Purge()
	c.h1.Purge()
	c.context.Purge()
}
