// Package embedcache implements SPEC_FULL.md §4.2 (Embedding Cache): four
// independent bounded LRU maps (passage embeddings, query embeddings,
// H1-title embeddings, inferred document contexts) fronting the Embedding
// Provider and Context Inferer so repeated lookups skip recomputation.
package embedcache
