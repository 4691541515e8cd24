// Package embeddings implements SPEC_FULL.md §4.1 (Embedding Provider):
// asymmetric passage/query embeddings over a process-wide model handle,
// with coalesced initialisation and linear-backoff retry on transient
// failure (§7 TransientEmbeddingFailure).
package embeddings
