// Package vectorstore implements SPEC_FULL.md §4.3: a per-project,
// project-isolated store for file embeddings, documentation chunks, and PR
// comments, backed by modernc.org/sqlite for durable storage, an adaptive
// vector index (chromem-go's brute-force exact search below 1,000 rows, a
// coder/hnsw graph above it), and a blevesearch/bleve/v2 full-text index,
// fused by reciprocal-rank fusion.
package vectorstore
