// Package retriever implements SPEC_FULL.md §4.6: the Context Retriever
// that, given a reviewed file path and its content, runs three parallel
// retrieval streams against the Vector Store (code exemplars, documentation
// guidelines, PR comments), applies a multi-signal document-level
// re-ranker to the documentation stream, and assembles a deduplicated,
// capped ContextBundle — the sole input, alongside the reviewed snippet,
// to the downstream Reviewer.
package retriever
