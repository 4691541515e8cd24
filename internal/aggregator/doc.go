// Package aggregator implements SPEC_FULL.md §4.7: the PR Context
// Aggregator, which fans the Context Retriever out across every file
// touched by a pull request and merges the three per-file channels into a
// single deduplicated, capped bundle.
package aggregator
