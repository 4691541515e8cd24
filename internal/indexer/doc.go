// Package indexer implements SPEC_FULL.md §4.5 (Indexer): the pipeline that
// walks a project, embeds its source files and documentation, and persists
// the result into the Vector Store.
package indexer
