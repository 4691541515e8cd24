// Package markdown implements SPEC_FULL.md §4.4's Chunker: splitting a
// Markdown document into H2/H3-delimited chunks, grounded on the teacher
// pack's header-based markdown chunker (regex section parsing over the raw
// document text, skipping fenced code blocks).
package markdown
