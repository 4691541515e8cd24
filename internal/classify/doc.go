// Package classify implements the Glossary's "Documentation file" and
// "Test file" path classifications, plus extension-based language
// detection, shared by the Indexer's documents phase (§4.5 step 6) and the
// Context Retriever's setup stage and candidate filters (§4.6).
package classify
