// Package vectorstore implements SPEC_FULL.md §4.3 (Vector Store): the
// persistent, project-scoped store for file embeddings, documentation
// chunks, and PR comments, with adaptive vector indexing and hybrid
// (vector + full-text) search fused by reciprocal-rank fusion.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrTableNotFound is returned when an operation targets an unknown table.
	ErrTableNotFound = errors.New("table not found")
	// ErrMissingVector is returned when a record lacking its required vector
	// is passed to Upsert.
	ErrMissingVector = errors.New("record missing required vector")
)

// Query parameterises Store.Search. The vector channel runs only when Vector
// is non-empty; the store never embeds Text itself, and Text feeds only the
// full-text channel.
type Query struct {
	ProjectPath string
	Text        string
	Vector      []float32
	K           int
	Filter      Predicate
}

// Store is the persistence and hybrid-search interface used by the Indexer
// and Context Retriever.
type Store interface {
	// EnsureTables idempotently provisions every table, their FTS indexes,
	// and their adaptive vector indexes. Concurrent callers coalesce onto a
	// single initialisation via singleflight (§5).
	EnsureTables(ctx context.Context) error

	// Upsert replaces any existing records sharing an ID with the given
	// batch, inside one transaction, for the named table.
	Upsert(ctx context.Context, table Table, records []Record) error

	// Search performs hybrid (vector + FTS) retrieval scoped to
	// Query.ProjectPath, fused by reciprocal-rank fusion.
	Search(ctx context.Context, table Table, q Query) ([]Row, error)

	// CountRows reports the current row count for the table, the input to
	// the adaptive index policy.
	CountRows(ctx context.Context, table Table) (int, error)

	// ListByProject returns every record in table scoped to projectPath, the
	// single bulk query the Indexer's pre-filter uses for its mtime gate
	// (§4.5 step 3).
	ListByProject(ctx context.Context, table Table, projectPath string) ([]Record, error)

	// DropTable removes a table and its indexes entirely.
	DropTable(ctx context.Context, table Table) error

	// DeleteWhere deletes every record in the table matching pred, returning
	// the number of rows removed.
	DeleteWhere(ctx context.Context, table Table, pred Predicate) (int, error)

	// Close releases the store's resources (sqlite handle, FTS indexes).
	Close() error
}
