package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver, no cgo
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/care-engine/care/internal/careerr"
)

// Config configures SQLiteStore.
type Config struct {
	// DataDir is the per-user data directory rooting the sqlite database
	// file and the bleve FTS indexes (§4.3).
	DataDir string
	// VectorDim is the embedding dimension D every table's vectors share.
	VectorDim int
}

// SQLiteStore is the Store implementation: modernc.org/sqlite as the
// durable source of truth, a chromem-go/coder-hnsw vectorIndex per table
// for similarity search, and a bleve ftsIndex per table for keyword
// search, fused by reciprocal-rank fusion (§4.3).
type SQLiteStore struct {
	cfg    Config
	logger *zap.Logger

	db *sql.DB

	mu      sync.RWMutex
	vecIdx  map[Table]*vectorIndex
	fts     map[Table]*ftsIndex
	ensured bool

	ensureGroup singleflight.Group
}

// NewSQLiteStore constructs a store rooted at cfg.DataDir. EnsureTables
// must be called before use.
func NewSQLiteStore(cfg Config, logger *zap.Logger) (*SQLiteStore, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%w: data dir required", ErrInvalidConfig)
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("%w: vector dim must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "care.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling wal mode: %w", err)
	}

	return &SQLiteStore{
		cfg:    cfg,
		logger: logger,
		db:     db,
		vecIdx: make(map[Table]*vectorIndex),
		fts:    make(map[Table]*ftsIndex),
	}, nil
}

// EnsureTables idempotently provisions the schema, FTS indexes, and
// adaptive vector indexes. Concurrent callers coalesce onto one
// initialisation (§5).
func (s *SQLiteStore) EnsureTables(ctx context.Context) error {
	_, err, _ := s.ensureGroup.Do("ensure", func() (interface{}, error) {
		return nil, s.ensureTablesOnce(ctx)
	})
	return err
}

func (s *SQLiteStore) ensureTablesOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return nil
	}

	const schema = `
CREATE TABLE IF NOT EXISTS records (
	table_name   TEXT NOT NULL,
	id           TEXT NOT NULL,
	project_path TEXT NOT NULL,
	content      TEXT NOT NULL,
	vector       BLOB,
	metadata     TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	PRIMARY KEY (table_name, id)
);
CREATE INDEX IF NOT EXISTS idx_records_project ON records(table_name, project_path);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return careerr.New(careerr.SchemaDrift, "", fmt.Errorf("creating schema: %w", err))
	}

	for _, table := range AllTables() {
		idx, err := newFTSIndex(s.cfg.DataDir, table)
		if err != nil {
			s.logger.Warn("fts index creation failed, falling back to exact search", zap.String("table", string(table)), zap.Error(err))
			idx = nil
		}
		s.fts[table] = idx
		s.vecIdx[table] = newVectorIndex(table, s.cfg.VectorDim)

		records, err := s.loadTable(ctx, table)
		if err != nil {
			return fmt.Errorf("loading table %s: %w", table, err)
		}
		if err := s.vecIdx[table].rebuild(ctx, records); err != nil {
			s.logger.Warn("vector index rebuild failed, falling back to exact search", zap.String("table", string(table)), zap.Error(err))
			recordIndexFallback(table)
		}
		if idx != nil {
			if err := idx.upsert(records); err != nil {
				s.logger.Warn("fts reindex failed", zap.String("table", string(table)), zap.Error(err))
			}
		}
		recordRowCount(table, len(records))
	}

	s.ensured = true
	return nil
}

func (s *SQLiteStore) loadTable(ctx context.Context, table Table) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_path, content, vector, metadata FROM records WHERE table_name = ?`, string(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var vecBlob []byte
		var metaJSON string
		if err := rows.Scan(&r.ID, &r.ProjectPath, &r.Content, &vecBlob, &metaJSON); err != nil {
			return nil, err
		}
		r.Vector = decodeVector(vecBlob)
		r.Metadata = map[string]interface{}{}
		if metaJSON != "" {
			_ = json.Unmarshal([]byte(metaJSON), &r.Metadata)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Upsert deletes by ID then appends the new batch inside one transaction
// (§4.3), then refreshes the in-memory vector/FTS indexes for the table.
func (s *SQLiteStore) Upsert(ctx context.Context, table Table, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		metaJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM records WHERE table_name = ? AND id = ?`, string(table), r.ID); err != nil {
			return fmt.Errorf("deleting existing record %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records(table_name, id, project_path, content, vector, metadata, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(table), r.ID, r.ProjectPath, r.Content, encodeVector(r.Vector), string(metaJSON), now,
		); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}

	recordUpsert(table, len(records))

	s.mu.Lock()
	defer s.mu.Unlock()
	if fts := s.fts[table]; fts != nil {
		if err := fts.upsert(records); err != nil {
			s.logger.Warn("fts upsert failed", zap.String("table", string(table)), zap.Error(err))
		}
	}
	if err := s.refreshVectorIndexLocked(ctx, table); err != nil {
		s.logger.Warn("vector index refresh failed", zap.String("table", string(table)), zap.Error(err))
	}
	return nil
}

// refreshVectorIndexLocked rebuilds the table's vector index from the
// current on-disk contents. Caller must hold s.mu.
func (s *SQLiteStore) refreshVectorIndexLocked(ctx context.Context, table Table) error {
	records, err := s.loadTable(ctx, table)
	if err != nil {
		return err
	}
	recordRowCount(table, len(records))
	idx, ok := s.vecIdx[table]
	if !ok {
		idx = newVectorIndex(table, s.cfg.VectorDim)
		s.vecIdx[table] = idx
	}
	if err := idx.rebuild(ctx, records); err != nil {
		recordIndexFallback(table)
		return err
	}
	return nil
}

// Search performs hybrid vector+FTS retrieval scoped to q.ProjectPath,
// fused by reciprocal-rank fusion (§4.3).
func (s *SQLiteStore) Search(ctx context.Context, table Table, q Query) ([]Row, error) {
	start := time.Now()
	defer func() { searchDuration.WithLabelValues(string(table)).Observe(time.Since(start).Seconds()) }()

	k := q.K
	if k <= 0 {
		k = 10
	}

	records, err := s.loadTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("loading table %s: %w", table, err)
	}

	isolate := ProjectIsolationPredicate(q.ProjectPath)
	byID := make(map[string]Record, len(records))
	candidateIDs := make(map[string]struct{})
	for _, r := range records {
		if !isolate(r) {
			continue
		}
		if q.Filter != nil && !q.Filter(r) {
			continue
		}
		byID[r.ID] = r
		candidateIDs[r.ID] = struct{}{}
	}

	var vectorResults []scoredID
	if len(q.Vector) > 0 {
		s.mu.RLock()
		idx := s.vecIdx[table]
		s.mu.RUnlock()
		if idx != nil {
			all, err := idx.search(ctx, q.Vector, k*4)
			if err != nil {
				s.logger.Warn("vector search failed", zap.String("table", string(table)), zap.Error(err))
			}
			for _, c := range all {
				if _, ok := candidateIDs[c.id]; ok {
					vectorResults = append(vectorResults, c)
				}
			}
		}
	}

	var ftsResults []scoredID
	if q.Text != "" {
		s.mu.RLock()
		fts := s.fts[table]
		s.mu.RUnlock()
		if fts != nil {
			ftsResults, err = fts.search(q.Text, candidateIDs, k*4)
			if err != nil {
				s.logger.Warn("fts search failed", zap.String("table", string(table)), zap.Error(err))
			}
		}
	}

	// RRF fuses the two channels' *rankings* into one ordering; the score
	// exposed on each Row is the channel-native [0,1] similarity (§4.3),
	// not the RRF rank score, so callers can apply a similarity floor.
	fused := fuseRRF(vectorResults, ftsResults)
	inVector, inFTS := channelMembership(vectorResults, ftsResults)
	nativeScore := channelScores(vectorResults, ftsResults)

	rows := make([]Row, 0, k)
	for _, c := range fused {
		rec, ok := byID[c.id]
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Record:        rec,
			Score:         nativeScore[c.id],
			MatchedVector: inVector[c.id],
			MatchedFTS:    inFTS[c.id],
		})
		if len(rows) >= k {
			break
		}
	}
	return rows, nil
}

// ListByProject returns every record in table scoped to projectPath, in one
// bulk query (§4.5 step 3).
func (s *SQLiteStore) ListByProject(ctx context.Context, table Table, projectPath string) ([]Record, error) {
	records, err := s.loadTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("loading table %s: %w", table, err)
	}
	isolate := ProjectIsolationPredicate(projectPath)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if isolate(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// CountRows reports the current row count for table.
func (s *SQLiteStore) CountRows(ctx context.Context, table Table) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE table_name = ?`, string(table)).Scan(&n)
	return n, err
}

// DropTable removes every record for table and its indexes.
func (s *SQLiteStore) DropTable(ctx context.Context, table Table) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE table_name = ?`, string(table)); err != nil {
		return fmt.Errorf("dropping table %s: %w", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if fts := s.fts[table]; fts != nil {
		_ = fts.close()
	}
	idx, err := newFTSIndex(s.cfg.DataDir, table)
	if err == nil {
		s.fts[table] = idx
	}
	s.vecIdx[table] = newVectorIndex(table, s.cfg.VectorDim)
	recordRowCount(table, 0)
	return nil
}

// DeleteWhere deletes every record matching pred, returning the row count
// removed.
func (s *SQLiteStore) DeleteWhere(ctx context.Context, table Table, pred Predicate) (int, error) {
	records, err := s.loadTable(ctx, table)
	if err != nil {
		return 0, err
	}

	var toDelete []string
	for _, r := range records {
		if pred == nil || pred(r) {
			toDelete = append(toDelete, r.ID)
		}
	}
	if len(toDelete) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range toDelete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE table_name = ? AND id = ?`, string(table), id); err != nil {
			return 0, fmt.Errorf("deleting %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing delete: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if fts := s.fts[table]; fts != nil {
		if err := fts.delete(toDelete); err != nil {
			s.logger.Warn("fts delete failed", zap.String("table", string(table)), zap.Error(err))
		}
	}
	if err := s.refreshVectorIndexLocked(ctx, table); err != nil {
		s.logger.Warn("vector index refresh after delete failed", zap.String("table", string(table)), zap.Error(err))
	}
	return len(toDelete), nil
}

// Close releases the sqlite handle and every FTS index.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, idx := range s.fts {
		if idx != nil {
			_ = idx.close()
		}
	}
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

var _ Store = (*SQLiteStore)(nil)
