package vectorstore

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
)

// ftsDocument is the document shape indexed into bleve; only Content is
// analysed, matching §4.3 "The FTS index is always created on the text
// column."
type ftsDocument struct {
	Content string `json:"content"`
}

// ftsIndex wraps one bleve index per table, grounded on the teacher pack's
// BM25 keyword-search component.
type ftsIndex struct {
	index bleve.Index
	path  string
}

func newFTSIndex(dataDir string, table Table) (*ftsIndex, error) {
	mapping := bleve.NewIndexMapping()

	path := filepath.Join(dataDir, "fts", string(table)+".bleve")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating fts directory: %w", err)
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, mapping)
	}
	if err != nil {
		// Best-effort: index creation failure falls back to exact search
		// with a logged warning at the call site, never to a hard failure.
		return nil, fmt.Errorf("opening fts index %s: %w", path, err)
	}

	return &ftsIndex{index: idx, path: path}, nil
}

func (f *ftsIndex) upsert(records []Record) error {
	batch := f.index.NewBatch()
	for _, r := range records {
		if err := batch.Index(r.ID, ftsDocument{Content: r.Content}); err != nil {
			return fmt.Errorf("indexing %s: %w", r.ID, err)
		}
	}
	return f.index.Batch(batch)
}

func (f *ftsIndex) delete(ids []string) error {
	batch := f.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return f.index.Batch(batch)
}

// search runs a match query over the content field, returning up to k
// candidates with bleve's own relevance score.
func (f *ftsIndex) search(queryText string, candidateIDs map[string]struct{}, k int) ([]scoredID, error) {
	if queryText == "" {
		return nil, nil
	}
	q := bleve.NewMatchQuery(queryText)
	q.SetField("content")

	req := bleve.NewSearchRequest(q)
	req.Size = k
	if len(candidateIDs) > 0 {
		req.Size = k * 4 // overfetch; caller narrows to candidateIDs below
	}

	result, err := f.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}

	out := make([]scoredID, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if candidateIDs != nil {
			if _, ok := candidateIDs[hit.ID]; !ok {
				continue
			}
		}
		// Normalise bleve's unbounded BM25 score into [0,1] (any score of 1
		// or more maps to exactly 1) per §4.3
		// ("score/max(score,1)` for FTS").
		out = append(out, scoredID{id: hit.ID, score: hit.Score / math.Max(hit.Score, 1)})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (f *ftsIndex) close() error {
	return f.index.Close()
}
