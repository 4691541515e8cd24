package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/coder/hnsw"
)

// indexTierKind names the adaptive vector index policy tier (§4.3). The
// pack carries no true IVF-Flat/IVF-PQ implementation (those are Qdrant/
// pgvector-native index types); ivfFlatTier and ivfPQTier are approximated
// with a coder/hnsw graph, parameterised to widen search effort as the
// tier escalates. This approximation is recorded in DESIGN.md.
type indexTierKind int

const (
	exactTier indexTierKind = iota
	ivfFlatTier
	ivfPQTier
)

func (k indexTierKind) String() string {
	switch k {
	case exactTier:
		return "exact"
	case ivfFlatTier:
		return "ivf_flat"
	case ivfPQTier:
		return "ivf_pq"
	default:
		return "unknown"
	}
}

// selectTier implements the adaptive vector index policy table (§4.3).
func selectTier(rows int) indexTierKind {
	switch {
	case rows < 1000:
		return exactTier
	case rows < 10000:
		return ivfFlatTier
	default:
		return ivfPQTier
	}
}

// numPartitions mirrors the spec's documented partition-count formulas,
// used here to derive the coder/hnsw EfSearch/M parameters for the two
// approximated ANN tiers rather than a literal partition count.
func numPartitions(tier indexTierKind, rows int) int {
	switch tier {
	case ivfFlatTier:
		n := int(math.Floor(math.Sqrt(float64(rows) / 50)))
		if n < 2 {
			n = 2
		}
		return n
	case ivfPQTier:
		n := int(math.Floor(math.Sqrt(float64(rows) / 100)))
		if n < 8 {
			n = 8
		}
		return n
	default:
		return 0
	}
}

// scoredID is one candidate from a vector or FTS channel, ranked.
type scoredID struct {
	id    string
	score float64
}

// vectorIndex is the per-table vector search engine: an exact-tier
// chromem-go collection (brute-force cosine, true to chromem-go's own
// design) for <1,000 rows, or a coder/hnsw graph for the two larger tiers.
type vectorIndex struct {
	table Table
	dim   int

	mu   sync.RWMutex
	tier indexTierKind

	chromemDB   *chromem.DB
	collection  *chromem.Collection
	graph       *hnsw.Graph[uint64]
	idToKey     map[string]uint64
	keyToID     map[uint64]string
	nextKey     uint64
}

func newVectorIndex(table Table, dim int) *vectorIndex {
	db := chromem.NewDB()
	return &vectorIndex{
		table:     table,
		dim:       dim,
		tier:      exactTier,
		chromemDB: db,
		idToKey:   make(map[string]uint64),
		keyToID:   make(map[uint64]string),
	}
}

// rebuild re-derives the index from scratch against the current candidate
// set, selecting the tier from len(records) per the adaptive policy.
func (vi *vectorIndex) rebuild(ctx context.Context, records []Record) error {
	vi.mu.Lock()
	defer vi.mu.Unlock()

	tier := selectTier(len(records))
	vi.tier = tier
	recordTierGauge(vi.table, tier)
	recordIndexRebuild(vi.table, tier)

	switch tier {
	case exactTier:
		collName := string(vi.table) + "_exact"
		// Reset the collection on every rebuild so stale documents from a
		// prior tier transition never linger.
		_ = vi.chromemDB.DeleteCollection(collName)
		col, err := vi.chromemDB.GetOrCreateCollection(collName, nil, staticEmbeddingFunc)
		if err != nil {
			recordIndexFallback(vi.table)
			return fmt.Errorf("creating exact-tier collection: %w", err)
		}
		docs := make([]chromem.Document, 0, len(records))
		for _, r := range records {
			if len(r.Vector) == 0 {
				continue
			}
			docs = append(docs, chromem.Document{ID: r.ID, Content: r.Content, Embedding: r.Vector})
		}
		if len(docs) > 0 {
			if err := col.AddDocuments(ctx, docs, 1); err != nil {
				recordIndexFallback(vi.table)
				return fmt.Errorf("populating exact-tier collection: %w", err)
			}
		}
		vi.collection = col
		vi.graph = nil
		return nil

	default:
		graph := hnsw.NewGraph[uint64]()
		graph.Distance = hnsw.CosineDistance
		graph.M = 16
		graph.EfSearch = 20 + numPartitions(tier, len(records))

		idToKey := make(map[string]uint64, len(records))
		keyToID := make(map[uint64]string, len(records))
		var nextKey uint64
		for _, r := range records {
			if len(r.Vector) == 0 {
				continue
			}
			key := nextKey
			nextKey++
			graph.Add(hnsw.MakeNode(key, normalized(r.Vector)))
			idToKey[r.ID] = key
			keyToID[key] = r.ID
		}
		vi.graph = graph
		vi.idToKey = idToKey
		vi.keyToID = keyToID
		vi.nextKey = nextKey
		vi.collection = nil
		return nil
	}
}

// search returns up to k candidate IDs ranked by vector similarity against
// the most recently rebuilt index.
func (vi *vectorIndex) search(ctx context.Context, query []float32, k int) ([]scoredID, error) {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	if len(query) == 0 {
		return nil, nil
	}

	switch vi.tier {
	case exactTier:
		if vi.collection == nil {
			return nil, nil
		}
		results, err := vi.collection.QueryEmbedding(ctx, query, min(k, vi.collection.Count()), nil, nil)
		if err != nil {
			if vi.collection.Count() == 0 {
				return nil, nil
			}
			return nil, fmt.Errorf("exact-tier query: %w", err)
		}
		// chromem-go's own cosine similarity, not §4.3's exp(-2*distance);
		// the retriever's similarity floors are calibrated against this
		// value (see DESIGN.md's vector-channel score deviation entry).
		out := make([]scoredID, 0, len(results))
		for _, res := range results {
			out = append(out, scoredID{id: res.ID, score: float64(res.Similarity)})
		}
		return out, nil

	default:
		if vi.graph == nil || vi.graph.Len() == 0 {
			return nil, nil
		}
		q := normalized(query)
		nodes := vi.graph.Search(q, k)
		out := make([]scoredID, 0, len(nodes))
		for _, n := range nodes {
			id, ok := vi.keyToID[n.Key]
			if !ok {
				continue
			}
			// Cosine distance in [0,2] folded to a [0,1] similarity; also
			// not §4.3's exp(-2*distance) formula, same deviation as above.
			distance := vi.graph.Distance(q, n.Value)
			out = append(out, scoredID{id: id, score: 1.0 - float64(distance)/2.0})
		}
		return out, nil
	}
}

// staticEmbeddingFunc tells chromem-go not to compute embeddings itself;
// every document we add already carries a precomputed vector.
func staticEmbeddingFunc(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("embeddings must be precomputed before AddDocuments")
}

func normalized(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	out := make([]float32, len(v))
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
