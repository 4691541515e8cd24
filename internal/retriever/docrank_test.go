package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/care-engine/care/internal/config"
	"github.com/care-engine/care/internal/contextinfer"
)

func testWeights() config.RerankWeights {
	return config.Load().Retriever.Weights
}

func noH1Relevance(string) float64 { return 0 }

// TestRerankDocumentsContextMatchMonotonicity covers testable property #7:
// when two documents tie on every sub-signal except contextMatch, the one
// with the higher contextMatch outranks the other.
func TestRerankDocumentsContextMatchMonotonicity(t *testing.T) {
	weights := testWeights()

	matching := docChunkCandidate{
		path: "docs/backend-guide.md", documentTitle: "Backend Guide",
		content: "backend patterns", score: 0.8,
		area: contextinfer.Backend, dominantTech: []string{"go"},
	}
	mismatched := docChunkCandidate{
		path: "docs/frontend-guide.md", documentTitle: "Frontend Guide",
		content: "frontend patterns", score: 0.8,
		area: contextinfer.Frontend, dominantTech: []string{"react"},
	}

	ranked := rerankDocuments(
		[]docChunkCandidate{matching, mismatched},
		contextinfer.Backend, []string{"go"},
		noH1Relevance, weights, topDocuments,
	)

	if assert.NotEmpty(t, ranked) {
		assert.Equal(t, "docs/backend-guide.md", ranked[0].path, "the area-matching document must outrank the mismatched one")
	}
	for _, rd := range ranked {
		assert.NotEqual(t, "docs/frontend-guide.md", rd.path, "a strong unreconciled area mismatch must be discarded")
	}
}

// TestGenericPenaltyAppliedToReadmeStyleDocuments covers scenario S3: a
// generic README-style document is penalised relative to an equally-scored,
// non-generic, context-matching document.
func TestGenericPenaltyAppliedToReadmeStyleDocuments(t *testing.T) {
	weights := testWeights()

	readme := docChunkCandidate{
		path: "README.md", documentTitle: "README", content: "general project overview",
		score: 0.6, area: contextinfer.Backend, dominantTech: []string{"go"}, isReadmeStyle: true,
	}
	guide := docChunkCandidate{
		path: "docs/api-guide.md", documentTitle: "API Guide", content: "api conventions",
		score: 0.6, area: contextinfer.Backend, dominantTech: []string{"go"},
	}

	// snippetArea Unknown makes contextMatch 0 for both documents, so the
	// only surviving difference between them is the generic-name penalty.
	// Both then score 0.2*0.52 = 0.104 before the penalty, below the default
	// 0.3 document floor, so the floor is lifted to keep both in the ranking.
	weights.DocScoreFloor = 0
	ranked := rerankDocuments(
		[]docChunkCandidate{readme, guide},
		contextinfer.Unknown, []string{"go"},
		noH1Relevance, weights, topDocuments,
	)

	scores := make(map[string]float64, len(ranked))
	for _, rd := range ranked {
		scores[rd.path] = rd.score
	}
	if assert.Contains(t, scores, "README.md") && assert.Contains(t, scores, "docs/api-guide.md") {
		assert.Less(t, scores["README.md"], scores["docs/api-guide.md"], "generic README-style doc must score below an equally-matched non-generic doc")
	}
}

// TestGenericPenaltyWaivedForDevOpsSnippets covers the genericPenaltyOf
// escape hatch: a DevOps snippet never penalises README-style documents,
// since runbooks and setup docs are exactly what DevOps review needs.
func TestGenericPenaltyWaivedForDevOpsSnippets(t *testing.T) {
	weights := testWeights()
	penalty := genericPenaltyOf(
		docChunkCandidate{path: "RUNBOOK.md", isReadmeStyle: true},
		contextinfer.DevOps, 0, weights,
	)
	assert.Equal(t, 1.0, penalty)
}

func TestSemanticQualityOfFormula(t *testing.T) {
	group := []docChunkCandidate{{score: 0.9}, {score: 0.5}, {score: 0.1}}
	got := semanticQualityOf(group)
	want := 0.5*0.9 + 0.3*((0.9+0.5+0.1)/3) + 0.04*3
	assert.InDelta(t, want, got, 1e-9)
}

func TestCosineSimilarityDegradesOnEmptyOrMismatchedVectors(t *testing.T) {
	assert.Equal(t, float64(0), cosineSimilarity(nil, []float32{1, 2}))
	assert.Equal(t, float64(0), cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
}
