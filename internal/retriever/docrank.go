package retriever

import (
	"math"
	"sort"
	"strings"

	"github.com/care-engine/care/internal/config"
	"github.com/care-engine/care/internal/contextinfer"
)

// docChunkCandidate is one documentation-chunk hybrid-search hit carried
// into the multi-signal document re-ranker (§4.6 step 3).
type docChunkCandidate struct {
	path          string
	headingText   *string
	documentTitle string
	language      string
	content       string
	score         float64
	area          contextinfer.Area
	dominantTech  []string
	isReadmeStyle bool
}

// genericDocumentNames are the filenames whose score is penalised unless
// the snippet is DevOps or strongly context-matched (§4.6 step 3).
var genericDocumentNames = map[string]bool{
	"readme": true, "runbook": true, "contributing": true, "changelog": true,
	"license": true, "setup": true, "install": true,
}

// rankedDocument is one surviving document from the re-ranker, carrying the
// single best chunk to surface to the Reviewer.
type rankedDocument struct {
	path        string
	score       float64
	bestChunk   docChunkCandidate
}

// rerankDocuments implements §4.6 step 3: group chunks by document path,
// score each document on semanticQuality/contextMatch/h1Relevance/
// genericPenalty, discard documents below the score floor or with a strong
// unreconciled area mismatch, and return the best chunk of each of the top
// N surviving documents (N = topDocuments).
func rerankDocuments(
	chunks []docChunkCandidate,
	snippetArea contextinfer.Area,
	snippetDominantTech []string,
	h1Relevance func(documentTitle string) float64,
	weights config.RerankWeights,
	topDocuments int,
) []rankedDocument {
	byPath := make(map[string][]docChunkCandidate)
	order := make([]string, 0)
	for _, c := range chunks {
		if c.score < weights.ChunkScoreFloor {
			continue
		}
		if _, ok := byPath[c.path]; !ok {
			order = append(order, c.path)
		}
		byPath[c.path] = append(byPath[c.path], c)
	}

	snippetTechSet := make(map[string]bool, len(snippetDominantTech))
	for _, t := range snippetDominantTech {
		snippetTechSet[t] = true
	}

	var ranked []rankedDocument
	for _, path := range order {
		group := byPath[path]
		semanticQuality := semanticQualityOf(group)
		contextMatch, mismatch := contextMatchOf(group[0].area, group[0].dominantTech, snippetArea, snippetTechSet, weights)
		h1 := h1Relevance(group[0].documentTitle)

		score := weights.SemanticQuality*semanticQuality + weights.ContextMatch*contextMatch + weights.H1Relevance*h1
		penalty := genericPenaltyOf(group[0], snippetArea, contextMatch, weights)
		score *= penalty

		if score < weights.DocScoreFloor {
			continue
		}
		if mismatch && !techOverlap(group[0].dominantTech, snippetTechSet) {
			continue
		}

		ranked = append(ranked, rankedDocument{
			path:      path,
			score:     score,
			bestChunk: bestChunkOf(group),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if topDocuments > 0 && len(ranked) > topDocuments {
		ranked = ranked[:topDocuments]
	}
	return ranked
}

// semanticQualityOf implements the per-document formula:
// 0.5*maxChunkScore + 0.3*avgChunkScore + 0.04*min(numRelevantChunks, 5).
func semanticQualityOf(group []docChunkCandidate) float64 {
	if len(group) == 0 {
		return 0
	}
	var maxScore, sum float64
	for _, c := range group {
		if c.score > maxScore {
			maxScore = c.score
		}
		sum += c.score
	}
	avg := sum / float64(len(group))
	n := len(group)
	if n > 5 {
		n = 5
	}
	return 0.5*maxScore + 0.3*avg + 0.04*float64(n)
}

// contextMatchOf implements the area/tech agreement signal. Returns the
// contextMatch value and whether the document is a "strong area mismatch"
// (non-trivial areas that disagree, snippet not GeneralJS_TS).
func contextMatchOf(docArea contextinfer.Area, docTech []string, snippetArea contextinfer.Area, snippetTechSet map[string]bool, weights config.RerankWeights) (float64, bool) {
	if docArea == "" || snippetArea == "" || docArea == contextinfer.Unknown || snippetArea == contextinfer.Unknown {
		return 0, false
	}
	if docArea == snippetArea {
		match := weights.AreaMatchBonus
		if techOverlapSlice(docTech, snippetTechSet) {
			match += weights.TechOverlapBonus
		}
		return match, false
	}
	if snippetArea == contextinfer.GeneralJSOrTS {
		return 0, false
	}
	return weights.AreaMismatchPenalty, true
}

func techOverlap(docTech []string, snippetTechSet map[string]bool) bool {
	return techOverlapSlice(docTech, snippetTechSet)
}

func techOverlapSlice(docTech []string, snippetTechSet map[string]bool) bool {
	for _, t := range docTech {
		if snippetTechSet[t] {
			return true
		}
	}
	return false
}

// genericPenaltyOf multiplies the score by 0.7 for generic README-style
// documents or generically-named files, unless the snippet is DevOps or
// the document is already a strong context match (§4.6 step 3).
func genericPenaltyOf(c docChunkCandidate, snippetArea contextinfer.Area, contextMatch float64, weights config.RerankWeights) float64 {
	if snippetArea == contextinfer.DevOps || contextMatch >= weights.AreaMatchBonus {
		return 1.0
	}
	if c.isReadmeStyle || isGenericFilename(c.path) {
		return weights.GenericPenalty
	}
	return 1.0
}

func isGenericFilename(path string) bool {
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}
	base = strings.ToLower(base)
	base = strings.TrimSuffix(base, ".md")
	base = strings.TrimSuffix(base, ".mdx")
	return genericDocumentNames[base]
}

// bestChunkOf returns the highest-scoring chunk in the group.
func bestChunkOf(group []docChunkCandidate) docChunkCandidate {
	best := group[0]
	for _, c := range group[1:] {
		if c.score > best.score {
			best = c
		}
	}
	return best
}

// cosineSimilarity computes standard cosine similarity, returning 0 when
// either vector is empty or zero-length (degraded mode, never an error).
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
